package connection

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/gems-gallery/blockpress.go/internal/codec"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
)

// Config carries everything a Connection implementation needs to dial the
// service: the endpoint, the codec pair, the logger and the per-call timeout.
type Config struct {
	URL url.URL

	BaseURL string

	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler
	Logger      logger.Logger

	// Timeout bounds a single RPC round-trip. Zero disables the internal
	// timeout; callers then control cancellation through the context alone.
	Timeout time.Duration
}

// NewConfig creates a Config for the service endpoint identified by the URL,
// such as "ws://localhost:4943" or "wss://blockpress.app". It fills in the
// CBOR codec and a text slog logger; callers can replace either afterwards.
func NewConfig(u *url.URL) *Config {
	c := codec.NewCBOR()
	return &Config{
		URL:         *u,
		Marshaler:   c,
		Unmarshaler: c,
		BaseURL:     fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		Logger:      logger.New(slog.NewTextHandler(os.Stdout, nil)),
	}
}
