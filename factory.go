package blockpress

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/gems-gallery/blockpress.go/pkg/auth"
	"github.com/gems-gallery/blockpress.go/pkg/connection"
	"github.com/gems-gallery/blockpress.go/pkg/connection/gorillaws"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
)

// Config parameterizes a Factory.
type Config struct {
	// URL is the service endpoint, e.g. "wss://blockpress.app" or
	// "ws://localhost:4943".
	URL *url.URL

	// Deployment selects the network target (root-trust handling and
	// capability defaults).
	Deployment Deployment

	// Capabilities overrides the deployment's default capability set.
	Capabilities *Capabilities

	Logger logger.Logger

	// Timeout bounds a single RPC round-trip. Zero means the connection
	// default.
	Timeout time.Duration

	// NewConnection overrides the wire engine. Nil means the gorilla
	// websocket engine; tests substitute a scripted connection here.
	NewConnection func(*connection.Config) connection.Connection
}

// Factory builds service handles bound to an identity. Handles are cheap and
// side-effect-free to construct; the factory's only shared state is the
// cached root-trust material, which survives handle rebuilds.
type Factory struct {
	conf  Config
	caps  Capabilities
	log   logger.Logger
	trust *trustRoot
}

func NewFactory(conf Config) (*Factory, error) {
	if conf.URL == nil {
		return nil, errors.New("blockpress: service URL is required")
	}

	caps := DefaultCapabilities(conf.Deployment)
	if conf.Capabilities != nil {
		caps = *conf.Capabilities
	}

	log := conf.Logger
	if log == nil {
		log = logger.New(slog.NewTextHandler(os.Stdout, nil))
	}

	if conf.NewConnection == nil {
		conf.NewConnection = func(c *connection.Config) connection.Connection {
			return gorillaws.New(c)
		}
	}

	return &Factory{
		conf:  conf,
		caps:  caps,
		log:   log,
		trust: &trustRoot{},
	}, nil
}

func (f *Factory) Capabilities() Capabilities {
	return f.caps
}

// Build constructs a handle bound to id; a nil id builds an anonymous handle.
// Construction is pure: the handle dials, fetches trust material (local
// deployments only) and binds its identity lazily on the first call.
func (f *Factory) Build(id *auth.Identity) *Client {
	connConf := connection.NewConfig(f.conf.URL)
	connConf.Logger = f.log
	connConf.Timeout = f.conf.Timeout

	return &Client{
		conn:       f.conf.NewConnection(connConf),
		caps:       f.caps,
		identity:   id,
		deployment: f.conf.Deployment,
		trust:      f.trust,
		httpBase:   httpBaseURL(f.conf.URL),
		logger:     f.log,
	}
}
