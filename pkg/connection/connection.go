package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/gems-gallery/blockpress.go/internal/codec"
	"github.com/gems-gallery/blockpress.go/pkg/constants"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
)

// Connection is a single wire connection to the BlockPress service.
// Implementations route responses back to the issuing Send call by
// request ID, so responses may arrive in any order.
type Connection interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Send(ctx context.Context, method string, params ...any) (*RPCResponse[cbor.RawMessage], error)
	GetUnmarshaler() codec.Unmarshaler
}

// Toolkit carries the state shared by Connection implementations:
// the codec pair, the logger, and the registry of in-flight requests.
type Toolkit struct {
	BaseURL string

	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler
	Logger      logger.Logger

	ResponseChannels     map[string]chan RPCResponse[cbor.RawMessage]
	responseChannelsLock sync.RWMutex
}

func (t *Toolkit) CreateResponseChannel(id string) (chan RPCResponse[cbor.RawMessage], error) {
	t.responseChannelsLock.Lock()
	defer t.responseChannelsLock.Unlock()

	if _, ok := t.ResponseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}

	ch := make(chan RPCResponse[cbor.RawMessage])
	t.ResponseChannels[id] = ch

	return ch, nil
}

func (t *Toolkit) RemoveResponseChannel(id string) {
	t.responseChannelsLock.Lock()
	defer t.responseChannelsLock.Unlock()
	delete(t.ResponseChannels, id)
}

func (t *Toolkit) GetResponseChannel(id string) (chan RPCResponse[cbor.RawMessage], bool) {
	t.responseChannelsLock.RLock()
	defer t.responseChannelsLock.RUnlock()
	ch, ok := t.ResponseChannels[id]
	return ch, ok
}

func (t *Toolkit) PreConnectionChecks() error {
	if t.BaseURL == "" {
		return constants.ErrNoBaseURL
	}

	if t.Marshaler == nil {
		return constants.ErrNoMarshaler
	}

	if t.Unmarshaler == nil {
		return constants.ErrNoUnmarshaler
	}

	return nil
}
