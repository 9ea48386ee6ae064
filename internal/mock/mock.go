// Package mock provides a scripted Connection for unit tests. Handlers are
// registered per method; unscripted methods fail the call, which doubles as
// an assertion that a code path never reached the network.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/gems-gallery/blockpress.go/internal/codec"
	"github.com/gems-gallery/blockpress.go/pkg/connection"
)

// Call records one Send invocation.
type Call struct {
	Method string
	Params []any
}

// Handler produces the scripted outcome for one method. Returning a non-nil
// RPCError simulates a service-side refusal; returning a result simulates
// success. Handlers run on the caller's goroutine, so tests can block inside
// one to orchestrate ordering.
type Handler func(params []any) (any, *connection.RPCError)

type Connection struct {
	mu       sync.Mutex
	handlers map[string]Handler
	failWith map[string]error
	calls    []Call
	connects int
	closed   bool

	// ConnectErr, when set, fails every Connect attempt.
	ConnectErr error

	codec *codec.CBOR
}

func New() *Connection {
	return &Connection{
		handlers: make(map[string]Handler),
		failWith: make(map[string]error),
		codec:    codec.NewCBOR(),
	}
}

// On scripts a method.
func (m *Connection) On(method connection.RPCFunction, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[string(method)] = h
}

// Returns scripts a method with a fixed successful result.
func (m *Connection) Returns(method connection.RPCFunction, result any) {
	m.On(method, func([]any) (any, *connection.RPCError) {
		return result, nil
	})
}

// FailWith scripts a transport-level failure for a method.
func (m *Connection) FailWith(method connection.RPCFunction, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith[string(method)] = err
}

func (m *Connection) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connects++
	return nil
}

func (m *Connection) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[cbor.RawMessage], error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Method: method, Params: params})
	h := m.handlers[method]
	ferr := m.failWith[method]
	m.mu.Unlock()

	if ferr != nil {
		return nil, ferr
	}
	if h == nil {
		return nil, fmt.Errorf("mock: no handler for method %q", method)
	}

	result, rpcErr := h(params)
	if rpcErr != nil {
		return &connection.RPCResponse[cbor.RawMessage]{ID: "1", Error: rpcErr}, nil
	}

	data, err := m.codec.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("mock: marshaling scripted result: %w", err)
	}
	raw := cbor.RawMessage(data)
	return &connection.RPCResponse[cbor.RawMessage]{ID: "1", Result: &raw}, nil
}

func (m *Connection) GetUnmarshaler() codec.Unmarshaler {
	return m.codec
}

// Calls returns every recorded Send in order.
func (m *Connection) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo counts the Sends issued for a method.
func (m *Connection) CallsTo(method connection.RPCFunction) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == string(method) {
			n++
		}
	}
	return n
}

// Connected reports whether Connect succeeded at least once.
func (m *Connection) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects > 0
}

// Closed reports whether the connection was closed.
func (m *Connection) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
