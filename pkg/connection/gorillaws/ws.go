// Package gorillaws implements the websocket Connection engine on top of
// gorilla/websocket. It is the engine used for all real deployments; tests
// may substitute a scripted Connection instead.
package gorillaws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"

	"github.com/gems-gallery/blockpress.go/internal/codec"
	"github.com/gems-gallery/blockpress.go/pkg/connection"
	"github.com/gems-gallery/blockpress.go/pkg/constants"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
)

// DefaultDialer is the default gorilla dialer used by the Connection.
//
// It uses the default gorilla dialer with the following modifications:
// - EnableCompression is set to true
// - Subprotocols is set to ["cbor"]
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
	Subprotocols:      []string{"cbor"},
}

// State represents the state of the websocket connection.
//
// We assume the following transitions:
//
//	StatePending -> StateConnecting (initial connection attempt)
//	StateConnecting -> StateConnected | StateDisconnected
//	StateConnected -> StateDisconnecting | StateDisconnected
//	StateDisconnecting -> StateDisconnected
//
// A Connection is never reused after disconnecting; the handle that owns it
// is rebuilt instead.
type State int

const (
	// StateUnknown is intentionally the zero value, as an indicator that the
	// Connection was initialized in an unexpected way.
	StateUnknown State = iota
	StatePending
	StateConnecting
	StateConnected
	StateDisconnecting
	StateDisconnected
)

type Connection struct {
	connection.Toolkit

	Conn *gorilla.Conn
	// connLock guards reads/writes against a nil or swapped Conn. It is held
	// only around individual read/write operations, never across the whole
	// connect sequence, so a failed connection surfaces errors immediately.
	connLock sync.Mutex

	// stateLock guards the connection state machine.
	stateLock sync.RWMutex
	state     State

	// Timeout bounds a single RPC round-trip after the request was written.
	// Zero disables the internal timeout in favour of the caller's context.
	Timeout time.Duration

	logger logger.Logger

	// connCloseCh signals that the connection is being closed. It stops the
	// readLoop goroutine and prevents Send from writing to a nil Conn.
	connCloseCh    chan int
	connCloseError error
}

func New(p *connection.Config) *Connection {
	l := p.Logger
	if l == nil {
		l = logger.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = constants.DefaultWSTimeout
	}

	return &Connection{
		Toolkit: connection.Toolkit{
			BaseURL: p.BaseURL,

			Marshaler:   p.Marshaler,
			Unmarshaler: p.Unmarshaler,
			Logger:      l,

			ResponseChannels: make(map[string]chan connection.RPCResponse[cbor.RawMessage]),
		},
		Timeout: timeout,
		logger:  l,
		state:   StatePending,
	}
}

func (ws *Connection) Connect(ctx context.Context) error {
	if err := ws.PreConnectionChecks(); err != nil {
		return err
	}

	if err := ws.transitionToConnecting(); err != nil {
		return err
	}

	if err := ws.connect(ctx); err != nil {
		ws.stateLock.Lock()
		ws.state = StateDisconnected
		ws.stateLock.Unlock()
		ws.logger.Error("failed to connect websocket", "error", err)
		return err
	}

	ws.stateLock.Lock()
	ws.state = StateConnected
	ws.stateLock.Unlock()
	ws.logger.Debug("websocket connected", "url", ws.BaseURL)

	return nil
}

// IsClosed reports whether the connection is disconnected. The owner of the
// handle uses it to decide that the handle must be rebuilt rather than reused.
func (ws *Connection) IsClosed() bool {
	ws.stateLock.RLock()
	defer ws.stateLock.RUnlock()

	return ws.state == StateDisconnected
}

func (ws *Connection) transitionToConnecting() error {
	ws.stateLock.Lock()
	defer ws.stateLock.Unlock()

	switch ws.state {
	case StateConnected:
		return errors.New("connection is already connected")
	case StateConnecting:
		return errors.New("connection is already connecting")
	case StatePending:
	case StateDisconnected:
		return errors.New("connection is disconnected; handles are rebuilt, not reconnected")
	default:
		ws.logger.Warn("BUG: connection is in an unknown state", "state", ws.state)
	}

	ws.state = StateConnecting

	return nil
}

func (ws *Connection) transitionToDisconnecting() error {
	ws.stateLock.Lock()
	defer ws.stateLock.Unlock()

	switch ws.state {
	case StateConnected:
	case StateConnecting:
		return errors.New("connection is connecting, cannot disconnect yet")
	case StateDisconnected:
		return errors.New("connection is already disconnected")
	case StatePending:
		return errors.New("connection is pending, nothing to disconnect")
	default:
		ws.logger.Warn("BUG: connection is in an unknown state", "state", ws.state)
		return errors.New("connection is in an unknown state")
	}

	ws.state = StateDisconnecting

	return nil
}

// connect establishes the websocket connection. It must only be called from
// Connect so that a single goroutine drives the state machine.
func (ws *Connection) connect(ctx context.Context) error {
	conn, res, err := DefaultDialer.DialContext(ctx, fmt.Sprintf("%s/rpc", ws.BaseURL), nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	ws.connLock.Lock()
	defer ws.connLock.Unlock()

	ws.Conn = conn
	ws.connCloseCh = make(chan int)

	// Read messages in the background until connCloseCh is closed or a read
	// error indicates the connection is gone.
	go ws.readLoop()

	return nil
}

// Close closes the websocket connection and stops listening for incoming
// messages.
//
// The context bounds the close-message write; if it expires the connection
// is still torn down locally. The connection is unusable afterwards.
func (ws *Connection) Close(ctx context.Context) error {
	if err := ws.transitionToDisconnecting(); err != nil {
		return err
	}
	defer func() {
		// The connection is gone regardless of whether the close message
		// write succeeded; record that so Send fails fast from now on.
		ws.stateLock.Lock()
		ws.state = StateDisconnected
		ws.stateLock.Unlock()
	}()

	// Stop the readLoop and fail concurrent Sends before they try to write.
	close(ws.connCloseCh)

	ws.connLock.Lock()
	defer ws.connLock.Unlock()

	conn := ws.Conn
	ws.Conn = nil

	writeErr := make(chan error, 1)
	go func() {
		if deadline, ok := ctx.Deadline(); ok {
			if err := conn.SetWriteDeadline(deadline); err != nil {
				writeErr <- fmt.Errorf("close: failed to set write deadline: %w", err)
				return
			}
		}
		writeErr <- conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(constants.CloseMessageCode, ""))
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			// Not a clean close from the server's perspective, but we still
			// tear down the local resources below.
			ws.logger.Error("failed to write close message", "error", err)
		}
	case <-ctx.Done():
	}

	return conn.Close()
}

func (ws *Connection) GetUnmarshaler() codec.Unmarshaler {
	return ws.Unmarshaler
}

// Send issues one RPC and waits for the matching response.
//
// The ctx is wrapped with a timeout if ws.Timeout is set. Set ws.Timeout to 0
// to control cancellation exclusively through the context.
func (ws *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[cbor.RawMessage], error) {
	if ws.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ws.Timeout)
		defer cancel()
	}

	select {
	case <-ws.connCloseCh:
		return nil, ws.closeError()
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	id := uuid.NewString()
	request := &connection.RPCRequest{
		ID:     id,
		Method: method,
		Params: params,
	}

	responseChan, err := ws.CreateResponseChannel(id)
	if err != nil {
		return nil, err
	}
	defer ws.RemoveResponseChannel(id)

	if err := ws.write(request); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, open := <-responseChan:
		if !open {
			return nil, errors.New("response channel closed")
		}

		return &res, nil
	}
}

func (ws *Connection) closeError() error {
	if ws.connCloseError != nil {
		return ws.connCloseError
	}
	return constants.ErrClosed
}

func (ws *Connection) write(v any) error {
	data, err := ws.Marshaler.Marshal(v)
	if err != nil {
		return err
	}

	ws.connLock.Lock()
	defer ws.connLock.Unlock()

	if ws.Conn == nil {
		return constants.ErrClosed
	}
	return ws.Conn.WriteMessage(gorilla.BinaryMessage, data)
}

func (ws *Connection) readLoop() {
	for {
		select {
		case <-ws.connCloseCh:
			return
		default:
			_, data, err := ws.Conn.ReadMessage()
			if err != nil {
				if ws.handleError(err) {
					ws.stateLock.Lock()
					ws.state = StateDisconnected
					ws.stateLock.Unlock()
					ws.logger.Error("readLoop: connection closed", "error", err)
					return
				}
				continue
			}
			go ws.handleResponse(data)
		}
	}
}

// handleError returns true if the error indicates that the connection is
// closed and the readLoop should exit, false otherwise.
func (ws *Connection) handleError(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		ws.connCloseError = net.ErrClosed
		return true
	}
	if gorilla.IsUnexpectedCloseError(err) {
		ws.connCloseError = io.ErrClosedPipe
		return true
	}
	if gorilla.IsCloseError(err, constants.CloseMessageCode) {
		ws.connCloseError = constants.ErrClosed
		return true
	}

	ws.logger.Error(err.Error())
	return false
}

func (ws *Connection) handleResponse(res []byte) {
	var rpcRes connection.RPCResponse[cbor.RawMessage]
	if err := ws.Unmarshaler.Unmarshal(res, &rpcRes); err != nil {
		ws.logger.Error("failed to decode response frame", "error", err)
		return
	}

	if rpcRes.ID == nil || rpcRes.ID == "" {
		ws.logger.Warn("discarding response without an id")
		return
	}

	responseChan, ok := ws.GetResponseChannel(fmt.Sprintf("%v", rpcRes.ID))
	if !ok {
		// The issuing Send already gave up (timeout or cancellation);
		// the response is dropped here.
		ws.logger.Debug("no channel for response id", "id", rpcRes.ID)
		return
	}
	defer close(responseChan)
	responseChan <- rpcRes
}
