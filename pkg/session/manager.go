// Package session owns the authenticated-identity lifecycle and the single
// service handle bound to it. The Manager is the only writer of the handle;
// every other component re-reads the current handle instead of caching it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	blockpress "github.com/gems-gallery/blockpress.go"
	"github.com/gems-gallery/blockpress.go/pkg/auth"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
)

// State is the session state. Uninitialized is transient and exited exactly
// once by Restore; afterwards the session moves between Anonymous and
// Authenticated via Login and Logout only.
type State int

const (
	Uninitialized State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

const staleHandleCloseTimeout = 5 * time.Second

// Manager drives the session state machine and rebinds the service handle on
// every successful transition. The rebind completes before the transition is
// observable, so a dependent fetch issued afterwards always sees the new
// handle.
type Manager struct {
	provider    auth.Client
	factory     *blockpress.Factory
	providerURL string
	logger      logger.Logger

	mu     sync.Mutex
	state  State
	handle *blockpress.Client

	onTransition func(State, *blockpress.Client)
}

func NewManager(provider auth.Client, factory *blockpress.Factory, providerURL string, log logger.Logger) *Manager {
	return &Manager{
		provider:    provider,
		factory:     factory,
		providerURL: providerURL,
		logger:      log,
		state:       Uninitialized,
	}
}

// SetOnTransition registers a hook invoked after every successful transition,
// with the new state and the freshly bound handle. The hook runs outside the
// manager's lock; it is where dependent refreshes (profile gate, content
// store) are wired in.
func (m *Manager) SetOnTransition(fn func(State, *blockpress.Client)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = fn
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Handle returns the currently bound service handle. Callers issue one call
// per read and re-read for the next; holding a handle across a transition
// leaves them with a closed one.
func (m *Manager) Handle() *blockpress.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Restore checks for a previously established delegation. The absence of a
// prior session is the normal Anonymous outcome, not an error. Calling
// Restore again after initialization returns the current state unchanged.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.state != Uninitialized {
		s := m.state
		m.mu.Unlock()
		return s, nil
	}

	id := m.provider.Identity(ctx)
	next := Anonymous
	if id != nil {
		next = Authenticated
	}
	handle := m.rebindLocked(next, id)
	m.mu.Unlock()

	m.logger.Info("session restored", "state", next.String())
	m.notify(next, handle)
	return next, nil
}

// Login runs the delegation flow. On provider failure the prior state is
// left untouched; there is no partial authentication. Logging in while
// already authenticated is a no-op.
func (m *Manager) Login(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.state == Authenticated {
		m.mu.Unlock()
		return Authenticated, nil
	}
	m.mu.Unlock()

	// The delegation flow can take arbitrarily long (it waits on user
	// consent), so it runs outside the lock. The state is re-checked after.
	id, err := m.provider.Login(ctx, auth.LoginOptions{ProviderURL: m.providerURL})
	if err != nil {
		m.logger.Warn("login failed", "error", err)
		return m.State(), fmt.Errorf("login: %w", err)
	}

	m.mu.Lock()
	handle := m.rebindLocked(Authenticated, id)
	m.mu.Unlock()

	m.logger.Info("session authenticated", "principal", id.Principal)
	m.notify(Authenticated, handle)
	return Authenticated, nil
}

// Logout clears the delegation and rebinds an anonymous handle. It succeeds
// even when no session is active.
func (m *Manager) Logout(ctx context.Context) (State, error) {
	if err := m.provider.Logout(ctx); err != nil {
		m.logger.Warn("logout failed", "error", err)
		return m.State(), fmt.Errorf("logout: %w", err)
	}

	m.mu.Lock()
	handle := m.rebindLocked(Anonymous, nil)
	m.mu.Unlock()

	m.logger.Info("session cleared")
	m.notify(Anonymous, handle)
	return Anonymous, nil
}

// rebindLocked swaps in a freshly built handle for the identity and closes
// the previous one in the background. Stale handles fail loudly after the
// close rather than silently serving the old identity.
func (m *Manager) rebindLocked(next State, id *auth.Identity) *blockpress.Client {
	old := m.handle
	m.handle = m.factory.Build(id)
	m.state = next

	if old != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), staleHandleCloseTimeout)
			defer cancel()
			if err := old.Close(ctx); err != nil {
				m.logger.Debug("closing stale handle", "error", err)
			}
		}()
	}

	return m.handle
}

func (m *Manager) notify(next State, handle *blockpress.Client) {
	m.mu.Lock()
	fn := m.onTransition
	m.mu.Unlock()

	if fn != nil {
		fn(next, handle)
	}
}
