package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const delegationFileMode = 0o600

// LoginFlow runs the external delegation protocol and yields the resulting
// delegation token. How consent is gathered is up to the implementation; the
// flow must resolve exactly once per call.
type LoginFlow func(ctx context.Context, opts LoginOptions) (string, error)

// StoredClient is a Client that persists the delegation token on disk so a
// session survives process restarts. The login flow itself is injected.
type StoredClient struct {
	mu    sync.Mutex
	path  string
	flow  LoginFlow
	ident *Identity
	now   func() time.Time
}

func NewStoredClient(path string, flow LoginFlow) *StoredClient {
	return &StoredClient{
		path: path,
		flow: flow,
		now:  time.Now,
	}
}

// Load reads a previously persisted delegation, if any. A missing file or a
// lapsed delegation leaves the client anonymous; neither is an error.
func (c *StoredClient) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading delegation: %w", err)
	}

	id, err := ValidIdentityFromToken(string(data), c.now())
	if err != nil {
		return err
	}
	c.ident = id
	return nil
}

func (c *StoredClient) Login(ctx context.Context, opts LoginOptions) (*Identity, error) {
	token, err := c.flow(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	id, err := IdentityFromToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if id.Expired(c.now()) {
		return nil, fmt.Errorf("%w: provider returned an expired delegation", ErrProvider)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return nil, fmt.Errorf("persisting delegation: %w", err)
	}
	if err := os.WriteFile(c.path, []byte(token), delegationFileMode); err != nil {
		return nil, fmt.Errorf("persisting delegation: %w", err)
	}

	c.ident = id
	return id, nil
}

// Logout clears the delegation. It succeeds even when no session is active.
func (c *StoredClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ident = nil
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing delegation: %w", err)
	}
	return nil
}

func (c *StoredClient) IsAuthenticated(ctx context.Context) bool {
	return c.Identity(ctx) != nil
}

func (c *StoredClient) Identity(ctx context.Context) *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ident != nil && c.ident.Expired(c.now()) {
		c.ident = nil
	}
	return c.ident
}
