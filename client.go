package blockpress

import (
	"context"
	"fmt"
	"sync"

	"github.com/gems-gallery/blockpress.go/pkg/auth"
	"github.com/gems-gallery/blockpress.go/pkg/connection"
	"github.com/gems-gallery/blockpress.go/pkg/constants"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
	"github.com/gems-gallery/blockpress.go/pkg/models"
)

// Client is a service handle: the typed procedure surface of the BlockPress
// service bound to one identity (or none, for anonymous reads). A handle is
// never rebound; when the identity changes, the owner builds a new handle
// through the Factory and discards this one.
type Client struct {
	conn       connection.Connection
	caps       Capabilities
	identity   *auth.Identity
	deployment Deployment
	trust      *trustRoot
	httpBase   string
	logger     logger.Logger

	mu      sync.Mutex
	ready   bool
	rootKey []byte
}

// Identity returns the identity the handle is bound to; nil means anonymous.
func (c *Client) Identity() *auth.Identity {
	return c.identity
}

func (c *Client) Capabilities() Capabilities {
	return c.caps
}

// ensure dials the connection, fetches root-trust material on local
// deployments, and binds the handle's identity. It runs at most once per
// handle; every RPC goes through it.
func (c *Client) ensure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return nil
	}

	if c.deployment == Local {
		key, err := c.trust.material(ctx, c.httpBase)
		if err != nil {
			return err
		}
		c.rootKey = key
	}

	if err := c.conn.Connect(ctx); err != nil {
		return err
	}

	if c.identity != nil {
		var res connection.RPCResponse[bool]
		if err := connection.Send(c.conn, ctx, &res, string(connection.Authenticate), c.identity.Token); err != nil {
			return fmt.Errorf("binding identity: %w", err)
		}
		if res.Error != nil {
			return fmt.Errorf("binding identity: %w", res.Error)
		}
	}

	c.ready = true
	return nil
}

// Close tears down the handle's connection. A handle that never issued a
// call closes trivially.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return nil
	}
	c.ready = false
	return c.conn.Close(ctx)
}

func send[T any](c *Client, ctx context.Context, method connection.RPCFunction, params ...any) (*T, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, fmt.Errorf("blockpress: %s: %w", method, err)
	}

	var res connection.RPCResponse[T]
	if err := connection.Send(c.conn, ctx, &res, string(method), params...); err != nil {
		return nil, fmt.Errorf("blockpress: %s: %w", method, err)
	}
	if res.Error != nil {
		return nil, fmt.Errorf("blockpress: %s: %w", method, res.Error)
	}

	return res.Result, nil
}

// CreatePost creates a new post and returns its service-assigned id.
func (c *Client) CreatePost(ctx context.Context, title, body, category string) (models.PostID, error) {
	params := []any{title, body, category}
	if c.caps.RequiresAuthorArg {
		if c.identity == nil {
			return 0, fmt.Errorf("blockpress: %s: %w", connection.CreatePost, ErrAuthRequired)
		}
		params = append(params, c.identity.Principal)
	}

	if c.caps.CreatePostReturnsOption {
		res, err := send[*models.PostID](c, ctx, connection.CreatePost, params...)
		if err != nil {
			return 0, err
		}
		if res == nil || *res == nil {
			return 0, fmt.Errorf("blockpress: %s: %w", connection.CreatePost, ErrNoPostID)
		}
		return **res, nil
	}

	res, err := send[models.PostID](c, ctx, connection.CreatePost, params...)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, fmt.Errorf("blockpress: %s: %w", connection.CreatePost, ErrNoPostID)
	}
	return *res, nil
}

// UpdatePost rewrites the mutable fields of an existing post. The returned
// flag is the service's verdict: false means the change was refused, which
// is a reported failure, not success.
func (c *Client) UpdatePost(ctx context.Context, id models.PostID, title, body, category string) (bool, error) {
	res, err := send[bool](c, ctx, connection.UpdatePost, id, title, body, category)
	if err != nil {
		return false, err
	}
	if res == nil {
		return false, fmt.Errorf("blockpress: %s: %w", connection.UpdatePost, constants.ErrInvalidResponse)
	}
	return *res, nil
}

// GetPosts returns every post, in the order the service keeps them. The
// client never re-sorts.
func (c *Client) GetPosts(ctx context.Context) ([]models.Post, error) {
	res, err := send[[]models.Post](c, ctx, connection.GetPosts)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return *res, nil
}

// GetPostsByCategory returns the posts the service reports for the category.
func (c *Client) GetPostsByCategory(ctx context.Context, category string) ([]models.Post, error) {
	res, err := send[[]models.Post](c, ctx, connection.GetPostsByCategory, category)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return *res, nil
}

// GetOwnPosts returns the posts authored by the handle's identity.
func (c *Client) GetOwnPosts(ctx context.Context) ([]models.Post, error) {
	res, err := send[[]models.Post](c, ctx, connection.GetOwnPosts)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return *res, nil
}

// GetPost returns a single post, or nil when the id is unknown.
func (c *Client) GetPost(ctx context.Context, id models.PostID) (*models.Post, error) {
	res, err := send[*models.Post](c, ctx, connection.GetPost, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return *res, nil
}

// GetCategories returns the full category set.
func (c *Client) GetCategories(ctx context.Context) ([]models.Category, error) {
	res, err := send[[]models.Category](c, ctx, connection.GetCategories)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return *res, nil
}

// CreateUser claims a username for the handle's identity. Only available on
// deployments with accounts. A false result means the name was refused.
func (c *Client) CreateUser(ctx context.Context, username string) (bool, error) {
	if !c.caps.HasAccounts {
		return false, fmt.Errorf("blockpress: %s: %w", connection.CreateUser, constants.ErrMethodNotAvailable)
	}

	res, err := send[bool](c, ctx, connection.CreateUser, username)
	if err != nil {
		return false, err
	}
	if res == nil {
		return false, fmt.Errorf("blockpress: %s: %w", connection.CreateUser, constants.ErrInvalidResponse)
	}
	return *res, nil
}

// GetUsername returns the username of the handle's identity, or nil when none
// has been claimed. Only available on deployments with accounts.
func (c *Client) GetUsername(ctx context.Context) (*string, error) {
	if !c.caps.HasAccounts {
		return nil, fmt.Errorf("blockpress: %s: %w", connection.GetUsername, constants.ErrMethodNotAvailable)
	}

	res, err := send[*string](c, ctx, connection.GetUsername)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return *res, nil
}
