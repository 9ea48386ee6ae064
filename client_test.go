package blockpress_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockpress "github.com/gems-gallery/blockpress.go"
	"github.com/gems-gallery/blockpress.go/internal/mock"
	"github.com/gems-gallery/blockpress.go/pkg/auth"
	"github.com/gems-gallery/blockpress.go/pkg/connection"
	"github.com/gems-gallery/blockpress.go/pkg/constants"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
	"github.com/gems-gallery/blockpress.go/pkg/models"
)

func testFactory(t *testing.T, caps blockpress.Capabilities, conn connection.Connection) *blockpress.Factory {
	t.Helper()

	u, err := url.Parse("ws://service.test")
	require.NoError(t, err)

	f, err := blockpress.NewFactory(blockpress.Config{
		URL:          u,
		Capabilities: &caps,
		Logger:       logger.New(slog.NewTextHandler(io.Discard, nil)),
		NewConnection: func(*connection.Config) connection.Connection {
			return conn
		},
	})
	require.NoError(t, err)
	return f
}

func TestBoundHandleAuthenticatesBeforeFirstCall(t *testing.T) {
	ctx := context.Background()
	mc := mock.New()
	mc.Returns(connection.Authenticate, true)
	mc.Returns(connection.GetPosts, []models.Post{})

	f := testFactory(t, blockpress.Capabilities{}, mc)
	c := f.Build(&auth.Identity{Principal: "abc", Token: "tok-1"})

	_, err := c.GetPosts(ctx)
	require.NoError(t, err)

	calls := mc.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, string(connection.Authenticate), calls[0].Method)
	assert.Equal(t, []any{"tok-1"}, calls[0].Params)
	assert.Equal(t, string(connection.GetPosts), calls[1].Method)

	// The identity is bound once per handle, not per call.
	_, err = c.GetPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.CallsTo(connection.Authenticate))
}

func TestAnonymousHandleSkipsAuthentication(t *testing.T) {
	mc := mock.New()
	mc.Returns(connection.GetPosts, []models.Post{})

	f := testFactory(t, blockpress.Capabilities{}, mc)
	c := f.Build(nil)

	_, err := c.GetPosts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, mc.CallsTo(connection.Authenticate))
}

func TestAuthenticationFailureFailsTheCall(t *testing.T) {
	mc := mock.New()
	mc.On(connection.Authenticate, func([]any) (any, *connection.RPCError) {
		return nil, &connection.RPCError{Code: 401, Message: "invalid delegation"}
	})

	f := testFactory(t, blockpress.Capabilities{}, mc)
	c := f.Build(&auth.Identity{Principal: "abc", Token: "tok-1"})

	_, err := c.GetPosts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, &connection.RPCError{})
	assert.Zero(t, mc.CallsTo(connection.GetPosts))
}

func TestCreatePostRequiredResult(t *testing.T) {
	mc := mock.New()
	mc.Returns(connection.CreatePost, uint64(7))

	f := testFactory(t, blockpress.Capabilities{}, mc)
	c := f.Build(nil)

	id, err := c.CreatePost(context.Background(), "t", "<p>b</p>", "general")
	require.NoError(t, err)
	assert.Equal(t, models.PostID(7), id)

	calls := mc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []any{"t", "<p>b</p>", "general"}, calls[0].Params)
}

func TestCreatePostOptionResult(t *testing.T) {
	caps := blockpress.Capabilities{CreatePostReturnsOption: true}

	t.Run("present", func(t *testing.T) {
		mc := mock.New()
		mc.Returns(connection.CreatePost, uint64(9))

		c := testFactory(t, caps, mc).Build(nil)
		id, err := c.CreatePost(context.Background(), "t", "b", "general")
		require.NoError(t, err)
		assert.Equal(t, models.PostID(9), id)
	})

	t.Run("empty option", func(t *testing.T) {
		mc := mock.New()
		mc.Returns(connection.CreatePost, nil)

		c := testFactory(t, caps, mc).Build(nil)
		_, err := c.CreatePost(context.Background(), "t", "b", "general")
		assert.ErrorIs(t, err, blockpress.ErrNoPostID)
	})
}

func TestCreatePostWithAuthorArgument(t *testing.T) {
	caps := blockpress.Capabilities{RequiresAuthorArg: true}

	t.Run("appends the principal", func(t *testing.T) {
		mc := mock.New()
		mc.Returns(connection.Authenticate, true)
		mc.Returns(connection.CreatePost, uint64(3))

		c := testFactory(t, caps, mc).Build(&auth.Identity{Principal: "abc", Token: "tok"})
		_, err := c.CreatePost(context.Background(), "t", "b", "general")
		require.NoError(t, err)

		calls := mc.Calls()
		params := calls[len(calls)-1].Params
		assert.Equal(t, []any{"t", "b", "general", "abc"}, params)
	})

	t.Run("anonymous handle is refused locally", func(t *testing.T) {
		mc := mock.New()

		c := testFactory(t, caps, mc).Build(nil)
		_, err := c.CreatePost(context.Background(), "t", "b", "general")
		assert.ErrorIs(t, err, blockpress.ErrAuthRequired)
		assert.Empty(t, mc.Calls())
	})
}

func TestUpdatePostVerdict(t *testing.T) {
	for _, verdict := range []bool{true, false} {
		mc := mock.New()
		mc.Returns(connection.UpdatePost, verdict)

		c := testFactory(t, blockpress.Capabilities{}, mc).Build(nil)
		ok, err := c.UpdatePost(context.Background(), 4, "t", "b", "general")
		require.NoError(t, err)
		assert.Equal(t, verdict, ok)
	}
}

func TestGetPostAbsent(t *testing.T) {
	mc := mock.New()
	mc.Returns(connection.GetPost, nil)

	c := testFactory(t, blockpress.Capabilities{}, mc).Build(nil)
	p, err := c.GetPost(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestAccountMethodsGateOnCapability(t *testing.T) {
	mc := mock.New()

	c := testFactory(t, blockpress.Capabilities{}, mc).Build(nil)

	_, err := c.CreateUser(context.Background(), "alice")
	assert.ErrorIs(t, err, constants.ErrMethodNotAvailable)

	_, err = c.GetUsername(context.Background())
	assert.ErrorIs(t, err, constants.ErrMethodNotAvailable)

	// Neither gating decision reaches the network.
	assert.Empty(t, mc.Calls())
}

func TestGetUsername(t *testing.T) {
	caps := blockpress.Capabilities{HasAccounts: true}

	t.Run("claimed", func(t *testing.T) {
		mc := mock.New()
		mc.Returns(connection.GetUsername, "alice")

		c := testFactory(t, caps, mc).Build(nil)
		name, err := c.GetUsername(context.Background())
		require.NoError(t, err)
		require.NotNil(t, name)
		assert.Equal(t, "alice", *name)
	})

	t.Run("unclaimed", func(t *testing.T) {
		mc := mock.New()
		mc.Returns(connection.GetUsername, nil)

		c := testFactory(t, caps, mc).Build(nil)
		name, err := c.GetUsername(context.Background())
		require.NoError(t, err)
		assert.Nil(t, name)
	})
}

func TestTransportFailureSurfaces(t *testing.T) {
	mc := mock.New()
	mc.FailWith(connection.GetPosts, errors.New("connection reset"))

	c := testFactory(t, blockpress.Capabilities{}, mc).Build(nil)
	_, err := c.GetPosts(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}
