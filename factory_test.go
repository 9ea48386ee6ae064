package blockpress_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockpress "github.com/gems-gallery/blockpress.go"
	"github.com/gems-gallery/blockpress.go/internal/fakesvc"
	"github.com/gems-gallery/blockpress.go/pkg/auth"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
	"github.com/gems-gallery/blockpress.go/pkg/models"
)

func TestNewFactoryRequiresURL(t *testing.T) {
	_, err := blockpress.NewFactory(blockpress.Config{})
	assert.Error(t, err)
}

func TestDefaultCapabilitiesFollowDeployment(t *testing.T) {
	assert.Equal(t, blockpress.Capabilities{}, blockpress.DefaultCapabilities(blockpress.Production))

	local := blockpress.DefaultCapabilities(blockpress.Local)
	assert.True(t, local.HasAccounts)
	assert.True(t, local.CreatePostReturnsOption)
	assert.False(t, local.RequiresAuthorArg)
}

func TestLocalDeploymentFetchesTrustOncePerFactory(t *testing.T) {
	ctx := context.Background()
	svc := fakesvc.New()
	u := svc.Start()
	defer svc.Close()

	f, err := blockpress.NewFactory(blockpress.Config{
		URL:        u,
		Deployment: blockpress.Local,
		Logger:     logger.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	c1 := f.Build(nil)
	_, err = c1.GetPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.StatusHits())

	// A rebuilt handle reuses the factory's cached trust material.
	c2 := f.Build(nil)
	_, err = c2.GetPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.StatusHits())

	require.NoError(t, c1.Close(ctx))
	require.NoError(t, c2.Close(ctx))
}

func TestProductionDeploymentNeverFetchesTrust(t *testing.T) {
	ctx := context.Background()
	svc := fakesvc.New()
	u := svc.Start()
	defer svc.Close()

	f, err := blockpress.NewFactory(blockpress.Config{
		URL:        u,
		Deployment: blockpress.Production,
		Logger:     logger.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	c := f.Build(nil)
	_, err = c.GetPosts(ctx)
	require.NoError(t, err)
	assert.Zero(t, svc.StatusHits())

	require.NoError(t, c.Close(ctx))
}

func TestEndToEndAuthenticatedFlow(t *testing.T) {
	ctx := context.Background()
	svc := fakesvc.New()
	svc.AddCategory(models.Category{Name: "general", Description: "anything"})
	svc.RegisterToken("tok-1", "w7x7r-cok77-xa")
	u := svc.Start()
	defer svc.Close()

	f, err := blockpress.NewFactory(blockpress.Config{
		URL:        u,
		Deployment: blockpress.Local,
		Logger:     logger.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	c := f.Build(&auth.Identity{Principal: "w7x7r-cok77-xa", Token: "tok-1"})
	defer c.Close(ctx)

	id, err := c.CreatePost(ctx, "hello", "<p>first</p>", "general")
	require.NoError(t, err)

	post, err := c.GetPost(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "hello", post.Title)
	assert.Equal(t, "w7x7r-cok77-xa", post.Author.Text())

	ok, err := c.UpdatePost(ctx, id, "hello again", "<p>second</p>", "general")
	require.NoError(t, err)
	assert.True(t, ok)

	own, err := c.GetOwnPosts(ctx)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "hello again", own[0].Title)

	ok, err = c.CreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	name, err := c.GetUsername(ctx)
	require.NoError(t, err)
	require.NotNil(t, name)
	assert.Equal(t, "alice", *name)
}
