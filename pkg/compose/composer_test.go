package compose

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
	"github.com/gems-gallery/blockpress.go/pkg/connection"
	"github.com/gems-gallery/blockpress.go/pkg/content"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
	"github.com/gems-gallery/blockpress.go/pkg/models"
)

type stubEditor struct {
	html   string
	resets int
}

func (e *stubEditor) HTML() string     { return e.html }
func (e *stubEditor) SetHTML(s string) { e.html = s }
func (e *stubEditor) Reset()           { e.html = ""; e.resets++ }

func testLogger() logger.Logger {
	return logger.New(slog.NewTextHandler(io.Discard, nil))
}

func testHandle(t *testing.T, mc *mock.Connection) *blockpress.Client {
	t.Helper()

	u, err := url.Parse("ws://service.test")
	require.NoError(t, err)

	f, err := blockpress.NewFactory(blockpress.Config{
		URL:    u,
		Logger: testLogger(),
		NewConnection: func(*connection.Config) connection.Connection {
			return mc
		},
	})
	require.NoError(t, err)
	return f.Build(nil)
}

func newComposer(editor *stubEditor) *Composer {
	return New(editor, content.NewStore(testLogger()), testLogger())
}

func TestSubmitValidationNeverReachesTheNetwork(t *testing.T) {
	ctx := context.Background()
	mc := mock.New()

	for name, setup := range map[string]func(*Composer, *stubEditor){
		"missing title": func(c *Composer, e *stubEditor) {
			e.html = "<p>body</p>"
			c.SetCategory("general")
		},
		"missing body": func(c *Composer, e *stubEditor) {
			c.SetTitle("title")
			c.SetCategory("general")
		},
		"missing category": func(c *Composer, e *stubEditor) {
			c.SetTitle("title")
			e.html = "<p>body</p>"
		},
		"whitespace only": func(c *Composer, e *stubEditor) {
			c.SetTitle("   ")
			e.html = "  \n "
			c.SetCategory(" ")
		},
	} {
		t.Run(name, func(t *testing.T) {
			editor := &stubEditor{}
			c := newComposer(editor)
			setup(c, editor)

			_, err := c.Submit(ctx, testHandle(t, mc))
			assert.ErrorIs(t, err, blockpress.ErrValidation)
		})
	}

	assert.Empty(t, mc.Calls())
}

func TestSubmitCreatesAndRefreshesOnce(t *testing.T) {
	ctx := context.Background()
	mc := mock.New()
	mc.Returns(connection.CreatePost, uint64(5))
	mc.Returns(connection.GetPosts, []models.Post{{ID: 5, Title: "title"}})

	editor := &stubEditor{html: "<p>body</p>"}
	store := content.NewStore(testLogger())
	c := New(editor, store, testLogger())
	c.SetTitle("title")
	c.SetCategory("general")

	id, err := c.Submit(ctx, testHandle(t, mc))
	require.NoError(t, err)
	assert.Equal(t, models.PostID(5), id)

	assert.Equal(t, 1, mc.CallsTo(connection.CreatePost))
	assert.Equal(t, 1, mc.CallsTo(connection.GetPosts))
	assert.Len(t, store.Posts(), 1)

	// The form is cleared for the next post.
	assert.Equal(t, Draft{}, c.Draft())
	assert.Equal(t, 1, editor.resets)
}

func TestSubmitUpdatePath(t *testing.T) {
	ctx := context.Background()
	mc := mock.New()
	mc.Returns(connection.UpdatePost, true)
	mc.Returns(connection.GetPosts, []models.Post{})

	editor := &stubEditor{}
	c := newComposer(editor)
	c.Edit(models.Post{ID: 9, Title: "old title", Body: "<p>old</p>", Category: "general"})

	assert.Equal(t, "<p>old</p>", editor.html)
	require.NotNil(t, c.Draft().Target)

	c.SetTitle("new title")
	id, err := c.Submit(ctx, testHandle(t, mc))
	require.NoError(t, err)
	assert.Equal(t, models.PostID(9), id)

	calls := mc.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, []any{models.PostID(9), "new title", "<p>old</p>", "general"}, calls[0].Params)
	assert.Zero(t, mc.CallsTo(connection.CreatePost))
}

func TestSubmitRefusedUpdateKeepsTheForm(t *testing.T) {
	ctx := context.Background()
	mc := mock.New()
	mc.Returns(connection.UpdatePost, false)

	editor := &stubEditor{}
	c := newComposer(editor)
	c.Edit(models.Post{ID: 9, Title: "title", Body: "<p>body</p>", Category: "general"})

	_, err := c.Submit(ctx, testHandle(t, mc))
	assert.ErrorIs(t, err, blockpress.ErrUpdateRejected)

	// A refusal is not a success: no refresh, and the form survives for a retry.
	assert.Zero(t, mc.CallsTo(connection.GetPosts))
	require.NotNil(t, c.Draft().Target)
	assert.Equal(t, "title", c.Draft().Title)
	assert.Equal(t, "<p>body</p>", editor.html)
	assert.Zero(t, editor.resets)
}

func TestSubmitTransportFailureKeepsTheForm(t *testing.T) {
	ctx := context.Background()
	mc := mock.New()
	mc.FailWith(connection.CreatePost, errors.New("connection reset"))

	editor := &stubEditor{html: "<p>draft body</p>"}
	c := newComposer(editor)
	c.SetTitle("draft title")
	c.SetCategory("general")

	_, err := c.Submit(ctx, testHandle(t, mc))
	require.Error(t, err)

	assert.Equal(t, "draft title", c.Draft().Title)
	assert.Equal(t, "<p>draft body</p>", editor.html)

	// Retry succeeds with the same form once the service is reachable again.
	mc2 := mock.New()
	mc2.Returns(connection.CreatePost, uint64(11))
	mc2.Returns(connection.GetPosts, []models.Post{})

	id, err := c.Submit(ctx, testHandle(t, mc2))
	require.NoError(t, err)
	assert.Equal(t, models.PostID(11), id)
}

func TestSubmitSucceedsEvenWhenRefreshFails(t *testing.T) {
	ctx := context.Background()
	mc := mock.New()
	mc.Returns(connection.CreatePost, uint64(5))
	mc.FailWith(connection.GetPosts, errors.New("unreachable"))

	editor := &stubEditor{html: "<p>body</p>"}
	c := newComposer(editor)
	c.SetTitle("title")
	c.SetCategory("general")

	id, err := c.Submit(ctx, testHandle(t, mc))
	require.NoError(t, err)
	assert.Equal(t, models.PostID(5), id)
}

func TestDiscardClearsTheForm(t *testing.T) {
	editor := &stubEditor{}
	c := newComposer(editor)
	c.Edit(models.Post{ID: 2, Title: "t", Body: "<p>b</p>", Category: "general"})

	c.Discard()
	assert.Equal(t, Draft{}, c.Draft())
	assert.Equal(t, "", editor.html)
}
