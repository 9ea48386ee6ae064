// Package compose orchestrates the create/update submission flow: field
// validation, the remote call, and the content refresh that follows a
// successful mutation.
package compose

import (
	"context"
	"fmt"
	"strings"
	"sync"

	blockpress "github.com/gems-gallery/blockpress.go"
	"github.com/gems-gallery/blockpress.go/pkg/content"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
	"github.com/gems-gallery/blockpress.go/pkg/models"
)

// Editor is the rich-text widget boundary. It yields its current content as
// an HTML string on demand and accepts a reset and an initial value.
type Editor interface {
	HTML() string
	SetHTML(s string)
	Reset()
}

// Draft is the composer's transient form state.
type Draft struct {
	// Target is the post being edited; nil means the submission creates a
	// new post.
	Target   *models.PostID
	Title    string
	Category string
}

// Composer drives post creation and editing. On success the draft and the
// editor buffer are cleared and the post list refreshed exactly once; on any
// failure the form state is preserved so the user can retry.
type Composer struct {
	editor Editor
	store  *content.Store
	logger logger.Logger

	mu    sync.Mutex
	draft Draft
}

func New(editor Editor, store *content.Store, log logger.Logger) *Composer {
	return &Composer{
		editor: editor,
		store:  store,
		logger: log,
	}
}

func (c *Composer) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Title = title
}

func (c *Composer) SetCategory(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Category = category
}

// Draft returns a copy of the current form state.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Edit loads an existing post into the form, switching the composer to the
// update path.
func (c *Composer) Edit(post models.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := post.ID
	c.draft = Draft{
		Target:   &id,
		Title:    post.Title,
		Category: post.Category,
	}
	c.editor.SetHTML(post.Body)
}

// Discard clears the form without submitting.
func (c *Composer) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Composer) resetLocked() {
	c.draft = Draft{}
	c.editor.Reset()
}

// Submit validates the draft and sends it through the handle: createPost
// when no target id is held, updatePost otherwise. Validation failures never
// reach the network. An updatePost answered false is ErrUpdateRejected — a
// refusal, not a success, and no refresh is taken from it. After a
// successful mutation the form is cleared and the post list refreshed
// exactly once before Submit returns.
func (c *Composer) Submit(ctx context.Context, handle *blockpress.Client) (models.PostID, error) {
	c.mu.Lock()
	draft := c.draft
	body := c.editor.HTML()
	c.mu.Unlock()

	if err := validate(draft, body); err != nil {
		return 0, err
	}

	var id models.PostID
	if draft.Target == nil {
		created, err := handle.CreatePost(ctx, draft.Title, body, draft.Category)
		if err != nil {
			c.logger.Warn("create post failed, form retained", "error", err)
			return 0, err
		}
		id = created
	} else {
		ok, err := handle.UpdatePost(ctx, *draft.Target, draft.Title, body, draft.Category)
		if err != nil {
			c.logger.Warn("update post failed, form retained", "error", err)
			return 0, err
		}
		if !ok {
			c.logger.Warn("update post refused by service", "id", *draft.Target)
			return 0, fmt.Errorf("update post %d: %w", *draft.Target, blockpress.ErrUpdateRejected)
		}
		id = *draft.Target
	}

	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()

	if err := c.store.LoadPosts(ctx, handle); err != nil {
		// The mutation itself succeeded; the refresh failure is surfaced
		// through the store's logger and the list stays as it was.
		c.logger.Warn("post list refresh after submit failed", "error", err)
	}

	return id, nil
}

func validate(draft Draft, body string) error {
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("%w: title", blockpress.ErrValidation)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: body", blockpress.ErrValidation)
	}
	if strings.TrimSpace(draft.Category) == "" {
		return fmt.Errorf("%w: category", blockpress.ErrValidation)
	}
	return nil
}
