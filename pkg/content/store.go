// Package content holds the in-memory view of the service's categories and
// posts: the selected-category filter, the current post list, and the fetch
// cycles that keep them consistent with an asynchronous, potentially-failing
// remote service.
package content

import (
	"context"
	"errors"
	"fmt"
	"sync"

	blockpress "github.com/gems-gallery/blockpress.go"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
	"github.com/gems-gallery/blockpress.go/pkg/models"
)

// ErrStale reports that a fetch resolved after a newer one had already been
// rendered and its result was discarded. It is a policy outcome, not a
// user-facing failure.
var ErrStale = errors.New("stale response discarded")

// Store is the content store. Fetches fully replace the held state on
// success and leave it untouched on failure; there is no incremental update.
//
// Every in-flight post fetch carries a sequence number taken at issue time.
// A response older than the currently rendered sequence is discarded, which
// makes the last completed fetch win even when responses arrive out of issue
// order. There is no cancellation of in-flight calls; discarding is the
// substitute.
type Store struct {
	logger logger.Logger

	mu         sync.Mutex
	categories []models.Category
	posts      []models.Post
	selected   *string
	seq        uint64
	rendered   uint64
}

func NewStore(log logger.Logger) *Store {
	return &Store{logger: log}
}

// Categories returns the last successfully loaded category set.
func (s *Store) Categories() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Posts returns the currently rendered post list, in service order.
func (s *Store) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Selected returns the selected-category filter; nil means show all posts.
func (s *Store) Selected() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	sel := *s.selected
	return &sel
}

// LoadCategories fetches and replaces the full category set. On failure the
// previous set stays displayed and the error is surfaced.
func (s *Store) LoadCategories(ctx context.Context, handle *blockpress.Client) error {
	cats, err := handle.GetCategories(ctx)
	if err != nil {
		s.logger.Warn("loading categories failed, keeping previous set", "error", err)
		return fmt.Errorf("load categories: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = cats
	return nil
}

// SelectCategory sets the filter and triggers a post fetch through it.
// A nil category means show all posts.
func (s *Store) SelectCategory(ctx context.Context, handle *blockpress.Client, category *string) error {
	s.mu.Lock()
	if category == nil {
		s.selected = nil
	} else {
		sel := *category
		s.selected = &sel
	}
	s.mu.Unlock()

	return s.LoadPosts(ctx, handle)
}

// LoadPosts fetches the post list: the category-scoped fetch when a filter
// is selected, the full fetch otherwise. The result fully replaces the held
// list; empty results render as nothing, not as an error. On failure the
// previous list is retained and the error surfaced. A response superseded by
// a newer rendered one is dropped with ErrStale.
func (s *Store) LoadPosts(ctx context.Context, handle *blockpress.Client) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	var selected *string
	if s.selected != nil {
		sel := *s.selected
		selected = &sel
	}
	s.mu.Unlock()

	var posts []models.Post
	var err error
	if selected != nil {
		posts, err = handle.GetPostsByCategory(ctx, *selected)
	} else {
		posts, err = handle.GetPosts(ctx)
	}
	if err != nil {
		s.logger.Warn("loading posts failed, keeping previous list", "error", err)
		return fmt.Errorf("load posts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.rendered {
		s.logger.Debug("discarding superseded post fetch", "seq", seq, "rendered", s.rendered)
		return ErrStale
	}
	s.rendered = seq
	s.posts = posts
	return nil
}

// Invalidate marks every in-flight fetch as superseded. The session layer
// calls it on identity transitions so a fetch issued under the previous
// identity cannot land after the switch and display mismatched authorship.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.rendered = s.seq
}
