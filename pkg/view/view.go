// Package view projects client state into a render model. It is a pure
// function of its inputs; all I/O (terminal, editor widget) lives in the
// adapter that consumes the model.
package view

import (
	"time"

	"github.com/gems-gallery/blockpress.go/pkg/models"
	"github.com/gems-gallery/blockpress.go/pkg/session"
)

// State is everything the projection depends on.
type State struct {
	Session    session.State
	Gate       session.GateStatus
	Categories []models.Category
	Posts      []models.Post
	Selected   *string
	Notice     string
}

// CategoryItem is one selectable category row.
type CategoryItem struct {
	Name        string
	Description string
	Selected    bool
}

// PostItem is one rendered post. Body is HTML as stored; the adapter decides
// how to display it.
type PostItem struct {
	ID       models.PostID
	Title    string
	Author   string
	Category string
	Body     string
	Written  time.Time
}

// Model is the render instruction set: which affordances are visible and
// what content to show.
type Model struct {
	ShowLogin          bool
	ShowLogout         bool
	ShowNewPost        bool
	ShowUsernamePrompt bool
	Categories         []CategoryItem
	Posts              []PostItem
	Notice             string
}

// Project derives the render model. Posting affordances gate on
// authentication and on profile completeness where the deployment has
// accounts; a pending username blocks posting behind the username prompt.
func Project(s State) Model {
	authed := s.Session == session.Authenticated

	m := Model{
		ShowLogin:          !authed,
		ShowLogout:         authed,
		ShowNewPost:        authed && s.Gate != session.GateNeedsUsername,
		ShowUsernamePrompt: authed && s.Gate == session.GateNeedsUsername,
		Notice:             s.Notice,
	}

	for _, c := range s.Categories {
		m.Categories = append(m.Categories, CategoryItem{
			Name:        c.Name,
			Description: c.Description,
			Selected:    s.Selected != nil && *s.Selected == c.Name,
		})
	}

	for _, p := range s.Posts {
		m.Posts = append(m.Posts, PostItem{
			ID:       p.ID,
			Title:    p.Title,
			Author:   p.Author.Text(),
			Category: p.Category,
			Body:     p.Body,
			Written:  p.Timestamp.Time(),
		})
	}

	return m
}
