package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gems-gallery/blockpress.go/pkg/compose"
	"github.com/gems-gallery/blockpress.go/pkg/content"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
	"github.com/gems-gallery/blockpress.go/pkg/models"
	"github.com/gems-gallery/blockpress.go/pkg/session"
	"github.com/gems-gallery/blockpress.go/pkg/view"
)

const rpcTimeout = 30 * time.Second

type mode int

const (
	modeBrowse mode = iota
	modeCompose
	modeUsername
)

type field int

const (
	fieldTitle field = iota
	fieldCategory
	fieldBody
)

type (
	transitionMsg struct{ state session.State }
	restoredMsg   struct{ err error }
	sessionOpMsg  struct{ err error }
	contentMsg    struct{ err error }
	gateMsg       struct {
		status session.GateStatus
		err    error
	}
	submitMsg struct {
		id  models.PostID
		err error
	}
	usernameMsg struct{ err error }
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Underline(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
)

type app struct {
	manager  *session.Manager
	gate     *session.Gate
	store    *content.Store
	composer *compose.Composer
	editor   *textEditor
	log      logger.Logger

	mode       mode
	gateStatus session.GateStatus
	notice     string
	busy       bool

	// browse state
	cursor   int // index into the rendered post list
	category int // 0 = all, 1..n = category index+1

	// compose state
	focus field

	// username prompt state
	username string

	width, height int
}

func newApp(manager *session.Manager, gate *session.Gate, store *content.Store, composer *compose.Composer, editor *textEditor, log logger.Logger) *app {
	return &app{
		manager:  manager,
		gate:     gate,
		store:    store,
		composer: composer,
		editor:   editor,
		log:      log,
	}
}

func (a *app) Init() tea.Cmd {
	return a.restoreCmd()
}

func (a *app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case transitionMsg:
		// The handle is already rebound; refresh everything that depends on
		// the identity.
		return a, tea.Batch(a.loadContentCmd(), a.evaluateGateCmd())

	case restoredMsg:
		if msg.err != nil {
			a.notice = msg.err.Error()
		}
		return a, nil

	case sessionOpMsg:
		a.busy = false
		if msg.err != nil {
			a.notice = msg.err.Error()
		} else {
			a.notice = ""
		}
		return a, nil

	case contentMsg:
		if msg.err != nil {
			a.notice = msg.err.Error()
		}
		a.clampCursor()
		return a, nil

	case gateMsg:
		if msg.err == nil {
			a.gateStatus = msg.status
		}
		if a.gateStatus == session.GateNeedsUsername && a.mode == modeBrowse {
			a.mode = modeUsername
		}
		return a, nil

	case submitMsg:
		a.busy = false
		if msg.err != nil {
			a.notice = msg.err.Error()
			return a, nil
		}
		a.notice = fmt.Sprintf("post %d saved", msg.id)
		a.mode = modeBrowse
		return a, nil

	case usernameMsg:
		a.busy = false
		if msg.err != nil {
			a.notice = msg.err.Error()
			return a, nil
		}
		a.notice = ""
		a.username = ""
		a.mode = modeBrowse
		return a, a.evaluateGateCmd()
	}

	return a, nil
}

func (a *app) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	switch a.mode {
	case modeCompose:
		return a.handleComposeKey(msg)
	case modeUsername:
		return a.handleUsernameKey(msg)
	}
	return a.handleBrowseKey(msg)
}

func (a *app) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := a.projected()

	switch msg.String() {
	case "q":
		return a, tea.Quit

	case "l":
		if m.ShowLogin && !a.busy {
			a.busy = true
			a.notice = "logging in..."
			return a, a.loginCmd()
		}

	case "L":
		if m.ShowLogout && !a.busy {
			a.busy = true
			return a, a.logoutCmd()
		}

	case "r":
		return a, tea.Batch(a.loadContentCmd(), a.evaluateGateCmd())

	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}

	case "down", "j":
		a.cursor++
		a.clampCursor()

	case "left", "h":
		if a.category > 0 {
			a.category--
			return a, a.selectCategoryCmd()
		}

	case "tab", "right":
		a.category++
		if a.category > len(m.Categories) {
			a.category = 0
		}
		return a, a.selectCategoryCmd()

	case "n":
		if m.ShowNewPost {
			a.composer.Discard()
			a.mode = modeCompose
			a.focus = fieldTitle
			a.notice = ""
		}

	case "e":
		if m.ShowNewPost {
			posts := a.store.Posts()
			if a.cursor < len(posts) {
				a.composer.Edit(posts[a.cursor])
				a.mode = modeCompose
				a.focus = fieldTitle
				a.notice = ""
			}
		}

	case "u":
		if m.ShowUsernamePrompt {
			a.mode = modeUsername
		}
	}

	return a, nil
}

func (a *app) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.composer.Discard()
		a.mode = modeBrowse
		return a, nil

	case tea.KeyCtrlS:
		if a.busy {
			return a, nil
		}
		a.busy = true
		a.notice = "submitting..."
		return a, a.submitCmd()

	case tea.KeyTab:
		a.focus = (a.focus + 1) % 3
		return a, nil

	case tea.KeyEnter:
		if a.focus == fieldBody {
			a.editor.insert('\n')
		} else {
			a.focus++
		}
		return a, nil

	case tea.KeyBackspace:
		switch a.focus {
		case fieldTitle:
			a.composer.SetTitle(trimLast(a.composer.Draft().Title))
		case fieldCategory:
			a.composer.SetCategory(trimLast(a.composer.Draft().Category))
		case fieldBody:
			a.editor.backspace()
		}
		return a, nil

	case tea.KeyRunes, tea.KeySpace:
		for _, r := range runesOf(msg) {
			switch a.focus {
			case fieldTitle:
				a.composer.SetTitle(a.composer.Draft().Title + string(r))
			case fieldCategory:
				a.composer.SetCategory(a.composer.Draft().Category + string(r))
			case fieldBody:
				a.editor.insert(r)
			}
		}
		return a, nil
	}

	return a, nil
}

func (a *app) handleUsernameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.mode = modeBrowse
		return a, nil

	case tea.KeyEnter:
		if a.busy {
			return a, nil
		}
		a.busy = true
		return a, a.createUsernameCmd(a.username)

	case tea.KeyBackspace:
		a.username = trimLast(a.username)
		return a, nil

	case tea.KeyRunes, tea.KeySpace:
		a.username += string(runesOf(msg))
		return a, nil
	}

	return a, nil
}

func (a *app) restoreCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		_, err := a.manager.Restore(ctx)
		return restoredMsg{err: err}
	}
}

func (a *app) loginCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		_, err := a.manager.Login(ctx)
		return sessionOpMsg{err: err}
	}
}

func (a *app) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		_, err := a.manager.Logout(ctx)
		return sessionOpMsg{err: err}
	}
}

func (a *app) loadContentCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()

		handle := a.manager.Handle()
		if handle == nil {
			return contentMsg{}
		}
		if err := a.store.LoadCategories(ctx, handle); err != nil {
			return contentMsg{err: err}
		}
		err := a.store.LoadPosts(ctx, handle)
		if errors.Is(err, content.ErrStale) {
			err = nil
		}
		return contentMsg{err: err}
	}
}

func (a *app) selectCategoryCmd() tea.Cmd {
	var sel *string
	if a.category > 0 {
		cats := a.store.Categories()
		if a.category-1 < len(cats) {
			name := cats[a.category-1].Name
			sel = &name
		}
	}
	a.cursor = 0

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()

		handle := a.manager.Handle()
		if handle == nil {
			return contentMsg{}
		}
		err := a.store.SelectCategory(ctx, handle, sel)
		if errors.Is(err, content.ErrStale) {
			err = nil
		}
		return contentMsg{err: err}
	}
}

func (a *app) evaluateGateCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		status, err := a.gate.Evaluate(ctx, a.manager.Handle())
		return gateMsg{status: status, err: err}
	}
}

func (a *app) submitCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		id, err := a.composer.Submit(ctx, a.manager.Handle())
		return submitMsg{id: id, err: err}
	}
}

func (a *app) createUsernameCmd(name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		err := a.gate.CreateUsername(ctx, a.manager.Handle(), name)
		return usernameMsg{err: err}
	}
}

func (a *app) projected() view.Model {
	return view.Project(view.State{
		Session:    a.manager.State(),
		Gate:       a.gateStatus,
		Categories: a.store.Categories(),
		Posts:      a.store.Posts(),
		Selected:   a.store.Selected(),
		Notice:     a.notice,
	})
}

func (a *app) clampCursor() {
	n := len(a.store.Posts())
	if n == 0 {
		a.cursor = 0
		return
	}
	if a.cursor >= n {
		a.cursor = n - 1
	}
}

func (a *app) View() string {
	m := a.projected()

	var b strings.Builder
	b.WriteString(headerStyle.Render("blockpress"))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(a.manager.State().String()))
	b.WriteString("\n\n")

	switch a.mode {
	case modeCompose:
		a.viewCompose(&b)
	case modeUsername:
		a.viewUsername(&b)
	default:
		a.viewBrowse(&b, m)
	}

	if m.Notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.Notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(a.helpLine(m)))
	return b.String()
}

func (a *app) viewBrowse(b *strings.Builder, m view.Model) {
	all := "all"
	if a.category == 0 {
		all = selectedStyle.Render(all)
	}
	row := []string{all}
	for _, c := range m.Categories {
		name := c.Name
		if c.Selected {
			name = selectedStyle.Render(name)
		}
		row = append(row, name)
	}
	b.WriteString(strings.Join(row, "  "))
	b.WriteString("\n\n")

	if len(m.Posts) == 0 {
		b.WriteString(dimStyle.Render("no posts"))
		b.WriteString("\n")
		return
	}

	for i, p := range m.Posts {
		marker := "  "
		if i == a.cursor {
			marker = cursorStyle.Render("> ")
		}
		b.WriteString(marker)
		b.WriteString(titleStyle.Render(p.Title))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %s · %s", p.Author, p.Category, p.Written.Format("2006-01-02"))))
		b.WriteString("\n")
		if i == a.cursor {
			for _, line := range strings.Split(p.Body, "\n") {
				b.WriteString("    " + line + "\n")
			}
		}
	}
}

func (a *app) viewCompose(b *strings.Builder) {
	draft := a.composer.Draft()

	label := func(f field, name, val string) {
		prefix := "  "
		if a.focus == f {
			prefix = cursorStyle.Render("> ")
		}
		b.WriteString(prefix + name + ": " + val + "\n")
	}

	action := "new post"
	if draft.Target != nil {
		action = fmt.Sprintf("editing post %d", *draft.Target)
	}
	b.WriteString(titleStyle.Render(action))
	b.WriteString("\n\n")
	label(fieldTitle, "title", draft.Title)
	label(fieldCategory, "category", draft.Category)
	label(fieldBody, "body", "")
	for _, line := range strings.Split(a.editor.HTML(), "\n") {
		b.WriteString("    " + line + "\n")
	}
}

func (a *app) viewUsername(b *strings.Builder) {
	b.WriteString(titleStyle.Render("choose a username"))
	b.WriteString("\n\n  ")
	b.WriteString(a.username)
	b.WriteString(cursorStyle.Render("_"))
	b.WriteString("\n")
}

func (a *app) helpLine(m view.Model) string {
	switch a.mode {
	case modeCompose:
		return "tab: next field · ctrl+s: submit · esc: discard"
	case modeUsername:
		return "enter: claim · esc: back"
	}

	parts := []string{"tab: category", "r: refresh"}
	if m.ShowLogin {
		parts = append(parts, "l: login")
	}
	if m.ShowLogout {
		parts = append(parts, "L: logout")
	}
	if m.ShowNewPost {
		parts = append(parts, "n: new", "e: edit")
	}
	if m.ShowUsernamePrompt {
		parts = append(parts, "u: username")
	}
	parts = append(parts, "q: quit")
	return strings.Join(parts, " · ")
}

func trimLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

func runesOf(msg tea.KeyMsg) []rune {
	if msg.Type == tea.KeySpace {
		return []rune{' '}
	}
	return msg.Runes
}
