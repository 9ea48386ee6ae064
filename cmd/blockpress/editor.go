package main

import "sync"

// textEditor is a plain-text stand-in for the rich-text widget: the terminal
// has no HTML editor, so the body round-trips as the raw string the service
// stores.
type textEditor struct {
	mu  sync.Mutex
	buf []rune
}

func newTextEditor() *textEditor {
	return &textEditor{}
}

func (e *textEditor) HTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.buf)
}

func (e *textEditor) SetHTML(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf = []rune(s)
}

func (e *textEditor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf = nil
}

func (e *textEditor) insert(r rune) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf = append(e.buf, r)
}

func (e *textEditor) backspace() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.buf) > 0 {
		e.buf = e.buf[:len(e.buf)-1]
	}
}
