package editor

import "sync"

// MenuKind is the type of context menu.
type MenuKind string

// Menu kinds.
const (
	NodeMenu MenuKind = "node"
	EdgeMenu MenuKind = "edge"
)

// MenuState is an open context menu.
type MenuState struct {
	Kind     MenuKind `json:"kind"`
	TargetID string   `json:"targetId"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
}

// Actions returns the entries the menu offers.
func (m MenuState) Actions() []string {
	if m.Kind == NodeMenu {
		return []string{"duplicate", "delete"}
	}
	return []string{"delete"}
}

// Menu holds at most one open context menu.
type Menu struct {
	mu   sync.Mutex
	open *MenuState
}

// Open shows a menu, replacing whichever menu was open.
func (m *Menu) Open(st MenuState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = &st
}

// Close dismisses the open menu, if any. It reports whether one was open.
func (m *Menu) Close() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.open != nil
	m.open = nil
	return was
}

// Current returns the open menu.
func (m *Menu) Current() (MenuState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open == nil {
		return MenuState{}, false
	}
	return *m.open, true
}

// take returns and closes the open menu in one step.
func (m *Menu) take() (MenuState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open == nil {
		return MenuState{}, false
	}
	st := *m.open
	m.open = nil
	return st, true
}
