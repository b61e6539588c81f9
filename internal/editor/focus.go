// Package editor coordinates user interaction with one mounted workflow
// editor: palette drops, connections, context menus, the viewport and the
// focus lock that freezes the canvas while an embedded code editor is in use.
package editor

import (
	"fmt"
	"sync"

	"github.com/starford/flowboard/internal/apperr"
)

// LockState is the state of the canvas focus lock.
type LockState string

// Lock states.
const (
	Idle   LockState = "idle"
	Locked LockState = "locked"
)

// FocusEventType is the kind of pointer, key or focus event reported by
// the presentation layer.
type FocusEventType string

// Focus event types. The first three can acquire the lock, the last two
// can release it.
const (
	PointerDown FocusEventType = "pointerdown"
	KeyDown     FocusEventType = "keydown"
	FocusIn     FocusEventType = "focusin"
	PointerUp   FocusEventType = "pointerup"
	FocusOut    FocusEventType = "focusout"
)

// FocusEvent is a UI event translated to region ids. Target is the
// region the event originated in ("" when outside every region); Related
// is the region receiving focus next, if any.
type FocusEvent struct {
	Type    FocusEventType `json:"type"`
	Target  string         `json:"target,omitempty"`
	Related string         `json:"related,omitempty"`
}

// Interactivity reports which canvas gestures are currently enabled.
type Interactivity struct {
	Pan      bool `json:"pan"`
	ZoomDrag bool `json:"zoomDrag"`
	NodeDrag bool `json:"nodeDrag"`
}

// FocusLock arbitrates canvas interactivity between the canvas and the
// registered editable regions. At most one region holds the lock.
type FocusLock struct {
	mu      sync.Mutex
	regions map[string]struct{}
	holder  string
}

// NewFocusLock returns an idle lock with no regions.
func NewFocusLock() *FocusLock {
	return &FocusLock{regions: make(map[string]struct{})}
}

// Register makes region eligible to take the lock.
func (l *FocusLock) Register(region string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.regions[region] = struct{}{}
}

// Unregister removes region. If it held the lock the canvas is released.
func (l *FocusLock) Unregister(region string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.regions, region)
	if l.holder == region {
		l.holder = ""
	}
}

// Handle applies ev and returns the resulting state.
func (l *FocusLock) Handle(ev FocusEvent) (LockState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch ev.Type {
	case PointerDown, KeyDown, FocusIn:
		if !l.registered(ev.Target) {
			break
		}
		// Also covers focus hopping straight into a second region.
		l.holder = ev.Target
	case PointerUp, FocusOut:
		if l.holder == "" {
			break
		}
		if l.registered(ev.Related) {
			l.holder = ev.Related
			break
		}
		if ev.Target == l.holder {
			l.holder = ""
		}
	default:
		return l.stateLocked(), fmt.Errorf("unknown focus event type %q: %w", ev.Type, apperr.ErrInvalid)
	}
	return l.stateLocked(), nil
}

// Reset releases the lock unconditionally.
func (l *FocusLock) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holder = ""
}

// State returns the current state and the region holding the lock.
func (l *FocusLock) State() (LockState, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked(), l.holder
}

// Interactivity returns the gestures allowed in the current state.
func (l *FocusLock) Interactivity() Interactivity {
	st, _ := l.State()
	free := st == Idle
	return Interactivity{Pan: free, ZoomDrag: free, NodeDrag: free}
}

func (l *FocusLock) registered(region string) bool {
	if region == "" {
		return false
	}
	_, ok := l.regions[region]
	return ok
}

func (l *FocusLock) stateLocked() LockState {
	if l.holder == "" {
		return Idle
	}
	return Locked
}
