package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handle(t *testing.T, l *FocusLock, ev FocusEvent) LockState {
	t.Helper()
	st, err := l.Handle(ev)
	require.NoError(t, err)
	return st
}

func TestFocusLockAcquireRelease(t *testing.T) {
	l := NewFocusLock()
	l.Register("code-1")

	assert.Equal(t, Idle, handle(t, l, FocusEvent{Type: PointerDown}), "outside any region")
	assert.Equal(t, Locked, handle(t, l, FocusEvent{Type: PointerDown, Target: "code-1"}))
	assert.Equal(t, Interactivity{}, l.Interactivity())

	assert.Equal(t, Locked, handle(t, l, FocusEvent{Type: FocusOut, Target: "elsewhere"}), "exit from a non-holder")
	assert.Equal(t, Idle, handle(t, l, FocusEvent{Type: FocusOut, Target: "code-1"}))
	assert.Equal(t, Interactivity{Pan: true, ZoomDrag: true, NodeDrag: true}, l.Interactivity())
}

func TestFocusLockIgnoresUnregisteredRegions(t *testing.T) {
	l := NewFocusLock()
	assert.Equal(t, Idle, handle(t, l, FocusEvent{Type: KeyDown, Target: "unknown"}))
}

func TestFocusLockHopBetweenRegions(t *testing.T) {
	l := NewFocusLock()
	l.Register("a")
	l.Register("b")

	handle(t, l, FocusEvent{Type: FocusIn, Target: "a"})
	// a -> b: leaving a toward b keeps the lock and hands it to b.
	assert.Equal(t, Locked, handle(t, l, FocusEvent{Type: FocusOut, Target: "a", Related: "b"}))
	assert.Equal(t, Locked, handle(t, l, FocusEvent{Type: FocusIn, Target: "b"}))
	_, holder := l.State()
	assert.Equal(t, "b", holder)

	// Leaving b for the canvas must release, not strand the lock on a.
	assert.Equal(t, Idle, handle(t, l, FocusEvent{Type: FocusOut, Target: "b"}))
}

func TestFocusLockDirectEntryIntoSecondRegion(t *testing.T) {
	l := NewFocusLock()
	l.Register("a")
	l.Register("b")

	handle(t, l, pointerDownIn("a"))
	handle(t, l, pointerDownIn("b"))
	assert.Equal(t, Idle, handle(t, l, FocusEvent{Type: PointerUp, Target: "b"}))
}

func TestFocusLockUnregisterAndReset(t *testing.T) {
	l := NewFocusLock()
	l.Register("a")
	handle(t, l, FocusEvent{Type: KeyDown, Target: "a"})
	l.Unregister("a")
	st, _ := l.State()
	assert.Equal(t, Idle, st)

	l.Register("b")
	handle(t, l, FocusEvent{Type: FocusIn, Target: "b"})
	l.Reset()
	st, _ = l.State()
	assert.Equal(t, Idle, st)
}

func TestFocusLockUnknownEvent(t *testing.T) {
	l := NewFocusLock()
	_, err := l.Handle(FocusEvent{Type: "wheel"})
	assert.Error(t, err)
}

func pointerDownIn(region string) FocusEvent {
	return FocusEvent{Type: PointerDown, Target: region}
}
