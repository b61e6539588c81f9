package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/flowboard/internal/apperr"
	"github.com/starford/flowboard/internal/editor"
	"github.com/starford/flowboard/internal/graph"
	"github.com/starford/flowboard/internal/models"
	"github.com/starford/flowboard/internal/testutil"
)

func TestOpenGetClose(t *testing.T) {
	pub := &testutil.Recorder{}
	m := NewManager(0, pub, testutil.Logger())

	s, err := m.Open()
	require.NoError(t, err)
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	s.Store.AddNode(models.KindFunction, models.Position{})
	assert.Equal(t, 1, m.List()[0].Nodes)

	require.NoError(t, m.Close(s.ID))
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, m.Close(s.ID), apperr.ErrNotFound)

	assert.Equal(t, []string{"viewport.changed", "graph.changed", "session.closed"}, pub.Types(s.ID))
}

func TestCloseReleasesFocusLock(t *testing.T) {
	m := NewManager(0, nil, nil)
	s, err := m.Open()
	require.NoError(t, err)
	s.Editor.RegisterRegion("code")
	_, err = s.Editor.Focus(editor.FocusEvent{Type: editor.FocusIn, Target: "code"})
	require.NoError(t, err)
	require.Equal(t, editor.Locked, s.Editor.FocusStatus().State)

	require.NoError(t, m.Close(s.ID))
	assert.Equal(t, editor.Idle, s.Editor.FocusStatus().State)
}

func TestMaxOpen(t *testing.T) {
	m := NewManager(1, nil, nil)
	_, err := m.Open()
	require.NoError(t, err)
	_, err = m.Open()
	assert.ErrorIs(t, err, apperr.ErrLimit)

	m.CloseAll()
	assert.Empty(t, m.List())
	_, err = m.Open()
	assert.NoError(t, err)
}

func TestSessionsAreIsolated(t *testing.T) {
	m := NewManager(0, nil, nil)
	a, _ := m.Open()
	b, _ := m.Open()
	a.Store.AddNode(models.KindQueue, models.Position{})
	assert.Len(t, a.Store.Snapshot().Nodes, 1)
	assert.Empty(t, b.Store.Snapshot().Nodes)
}

func TestCoordinatorEventsArePublished(t *testing.T) {
	pub := &testutil.Recorder{}
	m := NewManager(0, pub, testutil.Logger())
	s, err := m.Open()
	require.NoError(t, err)

	q := s.Store.AddNode(models.KindQueue, models.Position{})
	d := s.Store.AddNode(models.KindDatabase, models.Position{})
	_, err = s.Editor.Connect(graph.EdgeRequest{Source: q.ID, Target: d.ID})
	require.Error(t, err)

	events := pub.Events(s.ID)
	last := events[len(events)-1]
	assert.Equal(t, editor.EventNotice, last.Type)
	assert.Equal(t, editor.Notice{Level: "warning", Message: graph.ReasonQueueTarget}, last.Data)
}
