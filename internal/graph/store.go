package graph

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/flowboard/internal/apperr"
	"github.com/starford/flowboard/internal/models"
)

// DuplicateOffset is how far a duplicated node is shifted on both axes.
const DuplicateOffset = 20

// ChangeType names a store mutation.
type ChangeType string

// Change types.
const (
	NodeAdded    ChangeType = "node.added"
	NodeDeleted  ChangeType = "node.deleted"
	NodeUpdated  ChangeType = "node.updated"
	NodeMoved    ChangeType = "node.moved"
	NodeSelected ChangeType = "node.selected"
	EdgeAdded    ChangeType = "edge.added"
	EdgeDeleted  ChangeType = "edge.deleted"
)

// Change describes one committed mutation. Seq increases by one per change.
type Change struct {
	Seq     uint64     `json:"seq"`
	Type    ChangeType `json:"type"`
	NodeIDs []string   `json:"nodeIds,omitempty"`
	EdgeIDs []string   `json:"edgeIds,omitempty"`
}

// Listener receives changes after they are committed.
type Listener func(Change)

// EdgeRequest is a proposed connection.
type EdgeRequest struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// RejectedError is returned by AddEdge when a connection is refused.
// Silent rejections carry no reason and are not reported to the user.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return apperr.ErrRejected.Error()
	}
	return e.Reason
}

// Unwrap lets errors.Is match apperr.ErrRejected.
func (e *RejectedError) Unwrap() error { return apperr.ErrRejected }

// Silent reports whether the rejection should stay invisible to the user.
func (e *RejectedError) Silent() bool { return e.Reason == "" }

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used for node ids.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithEdgeIDs overrides the edge id generator.
func WithEdgeIDs(gen func() string) StoreOption {
	return func(s *Store) { s.newEdgeID = gen }
}

// Store is the authoritative collection of nodes and edges for one editor.
//
// Every operation holds the store lock for its whole duration, so a
// mutation is complete before the next one starts and readers never see
// an edge whose endpoint is gone. Listeners run after the lock is released,
// one change at a time and in Seq order.
type Store struct {
	mu         sync.Mutex
	nodes      []*models.Node
	edges      []*models.Edge
	lastMillis int64
	seq        uint64

	now       func() time.Time
	newEdgeID func() string

	emu       sync.Mutex
	lmu       sync.Mutex
	listeners map[int]Listener
	nextLID   int
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		now:       time.Now,
		newEdgeID: func() string { return "edge-" + uuid.NewString() },
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers l and returns a function that removes it. A listener
// may read the store but must not mutate it.
func (s *Store) Subscribe(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextLID
	s.nextLID++
	s.listeners[id] = l
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

// AddNode creates a node of kind k at pos with the kind's default data.
func (s *Store) AddNode(k models.Kind, pos models.Position) *models.Node {
	s.mu.Lock()
	n := &models.Node{
		ID:       s.nodeIDLocked(k),
		Kind:     k,
		Label:    fmt.Sprintf("%s node", k),
		Position: pos,
		Data:     models.DefaultConfig(k),
	}
	s.nodes = append(s.nodes, n)
	ch := s.changeLocked(NodeAdded, []string{n.ID}, nil)
	out := n.Clone()
	s.publishLocked(ch)
	return out
}

// DuplicateNode copies the node with the given id: same kind, label and a
// deep copy of its data, a fresh id, shifted by DuplicateOffset and not selected.
func (s *Store) DuplicateNode(id string) (*models.Node, error) {
	s.mu.Lock()
	orig := s.nodeLocked(id)
	if orig == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("duplicate node %s: %w", id, apperr.ErrNotFound)
	}
	n := orig.Clone()
	n.ID = s.nodeIDLocked(orig.Kind)
	n.Position = orig.Position.Offset(DuplicateOffset, DuplicateOffset)
	n.Selected = false
	s.nodes = append(s.nodes, n)
	ch := s.changeLocked(NodeAdded, []string{n.ID}, nil)
	out := n.Clone()
	s.publishLocked(ch)
	return out, nil
}

// DeleteNode removes the node and every edge that references it.
// Unknown ids are ignored.
func (s *Store) DeleteNode(id string) {
	s.mu.Lock()
	idx := s.nodeIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.nodes = slices.Delete(s.nodes, idx, idx+1)

	var removed []string
	s.edges = slices.DeleteFunc(s.edges, func(e *models.Edge) bool {
		if e.Source == id || e.Target == id {
			removed = append(removed, e.ID)
			return true
		}
		return false
	})
	ch := s.changeLocked(NodeDeleted, []string{id}, removed)
	s.publishLocked(ch)
}

// AddEdge validates and appends a connection. A refused connection returns
// a *RejectedError and leaves the store unchanged.
func (s *Store) AddEdge(req EdgeRequest) (*models.Edge, error) {
	s.mu.Lock()
	src := s.nodeLocked(req.Source)
	dst := s.nodeLocked(req.Target)

	if d := CheckConnection(src, dst); !d.Allowed {
		s.mu.Unlock()
		return nil, &RejectedError{Reason: d.Reason}
	}
	if !validSourceHandle(src.Kind, req.SourceHandle) || s.hasEdgeLocked(req) {
		s.mu.Unlock()
		return nil, &RejectedError{}
	}

	e := &models.Edge{
		ID:           s.newEdgeID(),
		Source:       req.Source,
		Target:       req.Target,
		SourceHandle: req.SourceHandle,
		TargetHandle: req.TargetHandle,
	}
	s.edges = append(s.edges, e)
	ch := s.changeLocked(EdgeAdded, []string{e.Source, e.Target}, []string{e.ID})
	out := *e
	s.publishLocked(ch)
	return &out, nil
}

// DeleteEdge removes the edge. Unknown ids are ignored.
func (s *Store) DeleteEdge(id string) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.edges, func(e *models.Edge) bool { return e.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.edges = slices.Delete(s.edges, idx, idx+1)
	ch := s.changeLocked(EdgeDeleted, nil, []string{id})
	s.publishLocked(ch)
}

// UpdateNodeData replaces the configuration of a node. The payload must
// belong to the node's kind and pass validation.
func (s *Store) UpdateNodeData(id string, data models.Config) (*models.Node, error) {
	return s.UpdateNodeDataIf(id, data, nil)
}

// UpdateNodeDataIf is UpdateNodeData guarded by precond, which sees the
// current payload and can veto the update by returning an error.
func (s *Store) UpdateNodeDataIf(id string, data models.Config, precond func(current models.Config) error) (*models.Node, error) {
	if data == nil {
		return nil, fmt.Errorf("update node %s: data is required: %w", id, apperr.ErrInvalid)
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("update node %s: %w", id, err)
	}
	return s.mutateNode(id, NodeUpdated, func(n *models.Node) error {
		if data.Kind() != n.Kind {
			return fmt.Errorf("update node %s: %s data on a %s node: %w", id, data.Kind(), n.Kind, apperr.ErrInvalid)
		}
		if precond != nil {
			if err := precond(n.Data); err != nil {
				return err
			}
		}
		n.Data = data.Clone()
		return nil
	})
}

// EditNodeData applies fn to a copy of the node's data and commits the copy
// if fn succeeds and the result validates.
func (s *Store) EditNodeData(id string, fn func(models.Config) error) (*models.Node, error) {
	return s.mutateNode(id, NodeUpdated, func(n *models.Node) error {
		data := n.Data.Clone()
		if err := fn(data); err != nil {
			return err
		}
		if err := data.Validate(); err != nil {
			return fmt.Errorf("update node %s: %w", id, err)
		}
		n.Data = data
		return nil
	})
}

// MoveNode sets the node position.
func (s *Store) MoveNode(id string, pos models.Position) (*models.Node, error) {
	return s.mutateNode(id, NodeMoved, func(n *models.Node) error {
		n.Position = pos
		return nil
	})
}

// SelectNode sets the transient selection flag.
func (s *Store) SelectNode(id string, selected bool) (*models.Node, error) {
	return s.mutateNode(id, NodeSelected, func(n *models.Node) error {
		n.Selected = selected
		return nil
	})
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.nodeLocked(id)
	if n == nil {
		return nil, fmt.Errorf("node %s: %w", id, apperr.ErrNotFound)
	}
	return n.Clone(), nil
}

// Edge returns a copy of the edge with the given id.
func (s *Store) Edge(id string) (*models.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edges {
		if e.ID == id {
			out := *e
			return &out, nil
		}
	}
	return nil, fmt.Errorf("edge %s: %w", id, apperr.ErrNotFound)
}

// Snapshot returns a deep copy of the current graph in insertion order.
func (s *Store) Snapshot() models.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := models.Graph{
		Nodes: make([]*models.Node, len(s.nodes)),
		Edges: make([]*models.Edge, len(s.edges)),
	}
	for i, n := range s.nodes {
		g.Nodes[i] = n.Clone()
	}
	for i, e := range s.edges {
		cp := *e
		g.Edges[i] = &cp
	}
	return g
}

// Seq returns the sequence number of the last committed change.
func (s *Store) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *Store) mutateNode(id string, typ ChangeType, fn func(*models.Node) error) (*models.Node, error) {
	s.mu.Lock()
	n := s.nodeLocked(id)
	if n == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("node %s: %w", id, apperr.ErrNotFound)
	}
	work := n.Clone()
	if err := fn(work); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	*n = *work
	ch := s.changeLocked(typ, []string{id}, nil)
	out := n.Clone()
	s.publishLocked(ch)
	return out, nil
}

// nodeIDLocked returns "{kind}-{millis}". The millisecond part never
// repeats within a store, so ids stay unique when several nodes are
// created inside the same millisecond.
func (s *Store) nodeIDLocked(k models.Kind) string {
	ms := s.now().UnixMilli()
	if ms <= s.lastMillis {
		ms = s.lastMillis + 1
	}
	s.lastMillis = ms
	return fmt.Sprintf("%s-%d", k, ms)
}

func (s *Store) nodeIndexLocked(id string) int {
	return slices.IndexFunc(s.nodes, func(n *models.Node) bool { return n.ID == id })
}

func (s *Store) nodeLocked(id string) *models.Node {
	if i := s.nodeIndexLocked(id); i >= 0 {
		return s.nodes[i]
	}
	return nil
}

func (s *Store) hasEdgeLocked(req EdgeRequest) bool {
	return slices.ContainsFunc(s.edges, func(e *models.Edge) bool {
		return e.Source == req.Source && e.Target == req.Target &&
			e.SourceHandle == req.SourceHandle && e.TargetHandle == req.TargetHandle
	})
}

func (s *Store) changeLocked(typ ChangeType, nodeIDs, edgeIDs []string) Change {
	s.seq++
	return Change{Seq: s.seq, Type: typ, NodeIDs: nodeIDs, EdgeIDs: edgeIDs}
}

// publishLocked releases the store lock and delivers ch. The emit lock
// is taken before the store lock is released, so listeners see changes
// in Seq order even when mutations race.
func (s *Store) publishLocked(ch Change) {
	s.emu.Lock()
	s.mu.Unlock()
	defer s.emu.Unlock()
	s.emit(ch)
}

func (s *Store) emit(ch Change) {
	s.lmu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.lmu.Unlock()
	for _, l := range ls {
		l(ch)
	}
}

func validSourceHandle(k models.Kind, handle string) bool {
	if handle == "" {
		return true
	}
	return slices.Contains(k.SourceHandles(), handle)
}
