package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/starford/flowboard/internal/apperr"
	"github.com/starford/flowboard/internal/graph"
	"github.com/starford/flowboard/internal/models"
)

// Event types emitted by the coordinator.
const (
	EventNotice          = "notice"
	EventFocusChanged    = "focus.changed"
	EventMenuChanged     = "menu.changed"
	EventViewportChanged = "viewport.changed"
)

// Notice is a transient user-facing message (a toast).
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Event is a UI state change that is not a graph mutation.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Sink receives coordinator events. It must not call back into the coordinator.
type Sink func(Event)

// FocusStatus is the payload of focus.changed events.
type FocusStatus struct {
	State         LockState     `json:"state"`
	Region        string        `json:"region,omitempty"`
	Interactivity Interactivity `json:"interactivity"`
}

// Coordinator translates presentation-layer intents into store calls and
// transient UI state for one mounted editor.
type Coordinator struct {
	store *graph.Store
	lock  *FocusLock
	menu  Menu
	sink  Sink

	mu        sync.Mutex
	viewport  Viewport
	responses map[string]*ResponseEditor
}

// NewCoordinator wires a coordinator to store. sink may be nil.
func NewCoordinator(store *graph.Store, sink Sink) *Coordinator {
	if sink == nil {
		sink = func(Event) {}
	}
	return &Coordinator{
		store:     store,
		lock:      NewFocusLock(),
		sink:      sink,
		viewport:  InitialViewport,
		responses: make(map[string]*ResponseEditor),
	}
}

// Store returns the graph store the coordinator drives.
func (c *Coordinator) Store() *graph.Store { return c.store }

// Mount resets the viewport to its initial value once the editor is shown.
func (c *Coordinator) Mount() {
	c.setViewport(InitialViewport)
}

// Teardown releases the focus lock and closes any open menu. It is safe
// to call more than once.
func (c *Coordinator) Teardown() {
	if st, _ := c.lock.State(); st == Locked {
		c.lock.Reset()
		c.emitFocus()
	}
	if c.menu.Close() {
		c.sink(Event{Type: EventMenuChanged, Data: nil})
	}
	c.mu.Lock()
	clear(c.responses)
	c.mu.Unlock()
}

// Drop creates a node from a palette drop. payload is the dragged kind and
// screen the drop point relative to the canvas origin. An empty payload is
// ignored.
func (c *Coordinator) Drop(payload string, screen models.Position) (*models.Node, error) {
	if payload == "" {
		return nil, nil
	}
	kind, err := models.ParseKind(payload)
	if err != nil {
		return nil, err
	}
	pos := c.Viewport().ToCanvas(screen)
	return c.store.AddNode(kind, pos), nil
}

// Connect asks the store for a new edge. Rejections with a reason are
// also sent to the sink as a warning notice.
func (c *Coordinator) Connect(req graph.EdgeRequest) (*models.Edge, error) {
	e, err := c.store.AddEdge(req)
	var rej *graph.RejectedError
	if errors.As(err, &rej) && !rej.Silent() {
		c.sink(Event{Type: EventNotice, Data: Notice{Level: "warning", Message: rej.Reason}})
	}
	return e, err
}

// MoveNode drags a node to pos. Node dragging is disabled while locked.
func (c *Coordinator) MoveNode(id string, pos models.Position) (*models.Node, error) {
	if !c.lock.Interactivity().NodeDrag {
		return nil, apperr.ErrLocked
	}
	return c.store.MoveNode(id, pos)
}

// OpenNodeMenu opens the node context menu. Unknown nodes are ignored.
func (c *Coordinator) OpenNodeMenu(id string, x, y float64) (MenuState, bool) {
	if _, err := c.store.Node(id); err != nil {
		return MenuState{}, false
	}
	return c.openMenu(MenuState{Kind: NodeMenu, TargetID: id, X: x, Y: y}), true
}

// OpenEdgeMenu opens the edge context menu. Unknown edges are ignored.
func (c *Coordinator) OpenEdgeMenu(id string, x, y float64) (MenuState, bool) {
	if _, err := c.store.Edge(id); err != nil {
		return MenuState{}, false
	}
	return c.openMenu(MenuState{Kind: EdgeMenu, TargetID: id, X: x, Y: y}), true
}

// CloseMenu handles a click outside the menu.
func (c *Coordinator) CloseMenu() {
	if c.menu.Close() {
		c.sink(Event{Type: EventMenuChanged, Data: nil})
	}
}

// Menu returns the open menu, if any.
func (c *Coordinator) Menu() (MenuState, bool) {
	return c.menu.Current()
}

// MenuDuplicate runs the Duplicate entry of the open node menu. A missing
// menu or a target that no longer exists is a silent no-op (nil node).
func (c *Coordinator) MenuDuplicate() (*models.Node, error) {
	st, ok := c.menu.Current()
	if !ok || st.Kind != NodeMenu {
		return nil, nil
	}
	c.CloseMenu()
	n, err := c.store.DuplicateNode(st.TargetID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return n, err
}

// MenuDelete runs the Delete entry of the open menu.
func (c *Coordinator) MenuDelete() {
	st, ok := c.menu.take()
	if !ok {
		return
	}
	c.sink(Event{Type: EventMenuChanged, Data: nil})
	switch st.Kind {
	case NodeMenu:
		c.DeleteNode(st.TargetID)
	case EdgeMenu:
		c.store.DeleteEdge(st.TargetID)
	}
}

// DeleteNode removes a node with its edges and drops its response editor.
func (c *Coordinator) DeleteNode(id string) {
	c.store.DeleteNode(id)
	c.mu.Lock()
	delete(c.responses, id)
	c.mu.Unlock()
}

// RegisterRegion makes an embedded editor region eligible for the focus lock.
func (c *Coordinator) RegisterRegion(region string) {
	c.lock.Register(region)
}

// UnregisterRegion removes a region, releasing the canvas if it held the lock.
func (c *Coordinator) UnregisterRegion(region string) {
	before, _ := c.lock.State()
	c.lock.Unregister(region)
	if after, _ := c.lock.State(); after != before {
		c.emitFocus()
	}
}

// Focus feeds a UI event to the focus lock.
func (c *Coordinator) Focus(ev FocusEvent) (FocusStatus, error) {
	before, beforeRegion := c.lock.State()
	if _, err := c.lock.Handle(ev); err != nil {
		return c.focusStatus(), err
	}
	if after, region := c.lock.State(); after != before || region != beforeRegion {
		c.emitFocus()
	}
	return c.focusStatus(), nil
}

// FocusStatus returns the lock state and resulting interactivity.
func (c *Coordinator) FocusStatus() FocusStatus {
	return c.focusStatus()
}

// Viewport returns the current viewport.
func (c *Coordinator) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

// Pan shifts the viewport by (dx, dy) screen pixels.
func (c *Coordinator) Pan(dx, dy float64) (Viewport, error) {
	if !c.lock.Interactivity().Pan {
		return c.Viewport(), apperr.ErrLocked
	}
	v := c.Viewport()
	v.X += dx
	v.Y += dy
	return c.setViewport(v), nil
}

// SetZoom sets the zoom factor, clamped to [MinZoom, MaxZoom].
func (c *Coordinator) SetZoom(z float64) (Viewport, error) {
	if !c.lock.Interactivity().ZoomDrag {
		return c.Viewport(), apperr.ErrLocked
	}
	v := c.Viewport()
	v.Zoom = clampZoom(z)
	return c.setViewport(v), nil
}

// SetFunctionLanguage switches a function node's language, seeding the
// new template when the code was untouched.
func (c *Coordinator) SetFunctionLanguage(nodeID string, lang models.Language) (*models.Node, error) {
	return c.store.EditNodeData(nodeID, func(cfg models.Config) error {
		fn, ok := cfg.(*models.FunctionConfig)
		if !ok {
			return fmt.Errorf("node %s is not a function node: %w", nodeID, apperr.ErrInvalid)
		}
		fn.SetLanguage(lang)
		return nil
	})
}

// SetBodyJSON stores raw JSON body text on an API node. Malformed text is
// still stored; the returned message is the inline error, empty when the
// text parses.
func (c *Coordinator) SetBodyJSON(nodeID, text string) (string, error) {
	_, err := c.store.EditNodeData(nodeID, func(cfg models.Config) error {
		api, ok := cfg.(*models.APIConfig)
		if !ok {
			return fmt.Errorf("node %s is not an API node: %w", nodeID, apperr.ErrInvalid)
		}
		api.Body.Type = models.BodyJSON
		api.Body.Content = text
		return nil
	})
	if err != nil {
		return "", err
	}
	if !models.ValidJSON(text) {
		return models.InvalidJSONMessage, nil
	}
	return "", nil
}

// Responses returns the response editor of an API node.
func (c *Coordinator) Responses(nodeID string) (*ResponseEditor, error) {
	n, err := c.store.Node(nodeID)
	if err != nil {
		return nil, err
	}
	if n.Kind != models.KindAPI {
		return nil, fmt.Errorf("node %s is not an API node: %w", nodeID, apperr.ErrInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	re, ok := c.responses[nodeID]
	if !ok {
		re = newResponseEditor(c.store, nodeID)
		c.responses[nodeID] = re
	}
	return re, nil
}

func (c *Coordinator) openMenu(st MenuState) MenuState {
	c.menu.Open(st)
	c.sink(Event{Type: EventMenuChanged, Data: st})
	return st
}

func (c *Coordinator) setViewport(v Viewport) Viewport {
	c.mu.Lock()
	c.viewport = v
	c.mu.Unlock()
	c.sink(Event{Type: EventViewportChanged, Data: v})
	return v
}

func (c *Coordinator) focusStatus() FocusStatus {
	st, region := c.lock.State()
	return FocusStatus{State: st, Region: region, Interactivity: c.lock.Interactivity()}
}

func (c *Coordinator) emitFocus() {
	c.sink(Event{Type: EventFocusChanged, Data: c.focusStatus()})
}
