package api

import (
	"github.com/starford/flowboard/internal/editor"
	"github.com/starford/flowboard/internal/graph"
	"github.com/starford/flowboard/internal/models"
	"github.com/starford/flowboard/internal/session"
)

// NodeKindItem is one palette entry.
type NodeKindItem struct {
	Kind          models.Kind `json:"kind" example:"apiNode" validate:"required"`
	Label         string      `json:"label" example:"API" validate:"required"`
	SourceHandles []string    `json:"sourceHandles,omitempty" example:"request,response"`
}

// NodeKindsResponse lists the palette.
type NodeKindsResponse struct {
	Kinds []NodeKindItem `json:"kinds" validate:"required"`
}

// RulesResponse lists the connection rules.
type RulesResponse struct {
	Rules []graph.ConnectionRule `json:"rules" validate:"required"`
}

// SessionInfo is a session summary (aliased from the session layer).
type SessionInfo = session.Info

// SessionListResponse wraps the open sessions.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions" validate:"required"`
}

// SessionDetail is returned when a session is opened or fetched.
type SessionDetail struct {
	SessionInfo
	Viewport editor.Viewport    `json:"viewport"`
	Focus    editor.FocusStatus `json:"focus"`
}

// GraphResponse is a graph snapshot with the change sequence it reflects.
type GraphResponse struct {
	Seq   uint64         `json:"seq" example:"12"`
	Nodes []*models.Node `json:"nodes" validate:"required"`
	Edges []*models.Edge `json:"edges" validate:"required"`
}

// CreateNodeRequest is the request body for adding a node.
type CreateNodeRequest struct {
	Kind     models.Kind     `json:"kind" example:"functionNode" validate:"required"`
	Position models.Position `json:"position"`
}

// DropRequest is a palette drop at a screen point relative to the canvas.
type DropRequest struct {
	Payload string          `json:"payload" example:"queueNode"`
	Screen  models.Position `json:"screen"`
}

// PositionRequest moves a node.
type PositionRequest struct {
	Position models.Position `json:"position"`
}

// LanguageRequest switches a function node's language.
type LanguageRequest struct {
	Language models.Language `json:"language" example:"typescript" validate:"required"`
}

// BodyRequest sets the raw JSON body of an API node.
type BodyRequest struct {
	Content string `json:"content" example:"{\"name\":\"x\"}"`
}

// BodyResponse reports the inline error of a body edit.
type BodyResponse struct {
	Error string `json:"error,omitempty" example:"Invalid JSON format"`
}

// ResponseRequest updates a catalog response.
type ResponseRequest struct {
	Code        *string `json:"code,omitempty" example:"200"`
	Description *string `json:"description,omitempty" example:"OK"`
	Content     *string `json:"content,omitempty" example:"{}"`
}

// ResponseState is the response editor state after an edit.
type ResponseState struct {
	Index    int             `json:"index" example:"0"`
	Response models.Response `json:"response"`
	Error    string          `json:"error,omitempty" example:"Invalid JSON format"`
}

// OpenMenuRequest opens a context menu on a node or an edge.
type OpenMenuRequest struct {
	Kind     editor.MenuKind `json:"kind" example:"node" validate:"required"`
	TargetID string          `json:"targetId" example:"apiNode-1700000000000" validate:"required"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
}

// MenuResponse is the open menu, if any.
type MenuResponse struct {
	Open    bool              `json:"open"`
	Menu    *editor.MenuState `json:"menu,omitempty"`
	Actions []string          `json:"actions,omitempty" example:"duplicate,delete"`
}

// ViewportRequest pans by (dx, dy) and/or sets the zoom.
type ViewportRequest struct {
	DX   float64  `json:"dx"`
	DY   float64  `json:"dy"`
	Zoom *float64 `json:"zoom,omitempty" example:"1.5"`
}
