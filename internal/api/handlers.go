package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/flowboard/internal/apperr"
	"github.com/starford/flowboard/internal/checksum"
	"github.com/starford/flowboard/internal/graph"
	"github.com/starford/flowboard/internal/models"
	"github.com/starford/flowboard/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	sessions *session.Manager
}

// NewHandler creates a new Handler.
func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// session resolves the {sid} URL parameter, writing a 404 when it is unknown.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, "get session", err)
		return nil, false
	}
	return s, true
}

func detail(s *session.Session) SessionDetail {
	return SessionDetail{
		SessionInfo: s.Info(),
		Viewport:    s.Editor.Viewport(),
		Focus:       s.Editor.FocusStatus(),
	}
}

// setETag sets the ETag header to the checksum of the node's data.
func setETag(w http.ResponseWriter, n *models.Node) {
	if sum, err := checksum.JSON(n.Data); err == nil {
		w.Header().Set("ETag", `"`+sum+`"`)
	}
}

// ListNodeKinds handles GET /api/node-kinds.
//
//	@Summary		List the node palette
//	@Tags			palette
//	@Produce		json
//	@Success		200	{object}	NodeKindsResponse
//	@Security		BearerAuth
//	@Router			/node-kinds [get]
func (h *Handler) ListNodeKinds(w http.ResponseWriter, r *http.Request) {
	items := make([]NodeKindItem, 0, len(models.Kinds))
	for _, k := range models.Kinds {
		items = append(items, NodeKindItem{Kind: k, Label: k.Label(), SourceHandles: k.SourceHandles()})
	}
	writeJSON(w, http.StatusOK, NodeKindsResponse{Kinds: items})
}

// ListRules handles GET /api/rules.
//
//	@Summary		List the connection rules
//	@Tags			palette
//	@Produce		json
//	@Success		200	{object}	RulesResponse
//	@Security		BearerAuth
//	@Router			/rules [get]
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RulesResponse{Rules: graph.Rules()})
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List open editor sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: h.sessions.List()})
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Mount a new editor session
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	SessionDetail
//	@Failure		429	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Open()
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, detail(s))
}

// GetSession handles GET /api/sessions/{sid}.
//
//	@Summary		Get a session summary
//	@Tags			sessions
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	SessionDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detail(s))
}

// CloseSession handles DELETE /api/sessions/{sid}.
//
//	@Summary		Unmount an editor session
//	@Tags			sessions
//	@Param			sid	path	string	true	"Session ID"
//	@Success		204	"Session closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sid")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Graph handles GET /api/sessions/{sid}/graph.
//
//	@Summary		Snapshot the session graph
//	@Tags			graph
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	GraphResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	g := s.Store.Snapshot()
	writeJSON(w, http.StatusOK, GraphResponse{Seq: s.Store.Seq(), Nodes: g.Nodes, Edges: g.Edges})
}

// CreateNode handles POST /api/sessions/{sid}/nodes.
//
//	@Summary		Add a node with default data
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string				true	"Session ID"
//	@Param			body	body		CreateNodeRequest	true	"Node kind and position"
//	@Success		201		{object}	models.Node
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes [post]
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req CreateNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := models.ParseKind(string(req.Kind))
	if err != nil {
		writeError(w, "create node", err)
		return
	}
	n := s.Store.AddNode(kind, req.Position)
	setETag(w, n)
	writeJSON(w, http.StatusCreated, n)
}

// Drop handles POST /api/sessions/{sid}/drop.
//
//	@Summary		Create a node from a palette drop
//	@Description	The screen point is converted to canvas coordinates with the current viewport. An empty payload creates nothing.
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string		true	"Session ID"
//	@Param			body	body		DropRequest	true	"Drag payload and drop point"
//	@Success		201		{object}	models.Node
//	@Success		204		"Nothing dropped"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/drop [post]
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DropRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := s.Editor.Drop(req.Payload, req.Screen)
	if err != nil {
		writeError(w, "drop", err)
		return
	}
	if n == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// GetNode handles GET /api/sessions/{sid}/nodes/{id}.
//
//	@Summary		Get a node
//	@Tags			nodes
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Param			id	path		string	true	"Node ID"
//	@Success		200	{object}	models.Node
//	@Header			200	{string}	ETag	"SHA-256 checksum of the node data"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	n, err := s.Store.Node(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get node", err)
		return
	}
	setETag(w, n)
	writeJSON(w, http.StatusOK, n)
}

// DuplicateNode handles POST /api/sessions/{sid}/nodes/{id}/duplicate.
//
//	@Summary		Duplicate a node
//	@Tags			nodes
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Param			id	path		string	true	"Node ID"
//	@Success		201	{object}	models.Node
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id}/duplicate [post]
func (h *Handler) DuplicateNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	n, err := s.Store.DuplicateNode(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "duplicate node", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// DeleteNode handles DELETE /api/sessions/{sid}/nodes/{id}.
//
//	@Summary		Delete a node and every edge touching it
//	@Tags			nodes
//	@Param			sid	path	string	true	"Session ID"
//	@Param			id	path	string	true	"Node ID"
//	@Success		204	"Node deleted (or already absent)"
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Editor.DeleteNode(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateNodeData handles PUT /api/sessions/{sid}/nodes/{id}/data.
//
//	@Summary		Replace node data with optimistic concurrency
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			sid			path		string	true	"Session ID"
//	@Param			id			path		string	true	"Node ID"
//	@Param			If-Match	header		string	false	"ETag of the data being replaced"
//	@Param			body		body		object	true	"Kind-specific configuration"
//	@Success		200			{object}	models.Node
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id}/data [put]
func (h *Handler) UpdateNodeData(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	cur, err := s.Store.Node(id)
	if err != nil {
		writeError(w, "update node", err)
		return
	}
	data, err := models.DecodeConfig(cur.Kind, body)
	if err != nil {
		writeError(w, "update node", err)
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	n, err := s.Store.UpdateNodeDataIf(id, data, func(current models.Config) error {
		if ifMatch == "" {
			return nil
		}
		sum, err := checksum.JSON(current)
		if err != nil {
			return err
		}
		if sum != ifMatch {
			return fmt.Errorf("node %s: %w", id, apperr.ErrConflict)
		}
		return nil
	})
	if err != nil {
		writeError(w, "update node", err)
		return
	}
	setETag(w, n)
	writeJSON(w, http.StatusOK, n)
}

// MoveNode handles PUT /api/sessions/{sid}/nodes/{id}/position.
//
//	@Summary		Drag a node
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session ID"
//	@Param			id		path		string			true	"Node ID"
//	@Param			body	body		PositionRequest	true	"New position"
//	@Success		200		{object}	models.Node
//	@Failure		404		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id}/position [put]
func (h *Handler) MoveNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := s.Editor.MoveNode(chi.URLParam(r, "id"), req.Position)
	if err != nil {
		writeError(w, "move node", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// SetLanguage handles PUT /api/sessions/{sid}/nodes/{id}/language.
//
//	@Summary		Switch a function node's language
//	@Description	The code template is swapped only while the code is untouched.
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session ID"
//	@Param			id		path		string			true	"Node ID"
//	@Param			body	body		LanguageRequest	true	"Language"
//	@Success		200		{object}	models.Node
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id}/language [put]
func (h *Handler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req LanguageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := s.Editor.SetFunctionLanguage(chi.URLParam(r, "id"), req.Language)
	if err != nil {
		writeError(w, "set language", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// SetBody handles PUT /api/sessions/{sid}/nodes/{id}/body.
//
//	@Summary		Set the raw JSON body of an API node
//	@Description	Malformed JSON is stored anyway; the inline error is returned.
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string		true	"Session ID"
//	@Param			id		path		string		true	"Node ID"
//	@Param			body	body		BodyRequest	true	"Body text"
//	@Success		200		{object}	BodyResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id}/body [put]
func (h *Handler) SetBody(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req BodyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg, err := s.Editor.SetBodyJSON(chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, "set body", err)
		return
	}
	writeJSON(w, http.StatusOK, BodyResponse{Error: msg})
}

// CreateEdge handles POST /api/sessions/{sid}/edges.
//
//	@Summary		Connect two nodes
//	@Description	Refused connections return 422; silent refusals carry silent=true and should not be shown.
//	@Tags			edges
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string				true	"Session ID"
//	@Param			body	body		graph.EdgeRequest	true	"Proposed connection"
//	@Success		201		{object}	models.Edge
//	@Failure		422		{object}	RejectionResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/edges [post]
func (h *Handler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req graph.EdgeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := s.Editor.Connect(req)
	if err != nil {
		writeError(w, "connect", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// DeleteEdge handles DELETE /api/sessions/{sid}/edges/{eid}.
//
//	@Summary		Delete an edge
//	@Tags			edges
//	@Param			sid	path	string	true	"Session ID"
//	@Param			eid	path	string	true	"Edge ID"
//	@Success		204	"Edge deleted (or already absent)"
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/edges/{eid} [delete]
func (h *Handler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Store.DeleteEdge(chi.URLParam(r, "eid"))
	w.WriteHeader(http.StatusNoContent)
}
