package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/flowboard/internal/apperr"
	"github.com/starford/flowboard/internal/editor"
)

func menuResponse(st editor.MenuState, open bool) MenuResponse {
	if !open {
		return MenuResponse{}
	}
	return MenuResponse{Open: true, Menu: &st, Actions: st.Actions()}
}

// GetMenu handles GET /api/sessions/{sid}/menu.
//
//	@Summary		Get the open context menu
//	@Tags			menu
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	MenuResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/menu [get]
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, menuResponse(s.Editor.Menu()))
}

// OpenMenu handles POST /api/sessions/{sid}/menu.
//
//	@Summary		Open a context menu on a node or an edge
//	@Tags			menu
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session ID"
//	@Param			body	body		OpenMenuRequest	true	"Menu target"
//	@Success		200		{object}	MenuResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/menu [post]
func (h *Handler) OpenMenu(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req OpenMenuRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var (
		st     editor.MenuState
		opened bool
	)
	switch req.Kind {
	case editor.NodeMenu:
		st, opened = s.Editor.OpenNodeMenu(req.TargetID, req.X, req.Y)
	case editor.EdgeMenu:
		st, opened = s.Editor.OpenEdgeMenu(req.TargetID, req.X, req.Y)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("kind must be node or edge"))
		return
	}
	if !opened {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, menuResponse(st, true))
}

// CloseMenu handles DELETE /api/sessions/{sid}/menu.
//
//	@Summary		Dismiss the context menu
//	@Tags			menu
//	@Param			sid	path	string	true	"Session ID"
//	@Success		204	"Menu closed"
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/menu [delete]
func (h *Handler) CloseMenu(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Editor.CloseMenu()
	w.WriteHeader(http.StatusNoContent)
}

// MenuAction handles POST /api/sessions/{sid}/menu/{action}.
//
//	@Summary		Run a context menu entry
//	@Description	A menu whose target no longer exists does nothing.
//	@Tags			menu
//	@Produce		json
//	@Param			sid		path		string	true	"Session ID"
//	@Param			action	path		string	true	"Menu entry"	Enums(duplicate, delete)
//	@Success		201		{object}	models.Node
//	@Success		204		"Done"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/menu/{action} [post]
func (h *Handler) MenuAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	switch chi.URLParam(r, "action") {
	case "duplicate":
		n, err := s.Editor.MenuDuplicate()
		if err != nil {
			writeError(w, "menu duplicate", err)
			return
		}
		if n != nil {
			writeJSON(w, http.StatusCreated, n)
			return
		}
	case "delete":
		s.Editor.MenuDelete()
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown menu action"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRegion handles PUT /api/sessions/{sid}/regions/{region}.
//
//	@Summary		Register an embedded editor region
//	@Tags			focus
//	@Param			sid		path	string	true	"Session ID"
//	@Param			region	path	string	true	"Region ID"
//	@Success		204		"Registered"
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/regions/{region} [put]
func (h *Handler) RegisterRegion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Editor.RegisterRegion(chi.URLParam(r, "region"))
	w.WriteHeader(http.StatusNoContent)
}

// UnregisterRegion handles DELETE /api/sessions/{sid}/regions/{region}.
//
//	@Summary		Unregister an embedded editor region
//	@Tags			focus
//	@Param			sid		path	string	true	"Session ID"
//	@Param			region	path	string	true	"Region ID"
//	@Success		204		"Unregistered"
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/regions/{region} [delete]
func (h *Handler) UnregisterRegion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Editor.UnregisterRegion(chi.URLParam(r, "region"))
	w.WriteHeader(http.StatusNoContent)
}

// GetFocus handles GET /api/sessions/{sid}/focus.
//
//	@Summary		Get the focus lock state
//	@Tags			focus
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	editor.FocusStatus
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/focus [get]
func (h *Handler) GetFocus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Editor.FocusStatus())
}

// Focus handles POST /api/sessions/{sid}/focus.
//
//	@Summary		Report a pointer, key or focus event
//	@Tags			focus
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string				true	"Session ID"
//	@Param			body	body		editor.FocusEvent	true	"UI event"
//	@Success		200		{object}	editor.FocusStatus
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/focus [post]
func (h *Handler) Focus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var ev editor.FocusEvent
	if !decodeBody(w, r, &ev) {
		return
	}
	st, err := s.Editor.Focus(ev)
	if err != nil {
		writeError(w, "focus", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetViewport handles GET /api/sessions/{sid}/viewport.
//
//	@Summary		Get the viewport
//	@Tags			viewport
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	editor.Viewport
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/viewport [get]
func (h *Handler) GetViewport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Editor.Viewport())
}

// UpdateViewport handles PUT /api/sessions/{sid}/viewport.
//
//	@Summary		Pan and zoom the canvas
//	@Description	Refused with 423 while an embedded editor holds the focus lock.
//	@Tags			viewport
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session ID"
//	@Param			body	body		ViewportRequest	true	"Pan delta and zoom"
//	@Success		200		{object}	editor.Viewport
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/viewport [put]
func (h *Handler) UpdateViewport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ViewportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v := s.Editor.Viewport()
	var err error
	if req.DX != 0 || req.DY != 0 {
		if v, err = s.Editor.Pan(req.DX, req.DY); err != nil {
			writeError(w, "pan", err)
			return
		}
	}
	if req.Zoom != nil {
		if v, err = s.Editor.SetZoom(*req.Zoom); err != nil {
			writeError(w, "zoom", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, v)
}

// AddResponse handles POST /api/sessions/{sid}/nodes/{id}/responses.
//
//	@Summary		Add a response to an API node's catalog
//	@Tags			responses
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Param			id	path		string	true	"Node ID"
//	@Success		201	{object}	ResponseState
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id}/responses [post]
func (h *Handler) AddResponse(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	re, err := s.Editor.Responses(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "add response", err)
		return
	}
	if _, err := re.Add(); err != nil {
		writeError(w, "add response", err)
		return
	}
	idx, resp := re.Selected()
	writeJSON(w, http.StatusCreated, ResponseState{Index: idx, Response: resp})
}

// UpdateResponse handles PUT /api/sessions/{sid}/nodes/{id}/responses/{idx}.
//
//	@Summary		Edit a catalog response
//	@Description	Malformed JSON content returns 422 with "Invalid JSON format" and leaves the stored response unchanged.
//	@Tags			responses
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session ID"
//	@Param			id		path		string			true	"Node ID"
//	@Param			idx		path		int				true	"Response index"
//	@Param			body	body		ResponseRequest	true	"Fields to change"
//	@Success		200		{object}	ResponseState
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	ResponseState
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id}/responses/{idx} [put]
func (h *Handler) UpdateResponse(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid response index"))
		return
	}
	var req ResponseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	re, err := s.Editor.Responses(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "update response", err)
		return
	}
	resp, err := re.Select(idx)
	if err != nil {
		writeError(w, "update response", err)
		return
	}
	if req.Description != nil {
		resp.Description = *req.Description
	}
	if req.Content != nil {
		resp.Content = *req.Content
	}
	err = re.Update(resp)
	if req.Code != nil && err == nil {
		err = re.SetCode(*req.Code)
	}

	_, draft := re.Selected()
	state := ResponseState{Index: idx, Response: draft, Error: re.Err()}
	switch {
	case errors.Is(err, apperr.ErrInvalidJSON):
		writeJSON(w, http.StatusUnprocessableEntity, state)
	case err != nil:
		writeError(w, "update response", err)
	default:
		writeJSON(w, http.StatusOK, state)
	}
}

// DeleteResponse handles DELETE /api/sessions/{sid}/nodes/{id}/responses/{idx}.
//
//	@Summary		Remove a catalog response
//	@Tags			responses
//	@Param			sid	path	string	true	"Session ID"
//	@Param			id	path	string	true	"Node ID"
//	@Param			idx	path	int		true	"Response index"
//	@Success		204	"Response deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/nodes/{id}/responses/{idx} [delete]
func (h *Handler) DeleteResponse(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid response index"))
		return
	}
	re, err := s.Editor.Responses(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete response", err)
		return
	}
	if err := re.Delete(idx); err != nil {
		writeError(w, "delete response", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
