package editor

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/starford/flowboard/internal/apperr"
	"github.com/starford/flowboard/internal/graph"
	"github.com/starford/flowboard/internal/models"
)

var codeInputPattern = regexp.MustCompile(`^\d{0,3}$`)

// ResponseEditor edits the response catalog of one API node. It keeps a
// draft of the selected response; the draft is committed to the store
// only when it is valid, so malformed JSON never replaces a stored body.
type ResponseEditor struct {
	mu       sync.Mutex
	store    *graph.Store
	nodeID   string
	selected int
	draft    models.Response
	errMsg   string
}

func newResponseEditor(store *graph.Store, nodeID string) *ResponseEditor {
	return &ResponseEditor{store: store, nodeID: nodeID, selected: -1}
}

// Add appends an empty response and selects it.
func (r *ResponseEditor) Add() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	resp := models.NewResponse()
	idx := -1
	_, err := r.store.EditNodeData(r.nodeID, func(cfg models.Config) error {
		api := cfg.(*models.APIConfig)
		api.Responses = append(api.Responses, resp)
		idx = len(api.Responses) - 1
		return nil
	})
	if err != nil {
		return -1, err
	}
	r.selected = idx
	r.draft = resp
	return idx, nil
}

// Select makes the response at idx the one being edited.
func (r *ResponseEditor) Select(idx int) (models.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.committed()
	if err != nil {
		return models.Response{}, err
	}
	if idx < 0 || idx >= len(list) {
		return models.Response{}, fmt.Errorf("response %d: %w", idx, apperr.ErrNotFound)
	}
	r.selected = idx
	r.draft = list[idx]
	return r.draft, nil
}

// Update replaces the selected response with resp. Malformed JSON content
// sets the error state and leaves the stored response untouched; valid
// content clears it. A status code outside [100,599] keeps the draft
// uncommitted without an inline message.
func (r *ResponseEditor) Update(resp models.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(resp)
}

// SetCode edits the status code of the selected response. Input that is
// not zero to three digits is ignored, as a text field would refuse it.
func (r *ResponseEditor) SetCode(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !codeInputPattern.MatchString(code) {
		return nil
	}
	next := r.draft
	next.Code = code
	return r.updateLocked(next)
}

// Delete removes the response at idx, clearing the selection if it was selected.
func (r *ResponseEditor) Delete(idx int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.store.EditNodeData(r.nodeID, func(cfg models.Config) error {
		api := cfg.(*models.APIConfig)
		if idx < 0 || idx >= len(api.Responses) {
			return fmt.Errorf("response %d: %w", idx, apperr.ErrNotFound)
		}
		api.Responses = append(api.Responses[:idx], api.Responses[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	switch {
	case r.selected == idx:
		r.selected = -1
		r.draft = models.Response{}
		r.errMsg = ""
	case r.selected > idx:
		r.selected--
	}
	return nil
}

// Selected returns the selected index (-1 when none) and its draft.
func (r *ResponseEditor) Selected() (int, models.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected, r.draft
}

// Err returns the inline error message, empty when there is none.
func (r *ResponseEditor) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

func (r *ResponseEditor) updateLocked(resp models.Response) error {
	if r.selected < 0 {
		return fmt.Errorf("no response selected: %w", apperr.ErrNotFound)
	}
	r.draft = resp
	if !models.ValidJSON(resp.Content) {
		r.errMsg = models.InvalidJSONMessage
		return apperr.ErrInvalidJSON
	}
	r.errMsg = ""
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("response %d: %w", r.selected, err)
	}

	idx := r.selected
	_, err := r.store.EditNodeData(r.nodeID, func(cfg models.Config) error {
		api := cfg.(*models.APIConfig)
		if idx >= len(api.Responses) {
			return fmt.Errorf("response %d: %w", idx, apperr.ErrNotFound)
		}
		api.Responses[idx] = resp
		return nil
	})
	return err
}

func (r *ResponseEditor) committed() ([]models.Response, error) {
	n, err := r.store.Node(r.nodeID)
	if err != nil {
		return nil, err
	}
	return n.Data.(*models.APIConfig).Responses, nil
}
