// Package models defines the workflow graph types: nodes, edges and the
// per-kind configuration payloads.
package models

import (
	"fmt"

	"github.com/starford/flowboard/internal/apperr"
)

// Kind is the immutable variant tag of a node. Values double as the
// palette drag payload.
type Kind string

// Node kinds.
const (
	KindAPI      Kind = "apiNode"
	KindFunction Kind = "functionNode"
	KindQueue    Kind = "queueNode"
	KindDatabase Kind = "databaseNode"
)

// Kinds lists every node kind in palette order.
var Kinds = []Kind{KindAPI, KindFunction, KindQueue, KindDatabase}

// Source handles exposed by API nodes.
const (
	HandleRequest  = "request"
	HandleResponse = "response"
)

// ParseKind converts a wire value into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown node kind %q: %w", s, apperr.ErrInvalid)
}

// Label returns the palette label for the kind.
func (k Kind) Label() string {
	switch k {
	case KindAPI:
		return "API"
	case KindFunction:
		return "Function"
	case KindQueue:
		return "Queue"
	case KindDatabase:
		return "Database"
	}
	return string(k)
}

// SourceHandles returns the named source ports of the kind. A nil result
// means the kind has a single unnamed port.
func (k Kind) SourceHandles() []string {
	if k == KindAPI {
		return []string{HandleRequest, HandleResponse}
	}
	return nil
}

// DefaultConfig returns the configuration a freshly dropped node of kind k
// starts with.
func DefaultConfig(k Kind) Config {
	switch k {
	case KindAPI:
		return NewAPIConfig()
	case KindFunction:
		return NewFunctionConfig(LanguageJavaScript)
	case KindQueue:
		return NewQueueConfig()
	case KindDatabase:
		return NewDatabaseConfig()
	}
	return nil
}
