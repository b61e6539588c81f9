package models

import (
	"encoding/json"
	"fmt"

	"github.com/starford/flowboard/internal/apperr"
)

// Config is the kind-specific payload carried by a node.
type Config interface {
	// Kind reports the node kind the payload belongs to.
	Kind() Kind
	// Clone returns a deep copy that shares no mutable state with the receiver.
	Clone() Config
	// Validate checks the payload shape.
	Validate() error
}

// Position is a point in canvas space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Offset returns p translated by (dx, dy).
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Node is a graph vertex.
type Node struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label"`
	Position Position `json:"position"`
	Data     Config   `json:"data"`
	Selected bool     `json:"selected"`
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	if n.Data != nil {
		c.Data = n.Data.Clone()
	}
	return &c
}

// UnmarshalJSON decodes data according to the node kind.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Kind     Kind            `json:"kind"`
		Label    string          `json:"label"`
		Position Position        `json:"position"`
		Data     json.RawMessage `json:"data"`
		Selected bool            `json:"selected"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if _, err := ParseKind(string(raw.Kind)); err != nil {
		return err
	}
	data, err := DecodeConfig(raw.Kind, raw.Data)
	if err != nil {
		return err
	}
	*n = Node{
		ID:       raw.ID,
		Kind:     raw.Kind,
		Label:    raw.Label,
		Position: raw.Position,
		Data:     data,
		Selected: raw.Selected,
	}
	return nil
}

// DecodeConfig decodes a JSON payload for kind k on top of its defaults.
// An empty payload yields the defaults.
func DecodeConfig(k Kind, raw []byte) (Config, error) {
	cfg := DefaultConfig(k)
	if cfg == nil {
		return nil, fmt.Errorf("unknown node kind %q: %w", k, apperr.ErrInvalid)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode %s data: %v: %w", k, err, apperr.ErrInvalid)
	}
	return cfg, nil
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Graph is a point-in-time copy of a store's contents.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}
