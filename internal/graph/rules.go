// Package graph owns the workflow node and edge collections and the
// connection rules that decide which edges may exist.
package graph

import (
	"github.com/starford/flowboard/internal/models"
)

// Rejection reasons shown to the user.
const (
	ReasonAPITarget      = "API nodes can only connect to Function nodes."
	ReasonQueueTarget    = "Queue nodes can only connect to Function nodes."
	ReasonDatabaseTarget = "Database nodes can only connect to Function nodes."
)

// Decision is the outcome of a connection check. A rejected decision with
// an empty Reason is silent: nothing is reported to the user.
type Decision struct {
	Allowed bool
	Reason  string
}

// CheckConnection decides whether an edge from source to target is allowed.
// Function nodes may target anything; every other kind may only target a
// Function node. Rules are evaluated in order and the first match wins.
func CheckConnection(source, target *models.Node) Decision {
	if source == nil || target == nil {
		return Decision{}
	}
	switch {
	case source.Kind == models.KindAPI && target.Kind != models.KindFunction:
		return Decision{Reason: ReasonAPITarget}
	case source.Kind == models.KindFunction:
		return Decision{Allowed: true}
	case source.Kind == models.KindQueue && target.Kind != models.KindFunction:
		return Decision{Reason: ReasonQueueTarget}
	case source.Kind == models.KindDatabase && target.Kind != models.KindFunction:
		return Decision{Reason: ReasonDatabaseTarget}
	}
	return Decision{Allowed: true}
}

// ConnectionRule is a human-readable row of the connection policy.
type ConnectionRule struct {
	Source  models.Kind   `json:"source"`
	Targets []models.Kind `json:"targets"`
}

// Rules derives the connection policy table from CheckConnection.
func Rules() []ConnectionRule {
	out := make([]ConnectionRule, 0, len(models.Kinds))
	for _, s := range models.Kinds {
		rule := ConnectionRule{Source: s}
		for _, t := range models.Kinds {
			if CheckConnection(&models.Node{Kind: s}, &models.Node{Kind: t}).Allowed {
				rule.Targets = append(rule.Targets, t)
			}
		}
		out = append(out, rule)
	}
	return out
}
