package workflow

import (
	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// Gate answers who may act on, and who may see, a record.
// It reads only the definitions and holds no per-user or per-record state.
type Gate struct {
	registry *Registry
}

// NewGate creates an authorization gate over the registry
func NewGate(registry *Registry) *Gate {
	return &Gate{registry: registry}
}

// CanAct returns the transitions the role may trigger from the status.
// Unknown types, statuses and roles get an empty set.
func (g *Gate) CanAct(role domainwf.Role, t entity.RequestType, from domainwf.Status) []domainwf.Edge {
	if !role.CanSign() {
		return nil
	}
	def, err := g.registry.Definition(t)
	if err != nil || !def.Has(from) {
		return nil
	}

	var allowed []domainwf.Edge
	for _, e := range def.Edges(from) {
		if e.Role == role {
			allowed = append(allowed, e)
		}
	}
	return allowed
}

// Permits returns true if the role may move a record of the type from one status to another
func (g *Gate) Permits(role domainwf.Role, t entity.RequestType, from, to domainwf.Status) bool {
	for _, e := range g.CanAct(role, t, from) {
		if e.To == to {
			return true
		}
	}
	return false
}

// HoldsQueue returns true if the role signs any transition of the type
func (g *Gate) HoldsQueue(role domainwf.Role, t entity.RequestType) bool {
	def, err := g.registry.Definition(t)
	if err != nil {
		return false
	}
	for _, s := range def.States() {
		if len(g.CanAct(role, t, s)) > 0 {
			return true
		}
	}
	return false
}

// CanView returns true if the actor may see the record.
// Requesters always see their own records, queue holders see their types, accounting sees history.
func (g *Gate) CanView(actor entity.ActorContext, rec *entity.RequestRecord) bool {
	if rec == nil || !actor.IsAuthenticated() {
		return false
	}
	if rec.IsOwnedBy(actor.UserID) {
		return true
	}
	if actor.Role == domainwf.RoleAccounting {
		return true
	}
	return g.HoldsQueue(actor.Role, rec.Type)
}
