package entity

import (
	"time"

	"github.com/garyjia/branch-forms/internal/domain/workflow"
)

// Profile is the stored user profile
type Profile struct {
	UserID       string    `json:"user_id"`
	EmployeeID   string    `json:"employee_id"`
	Name         string    `json:"name"`
	SignatureRef string    `json:"signature_ref"`
	Role         string    `json:"role"`
	Branch       string    `json:"branch"`
	Department   string    `json:"department"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ActorContext is the resolved identity of the user performing an operation
type ActorContext struct {
	UserID       string        `json:"user_id"`
	EmployeeID   string        `json:"employee_id"`
	Name         string        `json:"name"`
	SignatureRef string        `json:"signature_ref"`
	Role         workflow.Role `json:"role"`
	Branch       string        `json:"branch"`
	Department   string        `json:"department"`
}

// Actor resolves the profile into an actor, mapping its stored role onto the role vocabulary
func (p *Profile) Actor() ActorContext {
	return ActorContext{
		UserID:       p.UserID,
		EmployeeID:   p.EmployeeID,
		Name:         p.Name,
		SignatureRef: p.SignatureRef,
		Role:         workflow.ParseRole(p.Role),
		Branch:       p.Branch,
		Department:   p.Department,
	}
}

// Requester returns the requester snapshot for a new submission
func (a ActorContext) Requester() Requester {
	return Requester{
		EmployeeID: a.EmployeeID,
		UserID:     a.UserID,
		Name:       a.Name,
		Branch:     a.Branch,
		Department: a.Department,
	}
}

// IsAuthenticated returns true if the actor carries a resolved user id
func (a ActorContext) IsAuthenticated() bool {
	return a.UserID != ""
}
