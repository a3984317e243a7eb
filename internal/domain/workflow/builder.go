package workflow

import (
	"fmt"
)

// Edge is a declared transition out of a status
type Edge struct {
	From           Status   `json:"from"`
	To             Status   `json:"to"`
	Role           Role     `json:"required_role"`
	RequiresNote   bool     `json:"requires_note"`
	RequiredFields []string `json:"required_fields,omitempty"`
	OptionalFields []string `json:"optional_fields,omitempty"`

	// PatchesPayload merges the attached fields into the record payload
	PatchesPayload bool `json:"patches_payload,omitempty"`
}

// AttachedFields returns required fields followed by optional fields, in declared order
func (e Edge) AttachedFields() []string {
	fields := make([]string, 0, len(e.RequiredFields)+len(e.OptionalFields))
	fields = append(fields, e.RequiredFields...)
	return append(fields, e.OptionalFields...)
}

func (e Edge) clone() Edge {
	e.RequiredFields = append([]string(nil), e.RequiredFields...)
	e.OptionalFields = append([]string(nil), e.OptionalFields...)
	return e
}

// EdgeOption customizes a permitted transition
type EdgeOption func(*Edge)

// RequireNote marks the transition as needing a non-blank note
func RequireNote() EdgeOption {
	return func(e *Edge) {
		e.RequiresNote = true
	}
}

// RequireFields lists fields that must be non-blank before the transition is accepted
func RequireFields(names ...string) EdgeOption {
	return func(e *Edge) {
		e.RequiredFields = append(e.RequiredFields, names...)
	}
}

// OptionalFields lists fields the transition records when supplied
func OptionalFields(names ...string) EdgeOption {
	return func(e *Edge) {
		e.OptionalFields = append(e.OptionalFields, names...)
	}
}

// PatchPayload makes the transition write its attached fields into the payload
func PatchPayload() EdgeOption {
	return func(e *Edge) {
		e.PatchesPayload = true
	}
}

// DefinitionBuilder builds the lifecycle definition of one request type
type DefinitionBuilder interface {
	// Configure returns a state configuration for the given status
	Configure(state Status) StateConfiguration

	// Build freezes the configuration into a Definition
	Build() *Definition
}

// StateConfiguration configures transitions for a specific status
type StateConfiguration interface {
	// Permit allows the role to move a record to the target status
	Permit(to Status, role Role, opts ...EdgeOption) StateConfiguration
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	builder   *definitionBuilder
	fromState Status
}

// definitionBuilder implements DefinitionBuilder
type definitionBuilder struct {
	name    string
	initial Status
	order   []Status
	states  map[Status]bool
	edges   map[Status][]Edge
}

// NewBuilder creates a definition builder for the named type starting at the initial status
func NewBuilder(name string, initial Status) DefinitionBuilder {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	b := &definitionBuilder{
		name:    name,
		initial: initial,
		states:  make(map[Status]bool),
		edges:   make(map[Status][]Edge),
	}
	b.declare(initial)
	return b
}

func (b *definitionBuilder) declare(s Status) {
	if !b.states[s] {
		b.states[s] = true
		b.order = append(b.order, s)
	}
}

// Configure returns a state configuration for the given status
func (b *definitionBuilder) Configure(state Status) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	b.declare(state)
	return &stateConfig{builder: b, fromState: state}
}

// Build freezes the configuration into a Definition
func (b *definitionBuilder) Build() *Definition {
	edges := make(map[Status][]Edge, len(b.edges))
	for from, list := range b.edges {
		copied := make([]Edge, len(list))
		for i, e := range list {
			copied[i] = e.clone()
		}
		edges[from] = copied
	}

	states := make(map[Status]bool, len(b.states))
	for s := range b.states {
		states[s] = true
	}

	return &Definition{
		name:    b.name,
		initial: b.initial,
		order:   append([]Status(nil), b.order...),
		states:  states,
		edges:   edges,
	}
}

// Permit allows the role to move a record to the target status
func (c *stateConfig) Permit(to Status, role Role, opts ...EdgeOption) StateConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	if !role.CanSign() {
		panic(fmt.Sprintf("role %s cannot be required for a transition", role))
	}
	for _, existing := range c.builder.edges[c.fromState] {
		if existing.To == to {
			panic(fmt.Sprintf("duplicate transition %s -> %s in %s", c.fromState, to, c.builder.name))
		}
	}

	edge := Edge{From: c.fromState, To: to, Role: role}
	for _, opt := range opts {
		opt(&edge)
	}

	c.builder.declare(to)
	c.builder.edges[c.fromState] = append(c.builder.edges[c.fromState], edge)
	return c
}

// Definition is the immutable lifecycle of one request type
type Definition struct {
	name    string
	initial Status
	order   []Status
	states  map[Status]bool
	edges   map[Status][]Edge
}

// Name returns the request type name the definition was built for
func (d *Definition) Name() string {
	return d.name
}

// Initial returns the status new records start in
func (d *Definition) Initial() Status {
	return d.initial
}

// States returns the declared status set in declaration order
func (d *Definition) States() []Status {
	return append([]Status(nil), d.order...)
}

// Has returns true if the status is part of this definition
func (d *Definition) Has(s Status) bool {
	return d.states[s]
}

// IsTerminal returns true if no transition leaves the status
func (d *Definition) IsTerminal(s Status) bool {
	return d.states[s] && len(d.edges[s]) == 0
}

// Edges returns the transitions leaving a status
func (d *Definition) Edges(from Status) []Edge {
	list := d.edges[from]
	out := make([]Edge, len(list))
	for i, e := range list {
		out[i] = e.clone()
	}
	return out
}

// Edge returns the declared transition between two statuses
func (d *Definition) Edge(from, to Status) (Edge, error) {
	if !d.states[from] {
		return Edge{}, fmt.Errorf("%w: %s is not a %s status", ErrInvalidState, from, d.name)
	}
	for _, e := range d.edges[from] {
		if e.To == to {
			return e.clone(), nil
		}
	}
	return Edge{}, fmt.Errorf("%w: %s -> %s in %s", ErrInvalidTransition, from, to, d.name)
}

// Machine returns a state machine positioned at the given status
func (d *Definition) Machine(current Status) (StateMachine, error) {
	if !d.states[current] {
		return nil, fmt.Errorf("%w: %s is not a %s status", ErrInvalidState, current, d.name)
	}
	return &stateMachine{def: d, currentState: current}, nil
}

// stateMachine implements StateMachine
type stateMachine struct {
	def          *Definition
	currentState Status
}

// State returns the current status
func (m *stateMachine) State() Status {
	return m.currentState
}

// CanFire returns true if a transition to the target status is declared from the current status
func (m *stateMachine) CanFire(to Status) bool {
	_, err := m.def.Edge(m.currentState, to)
	return err == nil
}

// Fire moves the machine to the target status and returns the edge that was taken
func (m *stateMachine) Fire(to Status) (Edge, error) {
	edge, err := m.def.Edge(m.currentState, to)
	if err != nil {
		return Edge{}, err
	}
	m.currentState = to
	return edge, nil
}

// PermittedTransitions returns every edge leaving the current status
func (m *stateMachine) PermittedTransitions() []Edge {
	return m.def.Edges(m.currentState)
}
