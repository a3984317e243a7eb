package workflow

// StateMachine tracks the current status of one record against its type's definition
type StateMachine interface {
	// State returns the current status
	State() Status

	// CanFire returns true if a transition to the target status is declared from the current status
	CanFire(to Status) bool

	// Fire moves the machine to the target status and returns the edge that was taken
	Fire(to Status) (Edge, error)

	// PermittedTransitions returns every edge leaving the current status
	PermittedTransitions() []Edge
}
