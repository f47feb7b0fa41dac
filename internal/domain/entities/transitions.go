package entities

// TransitionPolicy decides whether a task may move from one status to
// another. The storage layer never enforces transitions; the policy is
// applied at the service boundary so deployments can choose between the
// permissive historical behavior and a strict lifecycle.
type TransitionPolicy interface {
	Allow(from, to TaskStatus) bool
}

// AllowAnyTransition permits every status change, including re-opening
// completed or cancelled tasks.
type AllowAnyTransition struct{}

func (AllowAnyTransition) Allow(from, to TaskStatus) bool {
	return to.IsValid()
}

// StrictTransitions treats completed and cancelled as terminal and only
// lets active tasks become overdue.
type StrictTransitions struct{}

func (StrictTransitions) Allow(from, to TaskStatus) bool {
	if !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	switch to {
	case TaskStatusOverdue:
		return from == TaskStatusNew || from == TaskStatusInProgress
	default:
		return true
	}
}
