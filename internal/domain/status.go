package domain

// Status represents the lifecycle state of a work unit.
type Status string

const (
	StatusReady      Status = "ready"       // Created, awaiting claim
	StatusInProgress Status = "in_progress" // Claimed by a lane
	StatusBlocked    Status = "blocked"     // Claimed but blocked
	StatusWaiting    Status = "waiting"     // Waiting on an external dependency
	StatusDone       Status = "done"        // Completed and locked
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{
		StatusReady,
		StatusInProgress,
		StatusBlocked,
		StatusWaiting,
		StatusDone,
	}
}

// transitions defines the allowed status transitions for lifecycle commands.
// Flow: ready → in_progress → done
//
//	↑        ↓     ↑
//	└─────── blocked/waiting
var transitions = map[Status][]Status{
	StatusReady:      {StatusInProgress},
	StatusInProgress: {StatusBlocked, StatusWaiting, StatusReady, StatusDone},
	StatusBlocked:    {StatusInProgress, StatusReady},
	StatusWaiting:    {StatusInProgress, StatusReady},
	StatusDone:       {},
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// IsActive returns true for work units that are not yet done.
func (s Status) IsActive() bool {
	return s.IsValid() && !s.IsTerminal()
}

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	switch s {
	case StatusReady, StatusInProgress, StatusBlocked, StatusWaiting, StatusDone:
		return true
	default:
		return false
	}
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusInProgress:
		return "In Progress"
	case StatusBlocked:
		return "Blocked"
	case StatusWaiting:
		return "Waiting"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}
