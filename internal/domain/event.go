package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType discriminates work unit lifecycle events.
type EventType string

const (
	EventCreate     EventType = "create"
	EventClaim      EventType = "claim"
	EventBlock      EventType = "block"
	EventUnblock    EventType = "unblock"
	EventComplete   EventType = "complete"
	EventCheckpoint EventType = "checkpoint"
	EventDelegation EventType = "delegation"
	EventRelease    EventType = "release"
)

// IsValid returns true if the event type is known.
func (t EventType) IsValid() bool {
	switch t {
	case EventCreate, EventClaim, EventBlock, EventUnblock, EventComplete,
		EventCheckpoint, EventDelegation, EventRelease:
		return true
	default:
		return false
	}
}

// Event is an immutable lifecycle fact. Type-specific fields are empty
// for event types that do not carry them.
// Fields are ordered to minimize memory padding.
type Event struct {
	ID         string    `json:"id,omitempty"`
	Type       EventType `json:"type"`
	WUID       string    `json:"wuId"`
	Timestamp  string    `json:"timestamp"`
	Lane       string    `json:"lane,omitempty"`
	Title      string    `json:"title,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Note       string    `json:"note,omitempty"`
	ParentWUID string    `json:"parentWuId,omitempty"`
}

// NewEvent creates an event stamped with at and a fresh ID.
func NewEvent(typ EventType, wuID string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		WUID:      wuID,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// NewCreateEvent records a work unit entering the backlog.
func NewCreateEvent(wuID, lane, title string, at time.Time) Event {
	e := NewEvent(EventCreate, wuID, at)
	e.Lane = lane
	e.Title = title
	return e
}

// NewClaimEvent records a lane claiming a work unit.
func NewClaimEvent(wuID, lane, title string, at time.Time) Event {
	e := NewEvent(EventClaim, wuID, at)
	e.Lane = lane
	e.Title = title
	return e
}

// NewBlockEvent records a work unit becoming blocked.
func NewBlockEvent(wuID, reason string, at time.Time) Event {
	e := NewEvent(EventBlock, wuID, at)
	e.Reason = reason
	return e
}

// NewUnblockEvent records a blocked work unit resuming.
func NewUnblockEvent(wuID string, at time.Time) Event {
	return NewEvent(EventUnblock, wuID, at)
}

// NewCompleteEvent records a work unit finishing.
func NewCompleteEvent(wuID string, at time.Time) Event {
	return NewEvent(EventComplete, wuID, at)
}

// NewCheckpointEvent records a progress note.
func NewCheckpointEvent(wuID, note string, at time.Time) Event {
	e := NewEvent(EventCheckpoint, wuID, at)
	e.Note = note
	return e
}

// NewDelegationEvent records wuID being spawned from parentWUID.
func NewDelegationEvent(wuID, parentWUID string, at time.Time) Event {
	e := NewEvent(EventDelegation, wuID, at)
	e.ParentWUID = parentWUID
	return e
}

// NewReleaseEvent records a claim being given up.
func NewReleaseEvent(wuID, reason string, at time.Time) Event {
	e := NewEvent(EventRelease, wuID, at)
	e.Reason = reason
	return e
}

// Time parses the event timestamp.
func (e Event) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}

// Key identifies an event for de-duplication across logs.
// Events written without an ID fall back to (type, wuId, timestamp).
func (e Event) Key() string {
	if e.ID != "" {
		return "id:" + e.ID
	}
	return strings.Join([]string{string(e.Type), e.WUID, e.Timestamp}, "|")
}

// Validate checks the common fields and the fields required by the event type.
func (e Event) Validate() error {
	if !e.Type.IsValid() {
		return NewError(CodeValidation, "unknown event type %q", e.Type)
	}
	if _, err := ParseWUNumber(e.WUID); err != nil {
		return WrapError(CodeValidation, err, "%s event", e.Type)
	}
	if _, err := e.Time(); err != nil {
		return NewError(CodeValidation, "%s event for %s: invalid timestamp %q", e.Type, e.WUID, e.Timestamp)
	}
	missing := func(field string) error {
		return NewError(CodeValidation, "%s event for %s: missing %s", e.Type, e.WUID, field)
	}
	switch e.Type {
	case EventCreate, EventClaim:
		if e.Lane == "" {
			return missing("lane")
		}
		if e.Title == "" {
			return missing("title")
		}
	case EventBlock, EventRelease:
		if e.Reason == "" {
			return missing("reason")
		}
	case EventCheckpoint:
		if e.Note == "" {
			return missing("note")
		}
	case EventDelegation:
		if e.ParentWUID == "" {
			return missing("parentWuId")
		}
	}
	return nil
}

// WUState is the status derived by replaying a work unit's events.
// Fields are ordered to minimize memory padding.
type WUState struct {
	WUID        string
	Status      Status
	Lane        string
	Title       string
	Reason      string
	LastNote    string
	ParentWUID  string
	ClaimedAt   string
	CompletedAt string
	EventCount  int
}

// Apply folds one event into the state. Events for other WUs are ignored.
func (s WUState) Apply(e Event) WUState {
	if s.WUID == "" {
		s.WUID = e.WUID
	}
	if e.WUID != s.WUID {
		return s
	}
	s.EventCount++
	if e.Lane != "" {
		s.Lane = e.Lane
	}
	if e.Title != "" {
		s.Title = e.Title
	}
	switch e.Type {
	case EventCreate:
		s.Status = StatusInProgress
	case EventClaim:
		s.Status = StatusInProgress
		s.ClaimedAt = e.Timestamp
		s.Reason = ""
	case EventBlock:
		s.Status = StatusBlocked
		s.Reason = e.Reason
	case EventUnblock:
		s.Status = StatusInProgress
		s.Reason = ""
	case EventRelease:
		s.Status = StatusReady
		s.Reason = e.Reason
	case EventComplete:
		s.Status = StatusDone
		s.CompletedAt = e.Timestamp
	case EventCheckpoint:
		s.LastNote = e.Note
	case EventDelegation:
		s.ParentWUID = e.ParentWUID
	}
	return s
}

// Replay folds events in the given order and returns the state per WU.
func Replay(events []Event) map[string]WUState {
	states := make(map[string]WUState)
	for _, e := range events {
		states[e.WUID] = states[e.WUID].Apply(e)
	}
	return states
}
