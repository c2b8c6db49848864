package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestNewEvent(t *testing.T) {
	local := eventTime.In(time.FixedZone("CET", 3600))

	e := NewClaimEvent("WU-1", "Core", "Add parser", local)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventClaim, e.Type)
	assert.Equal(t, "2026-03-02T09:00:00Z", e.Timestamp, "timestamps are stored in UTC")
	assert.Equal(t, "Core", e.Lane)
	require.NoError(t, e.Validate())

	other := NewClaimEvent("WU-1", "Core", "Add parser", local)
	assert.NotEqual(t, e.ID, other.ID)
}

func TestEvent_Key(t *testing.T) {
	e := NewBlockEvent("WU-1", "api", eventTime)
	assert.Equal(t, "id:"+e.ID, e.Key())

	e.ID = ""
	assert.Equal(t, "block|WU-1|2026-03-02T09:00:00Z", e.Key())
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{"unknown type", Event{Type: "merge", WUID: "WU-1", Timestamp: "2026-03-02T09:00:00Z"}},
		{"bad wu id", Event{Type: EventUnblock, WUID: "TASK-1", Timestamp: "2026-03-02T09:00:00Z"}},
		{"bad timestamp", Event{Type: EventUnblock, WUID: "WU-1", Timestamp: "yesterday"}},
		{"claim without lane", Event{Type: EventClaim, WUID: "WU-1", Title: "T", Timestamp: "2026-03-02T09:00:00Z"}},
		{"block without reason", Event{Type: EventBlock, WUID: "WU-1", Timestamp: "2026-03-02T09:00:00Z"}},
		{"release without reason", Event{Type: EventRelease, WUID: "WU-1", Timestamp: "2026-03-02T09:00:00Z"}},
		{"checkpoint without note", Event{Type: EventCheckpoint, WUID: "WU-1", Timestamp: "2026-03-02T09:00:00Z"}},
		{"delegation without parent", Event{Type: EventDelegation, WUID: "WU-1", Timestamp: "2026-03-02T09:00:00Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			require.Error(t, err)
			assert.True(t, HasCode(err, CodeValidation))
		})
	}

	assert.NoError(t, NewUnblockEvent("WU-1", eventTime).Validate())
	assert.NoError(t, NewCompleteEvent("WU-1", eventTime).Validate())
	assert.NoError(t, NewDelegationEvent("WU-2", "WU-1", eventTime).Validate())
}

func TestReplay(t *testing.T) {
	at := func(m int) time.Time { return eventTime.Add(time.Duration(m) * time.Minute) }
	events := []Event{
		NewClaimEvent("WU-1", "Core", "Parser", at(0)),
		NewClaimEvent("WU-2", "Ops", "Deploy", at(1)),
		NewBlockEvent("WU-1", "api down", at(2)),
		NewCheckpointEvent("WU-1", "stubbed api", at(3)),
		NewUnblockEvent("WU-1", at(4)),
		NewDelegationEvent("WU-2", "WU-1", at(5)),
		NewCompleteEvent("WU-1", at(6)),
		NewReleaseEvent("WU-2", "reassign", at(7)),
	}

	states := Replay(events)

	require.Len(t, states, 2)
	wu1 := states["WU-1"]
	assert.Equal(t, StatusDone, wu1.Status)
	assert.Equal(t, "Core", wu1.Lane)
	assert.Equal(t, "Parser", wu1.Title)
	assert.Empty(t, wu1.Reason, "unblock clears the reason")
	assert.Equal(t, "stubbed api", wu1.LastNote)
	assert.Equal(t, events[0].Timestamp, wu1.ClaimedAt)
	assert.Equal(t, events[6].Timestamp, wu1.CompletedAt)
	assert.Equal(t, 5, wu1.EventCount)

	wu2 := states["WU-2"]
	assert.Equal(t, StatusReady, wu2.Status)
	assert.Equal(t, "reassign", wu2.Reason)
	assert.Equal(t, "WU-1", wu2.ParentWUID)
}

func TestWUState_ApplyIgnoresOtherWUs(t *testing.T) {
	s := WUState{}.Apply(NewClaimEvent("WU-1", "Core", "Parser", eventTime))

	s = s.Apply(NewBlockEvent("WU-2", "other", eventTime))

	assert.Equal(t, StatusInProgress, s.Status)
	assert.Equal(t, 1, s.EventCount)
}

func TestWUState_CreateDerivesInProgress(t *testing.T) {
	s := WUState{}.Apply(NewCreateEvent("WU-1", "Core", "Parser", eventTime))

	assert.Equal(t, StatusInProgress, s.Status)
}
