package eventstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/testutil"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func storeOf(t *testing.T, events ...domain.Event) *Store {
	t.Helper()
	s := New(&testutil.MockClock{NowTime: at(60)})
	for _, e := range events {
		require.NoError(t, s.ApplyEvent(e))
	}
	return s
}

func TestParse(t *testing.T) {
	data := strings.Join([]string{
		`{"id":"a","type":"claim","wuId":"WU-1","timestamp":"2026-03-02T09:00:00Z","lane":"Core","title":"Parser"}`,
		``,
		`{"type":"block","wuId":"WU-1","timestamp":"2026-03-02T09:05:00Z","reason":"api down"}`,
		`{"id":"c","type":"claim","wuId":"WU-2","timestamp":"2026-03-02T09:06:00Z","lane":"Ops","title":"Deploy"}`,
	}, "\n")

	s, err := Parse([]byte(data), nil)

	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	st, ok := s.WUState("WU-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusBlocked, st.Status)
	assert.Equal(t, "api down", st.Reason)
	assert.Equal(t, []string{"WU-1", "WU-2"}, s.WUIDs())
	assert.Len(t, s.EventsFor("WU-1"), 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"malformed json", "{\"type\":\"claim\"\n", "line 1: malformed JSON"},
		{"unknown type", `{"type":"merge","wuId":"WU-1","timestamp":"2026-03-02T09:00:00Z"}`, "unknown event type"},
		{"missing reason", "\n" + `{"type":"block","wuId":"WU-1","timestamp":"2026-03-02T09:00:00Z"}`, "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), nil)

			require.Error(t, err)
			assert.True(t, domain.HasCode(err, domain.CodeValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "wu-events.jsonl"), nil)

	require.NoError(t, err)
	assert.Zero(t, s.Len())
	_, ok := s.WUState("WU-1")
	assert.False(t, ok, "untracked WUs fall back to their document status")
}

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "wu-events.jsonl")
	s := storeOf(t,
		domain.NewClaimEvent("WU-1", "Core", "Parser", at(0)),
		domain.NewCheckpointEvent("WU-1", "halfway", at(1)),
	)

	require.NoError(t, s.Save(path))
	loaded, err := Load(path, nil)

	require.NoError(t, err)
	assert.Equal(t, s.Events(), loaded.Events())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimRight(string(data), "\n"), "\n"), 2, "one JSON object per line")
	assert.Contains(t, string(data), `"wuId":"WU-1"`)
}

func TestStore_ApplyEventRejectsInvalid(t *testing.T) {
	s := storeOf(t)

	err := s.ApplyEvent(domain.Event{Type: domain.EventBlock, WUID: "WU-1", Timestamp: at(0).Format(time.RFC3339)})

	require.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestStore_ByStatus(t *testing.T) {
	s := storeOf(t,
		domain.NewClaimEvent("WU-10", "Core", "Ten", at(0)),
		domain.NewClaimEvent("WU-9", "Core", "Nine", at(1)),
		domain.NewClaimEvent("WU-3", "Ops", "Three", at(2)),
		domain.NewBlockEvent("WU-3", "waiting on ops", at(3)),
	)

	inProgress := s.ByStatus(domain.StatusInProgress)

	require.Len(t, inProgress, 2)
	assert.Equal(t, "WU-9", inProgress[0].WUID)
	assert.Equal(t, "WU-10", inProgress[1].WUID)
	assert.Len(t, s.ByStatus(domain.StatusBlocked), 1)
	assert.True(t, s.HasEvent("WU-3", domain.EventBlock))
	assert.False(t, s.HasEvent("WU-3", domain.EventComplete))
}

func TestStore_CreateHelpersUseClock(t *testing.T) {
	s := storeOf(t)

	e := s.CreateCompleteEvent("WU-1")

	assert.Equal(t, domain.EventComplete, e.Type)
	assert.Equal(t, at(60).Format(time.RFC3339Nano), e.Timestamp)
	assert.Equal(t, domain.EventRelease, s.CreateReleaseEvent("WU-1", "r").Type)
}
