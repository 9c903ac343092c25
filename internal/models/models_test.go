package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_Layouts(t *testing.T) {
	cases := map[string]time.Time{
		"2024-01-15T10:30:00Z":       time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		"2024-01-15T10:30:00.123456": time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC),
		"2024-01-15 10:30:00":        time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		"2024-01-15T16:00:00+05:30":  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		"2024-01-15T10:30:00.5":      time.Date(2024, 1, 15, 10, 30, 0, 500000000, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: want %v got %v", in, want, got)
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestClockEntry_DecodesBackendPayload(t *testing.T) {
	payload := `{"id":3,"worker_id":1,"project_id":9,"clock_in_time":"2024-01-15T09:00:00","clock_out_time":null,"total_hours":null}`

	var entry ClockEntry
	require.NoError(t, json.Unmarshal([]byte(payload), &entry))

	assert.Equal(t, 3, entry.ID)
	assert.Nil(t, entry.ClockOutTime)
	assert.Nil(t, entry.TotalHours)
	assert.Equal(t, 9, entry.ClockInTime.Hour())
}

func TestActionKind(t *testing.T) {
	assert.True(t, ActionClockIn.Valid())
	assert.True(t, ActionClockOut.Valid())
	assert.False(t, ActionKind("pause").Valid())
	assert.Equal(t, "Clock Out", ActionClockOut.Label())
}

func TestAuditAction(t *testing.T) {
	for _, a := range AuditActions {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, AuditAction("").Valid())
	assert.False(t, AuditAction("queue.flush").Valid())
}
