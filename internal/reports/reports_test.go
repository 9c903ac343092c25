package reports

import (
	"testing"
	"time"

	"github.com/fentz26/crewclock/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

func ts(h int) models.Timestamp {
	return models.Timestamp{Time: time.Date(2024, 3, 4, h, 0, 0, 0, time.UTC)}
}

func ptr[T any](v T) *T { return &v }

func TestSummarize(t *testing.T) {
	projects := []models.Project{
		{ID: 1, Status: models.ProjectInProgress},
		{ID: 2, Status: models.ProjectCompleted},
		{ID: 3, Status: models.ProjectPlanned},
	}
	s := Summarize(projects, []models.Worker{{ID: 1}, {ID: 2}})

	assert.Equal(t, 3, s.TotalProjects)
	assert.Equal(t, 1, s.ActiveProjects)
	assert.Equal(t, 1, s.CompletedProjects)
	assert.Equal(t, 2, s.TeamMembers)
	assert.Equal(t, "33.3%", s.SuccessText())

	assert.Equal(t, "0%", Summarize(nil, nil).SuccessText())
}

func TestBuild_Hours(t *testing.T) {
	projects := []models.Project{{ID: 9, Name: "Atlas"}, {ID: 4, Name: "Borealis"}}
	workers := []models.Worker{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}
	entries := []models.ClockEntry{
		{ID: 1, WorkerID: 1, ProjectID: 9, ClockInTime: ts(8), ClockOutTime: ptr(ts(12)), TotalHours: ptr(4.0)},
		{ID: 2, WorkerID: 1, ProjectID: 9, ClockInTime: ts(13), ClockOutTime: ptr(ts(15))},
		{ID: 3, WorkerID: 2, ProjectID: 4, ClockInTime: ts(16)},
		{ID: 4, WorkerID: 7, ProjectID: 9, ClockInTime: ts(9), ClockOutTime: ptr(ts(10)), TotalHours: ptr(1.0)},
	}

	r := Build(projects, workers, entries, now)

	wantProjects := []HoursRow{
		{ID: 9, Name: "Atlas", Entries: 3, Hours: 7},
		{ID: 4, Name: "Borealis", Entries: 1, Open: 1, Hours: 1},
	}
	if diff := cmp.Diff(wantProjects, r.ByProject, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("ByProject mismatch (-want +got):\n%s", diff)
	}

	wantWorkers := []HoursRow{
		{ID: 1, Name: "Alice", Entries: 2, Hours: 6},
		{ID: 2, Name: "Bob", Entries: 1, Open: 1, Hours: 1},
		{ID: 7, Name: "ID: 7", Entries: 1, Hours: 1},
	}
	if diff := cmp.Diff(wantWorkers, r.ByWorker, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("ByWorker mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, now, r.GeneratedAt)
}
