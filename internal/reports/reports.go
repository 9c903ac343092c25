// Package reports computes project and attendance summaries.
package reports

import (
	"sort"
	"strconv"
	"time"

	"github.com/fentz26/crewclock/internal/models"
)

// Summary holds the dashboard headline numbers.
type Summary struct {
	TotalProjects     int
	ActiveProjects    int
	CompletedProjects int
	TeamMembers       int
	// SuccessRate is completed over total projects, in percent.
	SuccessRate float64
}

// SuccessText renders the success rate with one decimal.
func (s Summary) SuccessText() string {
	if s.TotalProjects == 0 {
		return "0%"
	}
	return strconv.FormatFloat(s.SuccessRate, 'f', 1, 64) + "%"
}

// HoursRow aggregates entries for one project or worker.
type HoursRow struct {
	ID      int
	Name    string
	Entries int
	Open    int
	Hours   float64
}

// Report is a full summary with per-project and per-worker hours.
type Report struct {
	Summary
	ByProject   []HoursRow
	ByWorker    []HoursRow
	GeneratedAt time.Time
}

// Summarize computes the headline numbers.
func Summarize(projects []models.Project, workers []models.Worker) Summary {
	s := Summary{TotalProjects: len(projects), TeamMembers: len(workers)}
	for _, p := range projects {
		switch p.Status {
		case models.ProjectInProgress:
			s.ActiveProjects++
		case models.ProjectCompleted:
			s.CompletedProjects++
		}
	}
	if s.TotalProjects > 0 {
		s.SuccessRate = float64(s.CompletedProjects) / float64(s.TotalProjects) * 100
	}
	return s
}

// Build computes a report. Open entries count up to now.
func Build(projects []models.Project, workers []models.Worker, entries []models.ClockEntry, now time.Time) Report {
	r := Report{Summary: Summarize(projects, workers), GeneratedAt: now}

	byProject := make(map[int]*HoursRow, len(projects))
	for _, p := range projects {
		byProject[p.ID] = &HoursRow{ID: p.ID, Name: p.Name}
	}
	byWorker := make(map[int]*HoursRow, len(workers))
	for _, w := range workers {
		byWorker[w.ID] = &HoursRow{ID: w.ID, Name: w.Name}
	}

	for _, e := range entries {
		hours, open := entryHours(e, now)
		for _, row := range []*HoursRow{rowFor(byProject, e.ProjectID), rowFor(byWorker, e.WorkerID)} {
			row.Entries++
			row.Hours += hours
			if open {
				row.Open++
			}
		}
	}

	r.ByProject = sortedRows(byProject)
	r.ByWorker = sortedRows(byWorker)
	return r
}

func rowFor(rows map[int]*HoursRow, id int) *HoursRow {
	row, ok := rows[id]
	if !ok {
		row = &HoursRow{ID: id, Name: "ID: " + strconv.Itoa(id)}
		rows[id] = row
	}
	return row
}

// entryHours prefers the backend's total, then the recorded span, then the
// span up to now for open entries.
func entryHours(e models.ClockEntry, now time.Time) (float64, bool) {
	if e.ClockOutTime == nil || e.ClockOutTime.IsZero() {
		d := now.Sub(e.ClockInTime.Time)
		if d < 0 {
			d = 0
		}
		return d.Hours(), true
	}
	if e.TotalHours != nil {
		return *e.TotalHours, false
	}
	return e.ClockOutTime.Sub(e.ClockInTime.Time).Hours(), false
}

func sortedRows(rows map[int]*HoursRow) []HoursRow {
	out := make([]HoursRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		return out[i].ID < out[j].ID
	})
	return out
}
