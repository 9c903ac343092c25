package offline

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/fentz26/crewclock/internal/models"
)

// Names resolves worker and project ids to display names.
type Names struct {
	Workers  map[int]string
	Projects map[int]string
}

// NewNames indexes workers and projects by id.
func NewNames(workers []models.Worker, projects []models.Project) Names {
	n := Names{
		Workers:  make(map[int]string, len(workers)),
		Projects: make(map[int]string, len(projects)),
	}
	for _, w := range workers {
		n.Workers[w.ID] = w.Name
	}
	for _, p := range projects {
		n.Projects[p.ID] = p.Name
	}
	return n
}

// Worker returns the worker's name, or "ID: n" when unknown.
func (n Names) Worker(id int) string {
	if name, ok := n.Workers[id]; ok {
		return name
	}
	return fmt.Sprintf("ID: %d", id)
}

// Project returns the project's name, or "ID: n" when unknown.
func (n Names) Project(id int) string {
	if name, ok := n.Projects[id]; ok {
		return name
	}
	return fmt.Sprintf("ID: %d", id)
}

type mergeRow struct {
	entry     models.DisplayEntry
	fromQueue bool
}

// Merge combines server entries with queued actions into display rows sorted
// by clock-in time, newest first. Pending clock-ins become open offline rows.
// Pending clock-outs are applied in queue order: each closes the worker's open
// row with the latest clock-in not after the clock-out, or becomes a
// standalone orphan row when there is none. Equal clock-in times list queued
// rows before server rows and otherwise keep input order. Inputs are not
// modified.
func Merge(server []models.ClockEntry, pending []models.PendingAction, names Names) []models.DisplayEntry {
	rows := make([]*mergeRow, 0, len(server)+len(pending))

	for _, e := range server {
		de := models.DisplayEntry{
			ID:          strconv.Itoa(e.ID),
			WorkerID:    e.WorkerID,
			ProjectID:   e.ProjectID,
			WorkerName:  names.Worker(e.WorkerID),
			ProjectName: names.Project(e.ProjectID),
			ClockInTime: e.ClockInTime.Time,
		}
		if e.ClockOutTime != nil && !e.ClockOutTime.IsZero() {
			out := e.ClockOutTime.Time
			de.ClockOutTime = &out
		}
		if e.TotalHours != nil {
			h := *e.TotalHours
			de.TotalHours = &h
		}
		rows = append(rows, &mergeRow{entry: de})
	}

	for _, a := range pending {
		switch a.Kind {
		case models.ActionClockIn:
			rows = append(rows, &mergeRow{
				entry: models.DisplayEntry{
					ID:          a.LocalID,
					WorkerID:    a.WorkerID,
					ProjectID:   a.ProjectID,
					WorkerName:  names.Worker(a.WorkerID),
					ProjectName: names.Project(a.ProjectID),
					ClockInTime: a.Timestamp,
					Offline:     true,
				},
				fromQueue: true,
			})
		case models.ActionClockOut:
			if target := openRowFor(rows, a.WorkerID, a.Timestamp); target != nil {
				out := a.Timestamp
				hours := roundHours(out.Sub(target.entry.ClockInTime))
				target.entry.ClockOutTime = &out
				target.entry.TotalHours = &hours
				target.entry.Offline = true
				target.entry.PendingClockOut = true
				continue
			}
			out := a.Timestamp
			rows = append(rows, &mergeRow{
				entry: models.DisplayEntry{
					ID:             a.LocalID,
					WorkerID:       a.WorkerID,
					ProjectID:      a.ProjectID,
					WorkerName:     names.Worker(a.WorkerID),
					ProjectName:    names.Project(a.ProjectID),
					ClockInTime:    a.Timestamp,
					ClockOutTime:   &out,
					Offline:        true,
					OrphanClockOut: true,
				},
				fromQueue: true,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.entry.ClockInTime.Equal(b.entry.ClockInTime) {
			return a.entry.ClockInTime.After(b.entry.ClockInTime)
		}
		return a.fromQueue && !b.fromQueue
	})

	out := make([]models.DisplayEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out
}

// openRowFor finds the worker's open row with the latest clock-in at or before
// ts. Later rows win ties.
func openRowFor(rows []*mergeRow, workerID int, ts time.Time) *mergeRow {
	var best *mergeRow
	for _, r := range rows {
		if r.entry.WorkerID != workerID || !r.entry.Open() || r.entry.ClockInTime.After(ts) {
			continue
		}
		if best == nil || !r.entry.ClockInTime.Before(best.entry.ClockInTime) {
			best = r
		}
	}
	return best
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

// ActiveEntry returns the first open row for workerID, synced or not.
func ActiveEntry(entries []models.DisplayEntry, workerID int) (models.DisplayEntry, bool) {
	for _, e := range entries {
		if e.WorkerID == workerID && e.Open() {
			return e, true
		}
	}
	return models.DisplayEntry{}, false
}
