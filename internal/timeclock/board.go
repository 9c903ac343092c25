package timeclock

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/offline"
)

// WorkerStatus is the attendance state shown next to a worker.
type WorkerStatus int

const (
	StatusAvailable WorkerStatus = iota
	StatusActive
	StatusWaitingToSync
)

// WorkerRow is one line of the worker action list.
type WorkerRow struct {
	Worker      models.Worker
	Status      WorkerStatus
	ProjectName string
	// Action is what the worker's button does next.
	Action models.ActionKind
}

// StatusText renders the row status.
func (r WorkerRow) StatusText() string {
	switch r.Status {
	case StatusActive:
		return "Active on " + r.ProjectName
	case StatusWaitingToSync:
		return "Waiting to Sync on " + r.ProjectName
	default:
		return "Available"
	}
}

// Stats are the headline numbers above the board.
type Stats struct {
	TotalWorkers  int
	TotalCheckins int
	// AttendanceRate is the share of workers with at least one entry, in percent.
	AttendanceRate float64
}

// AttendanceText renders the rate with one decimal, or "0%" with no workers.
func (s Stats) AttendanceText() string {
	if s.TotalWorkers == 0 {
		return "0%"
	}
	return strconv.FormatFloat(s.AttendanceRate, 'f', 1, 64) + "%"
}

// PendingItem is a queued action with display context.
type PendingItem struct {
	Action      models.PendingAction
	WorkerName  string
	ProjectName string
	// Duplicate is set when an earlier queued action has the same kind,
	// worker and project.
	Duplicate bool
}

// Board is everything the time-clock screen renders.
type Board struct {
	Entries  []models.DisplayEntry
	Workers  []WorkerRow
	Projects []models.Project
	Pending  []PendingItem
	Stats    Stats
}

// BuildBoard assembles a board from fetched data and a queue snapshot.
func BuildBoard(entries []models.ClockEntry, workers []models.Worker, projects []models.Project, pending []models.PendingAction) *Board {
	names := offline.NewNames(workers, projects)
	merged := offline.Merge(entries, pending, names)

	b := &Board{
		Entries:  merged,
		Projects: projects,
		Pending:  pendingItems(pending, names),
		Stats:    computeStats(merged, workers),
	}

	lastPending := make(map[int]models.PendingAction)
	for _, a := range pending {
		lastPending[a.WorkerID] = a
	}

	for _, w := range workers {
		row := WorkerRow{Worker: w, Action: models.ActionClockIn}
		active, isActive := offline.ActiveEntry(merged, w.ID)
		if isActive {
			row.Action = models.ActionClockOut
		}
		switch a, waiting := lastPending[w.ID]; {
		case waiting:
			row.Status = StatusWaitingToSync
			row.ProjectName = names.Project(a.ProjectID)
		case isActive:
			row.Status = StatusActive
			row.ProjectName = active.ProjectName
		}
		b.Workers = append(b.Workers, row)
	}
	return b
}

func computeStats(entries []models.DisplayEntry, workers []models.Worker) Stats {
	s := Stats{TotalWorkers: len(workers), TotalCheckins: len(entries)}
	if len(workers) == 0 {
		return s
	}
	seen := make(map[int]bool)
	for _, e := range entries {
		seen[e.WorkerID] = true
	}
	s.AttendanceRate = float64(len(seen)) / float64(len(workers)) * 100
	return s
}

func pendingItems(pending []models.PendingAction, names offline.Names) []PendingItem {
	type key struct {
		kind    models.ActionKind
		worker  int
		project int
	}
	seen := make(map[key]bool)
	items := make([]PendingItem, 0, len(pending))
	for _, a := range pending {
		k := key{a.Kind, a.WorkerID, a.ProjectID}
		items = append(items, PendingItem{
			Action:      a,
			WorkerName:  names.Worker(a.WorkerID),
			ProjectName: names.Project(a.ProjectID),
			Duplicate:   seen[k],
		})
		seen[k] = true
	}
	return items
}

// FindWorker resolves ref as a worker id or a case-insensitive exact name.
func FindWorker(workers []models.Worker, ref string) (models.Worker, error) {
	ref = strings.TrimSpace(ref)
	id, idErr := strconv.Atoi(ref)
	for _, w := range workers {
		if (idErr == nil && w.ID == id) || strings.EqualFold(w.Name, ref) {
			return w, nil
		}
	}
	return models.Worker{}, fmt.Errorf("%w: %s", ErrUnknownWorker, ref)
}

// FindProject resolves ref as a project id or a case-insensitive exact name.
func FindProject(projects []models.Project, ref string) (models.Project, error) {
	ref = strings.TrimSpace(ref)
	id, idErr := strconv.Atoi(ref)
	for _, p := range projects {
		if (idErr == nil && p.ID == id) || strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return models.Project{}, fmt.Errorf("%w: %s", ErrUnknownProject, ref)
}
