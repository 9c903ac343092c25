// Package assistant answers simple lookup questions about workers, projects
// and their time entries.
package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/crewclock/internal/models"
)

// NoMatch is the reply when the question names no known worker or project.
const NoMatch = "No matching worker or project found."

const timeLayout = "2006-01-02 15:04"

// Data is what the assistant can look things up in.
type Data struct {
	Workers  []models.Worker
	Projects []models.Project
	Entries  []models.DisplayEntry
}

// Assistant answers questions. Times are shown in loc.
type Assistant struct {
	loc *time.Location
}

// New creates an assistant rendering times in loc (UTC when nil).
func New(loc *time.Location) *Assistant {
	if loc == nil {
		loc = time.UTC
	}
	return &Assistant{loc: loc}
}

// Answer replies to question. Matching is case-insensitive and tried in order:
// a worker named exactly, a project named exactly, then a worker and a
// project both mentioned in the question.
func (a *Assistant) Answer(question string, d Data) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return ""
	}

	var exactWorker, mentionedWorker *models.Worker
	for i := range d.Workers {
		name := strings.ToLower(d.Workers[i].Name)
		if exactWorker == nil && name == q {
			exactWorker = &d.Workers[i]
		}
		if mentionedWorker == nil && name != "" && strings.Contains(q, name) {
			mentionedWorker = &d.Workers[i]
		}
	}
	var exactProject, mentionedProject *models.Project
	for i := range d.Projects {
		name := strings.ToLower(d.Projects[i].Name)
		if exactProject == nil && name == q {
			exactProject = &d.Projects[i]
		}
		if mentionedProject == nil && name != "" && strings.Contains(q, name) {
			mentionedProject = &d.Projects[i]
		}
	}

	var b strings.Builder
	switch {
	case exactWorker != nil:
		fmt.Fprintf(&b, "Worker: %s\nRole: %s\n", exactWorker.Name, exactWorker.Role)
		matched := filter(d.Entries, func(e models.DisplayEntry) bool { return e.WorkerID == exactWorker.ID })
		if len(matched) == 0 {
			b.WriteString("\nNo time entries yet.\n")
			break
		}
		b.WriteString("\nTime Entries:\n")
		for _, e := range matched {
			fmt.Fprintf(&b, "- Project: %s, In: %s, Out: %s%s\n", e.ProjectName, a.format(e.ClockInTime), a.out(e), marker(e))
		}

	case exactProject != nil:
		fmt.Fprintf(&b, "Project: %s\n", exactProject.Name)
		matched := filter(d.Entries, func(e models.DisplayEntry) bool { return e.ProjectID == exactProject.ID })
		if len(matched) == 0 {
			b.WriteString("\nNo workers have clocked in yet.\n")
			break
		}
		b.WriteString("\nWorkers in this project:\n")
		for _, e := range matched {
			fmt.Fprintf(&b, "- %s: In %s, Out: %s%s\n", e.WorkerName, a.format(e.ClockInTime), a.out(e), marker(e))
		}

	case mentionedWorker != nil && mentionedProject != nil:
		fmt.Fprintf(&b, "Worker %s in Project %s\n", mentionedWorker.Name, mentionedProject.Name)
		matched := filter(d.Entries, func(e models.DisplayEntry) bool {
			return e.WorkerID == mentionedWorker.ID && e.ProjectID == mentionedProject.ID
		})
		if len(matched) == 0 {
			b.WriteString("No entries yet.\n")
			break
		}
		for _, e := range matched {
			fmt.Fprintf(&b, "- In: %s, Out: %s%s\n", a.format(e.ClockInTime), a.out(e), marker(e))
		}

	default:
		return NoMatch
	}
	return b.String()
}

func (a *Assistant) format(t time.Time) string {
	return t.In(a.loc).Format(timeLayout)
}

func (a *Assistant) out(e models.DisplayEntry) string {
	if e.ClockOutTime == nil {
		return "In Progress"
	}
	return a.format(*e.ClockOutTime)
}

func marker(e models.DisplayEntry) string {
	if e.Offline {
		return " (waiting to sync)"
	}
	return ""
}

func filter(entries []models.DisplayEntry, keep func(models.DisplayEntry) bool) []models.DisplayEntry {
	var out []models.DisplayEntry
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
