package main

import (
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/timeclock"
)

const timeLayout = "2006-01-02 15:04"

func workersOf(b *timeclock.Board) []models.Worker {
	out := make([]models.Worker, len(b.Workers))
	for i, r := range b.Workers {
		out[i] = r.Worker
	}
	return out
}

func filterEntries(entries []models.DisplayEntry, keep func(models.DisplayEntry) bool) []models.DisplayEntry {
	var out []models.DisplayEntry
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
