package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/timeclock"
)

const clockLayout = "Jan 02 15:04"

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.renderHeader() + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	contentHeight := a.height - 10
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch {
	case a.loading && a.board == nil:
		b.WriteString("\n  Loading time clock...\n")
	case a.loadErr != nil && a.board == nil:
		b.WriteString("\n  " + offlineStyle.Render("Failed to load data. Please check your connection.") + "\n")
		b.WriteString("  " + mutedStyle.Render(a.loadErr.Error()) + "\n")
	default:
		b.WriteString(a.renderStats() + "\n")
		switch a.mode {
		case modeWorkers:
			b.WriteString(a.renderWorkers(contentHeight))
		case modeEntries:
			b.WriteString(a.renderEntries(contentHeight))
		case modePending:
			b.WriteString(a.renderPending(contentHeight))
		case modeAsk:
			b.WriteString(a.renderTranscript(contentHeight))
		}
	}

	// Notification bar
	b.WriteString("\n")
	if a.notice != "" {
		style := lipgloss.NewStyle().Foreground(successColor)
		if a.noticeErr {
			style = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString(style.Render(a.notice))
	}
	b.WriteString("\n")

	if a.input.Focused() {
		b.WriteString(inputBoxStyle.Render(a.input.View()))
		if a.suggestions.IsVisible() {
			b.WriteString("\n" + a.suggestions.Render(a.width))
		}
		b.WriteString("\n")
	}

	b.WriteString(statusBarStyle.Width(max(a.width, 1)).Render(a.statusLine()))
	return b.String()
}

func (a *App) renderHeader() string {
	header := titleStyle.Render("crewclock Time Clock")

	if a.opts.IsOnline != nil {
		if a.opts.IsOnline() {
			header += "  " + onlineStyle.Render("● online")
		} else {
			header += "  " + offlineStyle.Render("○ offline")
		}
	}
	if a.board != nil && len(a.board.Pending) > 0 {
		header += "  " + waitingStyle.Render(fmt.Sprintf("[%d waiting to sync]", len(a.board.Pending)))
	}
	if a.opts.Username != "" {
		header += "  " + mutedStyle.Render(a.opts.Username)
	}
	return header
}

func (a *App) renderStats() string {
	s := a.board.Stats
	project := "none (press p)"
	if p := a.selectedProject(); p != nil {
		project = p.Name
	}
	return fmt.Sprintf(" Total Workers: %d   Total Check-ins: %d   Attendance Rate: %s   Project: %s",
		s.TotalWorkers, s.TotalCheckins, s.AttendanceText(), project)
}

func (a *App) renderWorkers(height int) string {
	if len(a.board.Workers) == 0 {
		return "\n  No workers found.\n"
	}

	lines := make([]string, 0, len(a.board.Workers))
	for i, row := range a.board.Workers {
		button := "[" + row.Action.Label() + "]"
		if a.busy[row.Worker.ID] {
			button = "[...]"
		}
		text := fmt.Sprintf("%-20s %-32s %s", row.Worker.Name, row.StatusText(), button)
		if i == a.workerIdx {
			lines = append(lines, selectedStyle.Render("▶ "+text))
			continue
		}
		lines = append(lines, rowStyle.Render("  "+styleStatus(row, text)))
	}
	return strings.Join(window(lines, a.workerIdx, height), "\n")
}

func styleStatus(row timeclock.WorkerRow, text string) string {
	switch row.Status {
	case timeclock.StatusActive:
		return onlineStyle.Render(text)
	case timeclock.StatusWaitingToSync:
		return waitingStyle.Render(text)
	default:
		return text
	}
}

func (a *App) renderEntries(height int) string {
	if len(a.board.Entries) == 0 {
		return "\n  No clock entries yet.\n"
	}

	lines := []string{mutedStyle.Render(fmt.Sprintf("  %-20s %-20s %-14s %s", "WORKER", "PROJECT", "CLOCK IN", "CLOCK OUT"))}
	for _, e := range a.board.Entries {
		line := fmt.Sprintf("  %-20s %-20s %-14s %s", e.WorkerName, e.ProjectName, formatClock(e.ClockInTime), clockOutText(e))
		if e.Offline {
			line = waitingStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(window(lines, 0, height), "\n")
}

func clockOutText(e models.DisplayEntry) string {
	var out string
	switch {
	case e.OrphanClockOut:
		out = formatClock(*e.ClockOutTime) + " (no clock-in)"
	case e.ClockOutTime == nil:
		out = "Active"
	default:
		out = formatClock(*e.ClockOutTime)
	}
	if e.Offline {
		out += "  ⏳ Waiting to Sync"
	}
	return out
}

func (a *App) renderPending(height int) string {
	if len(a.board.Pending) == 0 {
		return "\n  Nothing waiting to sync.\n"
	}

	lines := make([]string, 0, len(a.board.Pending))
	for i, item := range a.board.Pending {
		text := fmt.Sprintf("%-9s %-18s %-18s %s  %s", item.Action.Kind.Label(), item.WorkerName, item.ProjectName,
			formatClock(item.Action.Timestamp), item.Action.LocalID)
		if item.Duplicate {
			text += "  (duplicate)"
		}
		if i == a.pendingIdx {
			lines = append(lines, selectedStyle.Render("▶ "+text))
			continue
		}
		lines = append(lines, rowStyle.Render("  "+text))
	}
	return strings.Join(window(lines, a.pendingIdx, height), "\n")
}

func (a *App) renderTranscript(height int) string {
	if len(a.transcript) == 0 {
		return "\n  " + mutedStyle.Render("Ask about a worker or project, e.g. \"Alice\" or \"Alice on Atlas\".") + "\n"
	}
	var lines []string
	for _, t := range a.transcript {
		lines = append(lines, strings.Split(strings.TrimRight(t, "\n"), "\n")...)
	}
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

func (a *App) statusLine() string {
	var keys string
	switch a.mode {
	case modeWorkers:
		keys = "↑↓:nav | Enter:clock in/out | p:project | s:sync | r:refresh"
	case modePending:
		keys = "↑↓:nav | d:drop | s:sync"
	case modeAsk:
		keys = "type a question | Esc:back"
	default:
		keys = "s:sync | r:refresh"
	}
	return fmt.Sprintf(" %s | %s | Tab:view | /:command | q:quit", modeNames[a.mode], keys)
}

func formatClock(t time.Time) string {
	return t.Local().Format(clockLayout)
}

// window limits lines to height, keeping the selected line visible.
func window(lines []string, selected, height int) []string {
	if len(lines) <= height {
		return lines
	}
	start := selected - height/2
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > len(lines) {
		end = len(lines)
		start = max(0, end-height)
	}
	return lines[start:end]
}
