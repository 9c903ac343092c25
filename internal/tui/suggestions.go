package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Suggestions provides autocomplete for the command bar
type Suggestions struct {
	items        []SuggestionItem
	filtered     []SuggestionItem
	selectedIdx  int
	visible      bool
	prefix       string // "/" or "@"
	currentInput string
}

// SuggestionItem represents a single autocomplete suggestion
type SuggestionItem struct {
	Text        string
	Description string
	Type        string // "command", "worker", "project"
}

var commandSuggestions = []SuggestionItem{
	{Text: "sync", Description: "Replay offline clock actions", Type: "command"},
	{Text: "refresh", Description: "Reload entries, workers and projects", Type: "command"},
	{Text: "project", Description: "Select the project by name or id", Type: "command"},
	{Text: "drop", Description: "Remove a queued action by local id", Type: "command"},
	{Text: "ask", Description: "Ask about a worker or project", Type: "command"},
}

// NewSuggestions creates a new suggestions handler
func NewSuggestions() *Suggestions {
	return &Suggestions{
		items: commandSuggestions,
	}
}

// Update updates suggestions based on current input
func (s *Suggestions) Update(input string) {
	s.currentInput = input
	if input == "" {
		s.visible = false
		s.filtered = nil
		s.prefix = ""
		return
	}

	switch input[0] {
	case '/':
		// Only the command word is completed.
		if strings.Contains(input, " ") {
			s.visible = false
			return
		}
		s.prefix = "/"
		s.items = commandSuggestions
		s.visible = true
		s.filter(strings.ToLower(strings.TrimPrefix(input, "/")))
	case '@':
		s.prefix = "@"
		if len(s.items) > 0 && s.items[0].Type == "command" {
			s.items = nil
		}
		s.visible = true
		s.filter(strings.ToLower(strings.TrimPrefix(input, "@")))
	default:
		s.visible = false
		s.filtered = nil
		s.prefix = ""
	}
}

// SetNames updates the worker and project references offered after "@"
func (s *Suggestions) SetNames(workers, projects []string) {
	if s.prefix != "@" {
		return
	}
	s.items = make([]SuggestionItem, 0, len(workers)+len(projects))
	for _, w := range workers {
		s.items = append(s.items, SuggestionItem{Text: w, Description: "Worker", Type: "worker"})
	}
	for _, p := range projects {
		s.items = append(s.items, SuggestionItem{Text: p, Description: "Project", Type: "project"})
	}
	s.filter(strings.ToLower(strings.TrimPrefix(s.currentInput, "@")))
}

func (s *Suggestions) filter(query string) {
	s.selectedIdx = 0
	if query == "" {
		s.filtered = s.items
		return
	}

	s.filtered = nil
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Text), query) {
			s.filtered = append(s.filtered, item)
		}
	}
}

// Next moves to the next suggestion
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the currently selected suggestion
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.IsVisible() || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// Accept returns the input with the selected suggestion filled in.
func (s *Suggestions) Accept() (string, bool) {
	sel := s.Selected()
	if sel == nil {
		return "", false
	}
	var out string
	if s.prefix == "/" {
		out = "/" + sel.Text + " "
	} else {
		out = sel.Text
	}
	s.Update("")
	return out, true
}

// IsVisible returns whether suggestions are currently visible
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render renders the suggestions dropdown
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	boxWidth := width - 4
	if boxWidth < 20 {
		boxWidth = 20
	}
	suggestionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(boxWidth)

	itemStyle := lipgloss.NewStyle().Foreground(fgColor)
	descStyle := lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	pickedStyle := lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true)

	header := "Commands"
	if s.prefix == "@" {
		header = "Workers & Projects"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render(header))
	b.WriteString("\n")

	maxVisible := 5
	for i, item := range s.filtered {
		if i >= maxVisible {
			b.WriteString(descStyle.Render(fmt.Sprintf("  ... and %d more", len(s.filtered)-maxVisible)))
			break
		}

		var line string
		if i == s.selectedIdx {
			line = pickedStyle.Render("▶ " + item.Text)
		} else {
			line = itemStyle.Render("  " + item.Text)
		}
		if item.Description != "" {
			line += " " + descStyle.Render(item.Description)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return suggestionStyle.Render(b.String())
}
