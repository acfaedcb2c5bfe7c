package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	highPriorityStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("196")).
				Padding(0, 1)

	mediumPriorityStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("214")).
				Padding(0, 1)

	lowPriorityStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("42")).
				Padding(0, 1)

	noPriorityStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	groupTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

// NextEntry is one ready-to-start task together with the importance it
// inherits from the work it unblocks. An empty Importance means nothing
// downstream carries one.
type NextEntry struct {
	UID        int64
	Name       string
	Importance string
}

// NextPanel renders the tasks that are ready to start, grouped by
// inherited importance with the most important group first.
type NextPanel struct {
	Entries []NextEntry
	Width   int
	Title   string
}

func NewNextPanel(width int) *NextPanel {
	return &NextPanel{
		Entries: make([]NextEntry, 0),
		Width:   width,
		Title:   "Next up",
	}
}

func (p *NextPanel) View() string {
	groups := []struct {
		level string
		title string
		style lipgloss.Style
	}{
		{"high", "High", highPriorityStyle},
		{"medium", "Medium", mediumPriorityStyle},
		{"low", "Low", lowPriorityStyle},
		{"", "Unprioritised", noPriorityStyle},
	}

	var boxes []string
	for _, g := range groups {
		entries := p.entriesAt(g.level)
		if len(entries) == 0 {
			continue
		}
		boxes = append(boxes, p.renderBox(g.title, entries, g.style))
	}

	var content string
	if len(boxes) == 0 {
		content = placeholderStyle.Render("Nothing ready to start")
	} else {
		content = strings.Join(boxes, "\n")
	}

	result := content
	if p.Title != "" {
		result = panelHeaderStyle.Render(p.Title) + "\n" + content
	}
	return result
}

func (p *NextPanel) entriesAt(level string) []NextEntry {
	var entries []NextEntry
	for _, e := range p.Entries {
		if e.Importance == level {
			entries = append(entries, e)
		}
	}
	return entries
}

func (p *NextPanel) renderBox(title string, entries []NextEntry, style lipgloss.Style) string {
	boxWidth := p.Width

	groupTitle := groupTitleStyle.Foreground(style.GetForeground()).Render(title)

	innerWidth := boxWidth - 4
	if innerWidth < 0 {
		innerWidth = 0
	}

	var lines []string
	labelWidth := innerWidth - 2
	if labelWidth < 0 {
		labelWidth = 0
	}

	for _, e := range entries {
		label := fmt.Sprintf("[%d]", e.UID)
		if e.Name != "" {
			label = fmt.Sprintf("[%d] %s", e.UID, e.Name)
		}
		wrapped := lipgloss.NewStyle().Width(labelWidth).Render(label)
		labelLines := strings.Split(wrapped, "\n")
		for i, line := range labelLines {
			if i == 0 {
				lines = append(lines, fmt.Sprintf("● %s", line))
			} else {
				lines = append(lines, fmt.Sprintf("  %s", line))
			}
		}
	}

	body := strings.Join(lines, "\n")
	return style.Width(boxWidth).Render(groupTitle + "\n" + body)
}
