package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// DetailPane renders one task's full record in a viewport, so long
// descriptions and relation lists stay scrollable.
type DetailPane struct {
	viewport viewport.Model
	content  string
	ready    bool
	width    int
	height   int
}

// NewDetailPane creates a new DetailPane.
func NewDetailPane(width, height int) *DetailPane {
	return &DetailPane{
		viewport: viewport.New(width, height),
		width:    width,
		height:   height,
	}
}

func (d *DetailPane) SetSize(width, height int) {
	d.width = width
	d.height = height
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !d.ready {
		d.viewport = viewport.New(vpWidth, height)
		d.viewport.HighPerformanceRendering = false
		d.ready = true
	} else {
		d.viewport.Width = vpWidth
		d.viewport.Height = height
	}
	d.updateContent()
}

// SetContent replaces the pane content and scrolls back to the top.
func (d *DetailPane) SetContent(content string) {
	d.content = content
	d.updateContent()
	d.viewport.GotoTop()
}

func (d *DetailPane) updateContent() {
	width := d.viewport.Width
	content := d.content
	if width > 0 {
		content = detailStyle.Copy().Width(width).Render(content)
	} else {
		content = detailStyle.Render(content)
	}
	d.viewport.SetContent(content)
}

func (d *DetailPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return cmd
}

func (d *DetailPane) View() string {
	if !d.ready {
		return ""
	}

	if d.viewport.TotalLineCount() <= d.viewport.Height {
		return d.viewport.View()
	}

	h := d.viewport.Height
	percent := d.viewport.ScrollPercent()

	handlePos := int(float64(h-1) * percent)

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, d.viewport.View(), sb.String())
}

func (d *DetailPane) Height() int {
	return d.viewport.Height
}
