package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"

	"github.com/ldi/trellis/internal/db"
	"github.com/ldi/trellis/internal/editor"
	"github.com/ldi/trellis/internal/task"
	"github.com/ldi/trellis/internal/ui/components"
	"github.com/ldi/trellis/pkg/models"
)

var (
	orbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	headerTextStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Padding(1, 2)

	paneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	emptyListStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			PaddingLeft(2)

	statusInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

type browserMode int

const (
	modeList browserMode = iota
	modeForm
	modeHierarchy
)

// taskRow is one list entry: the stored task plus the progress and
// importance the network resolves for it.
type taskRow struct {
	task       *models.Task
	progress   models.Progress
	inferred   bool
	importance *models.Importance
	supertasks []int64
	subtasks   []int64
	dependees  []int64
	dependents []int64
}

// formState is an open add or edit dialog. The TaskForm owns the
// absent-field rules; the inputs only hold the text being typed.
type formState struct {
	form    *editor.TaskForm
	name    textinput.Model
	desc    textinput.Model
	focus   int
	editing bool
}

type tasksLoadedMsg struct {
	rows   []taskRow
	ranked []task.Ranked
}

type opDoneMsg struct {
	status string
	focus  int64
}

type opFailedMsg struct {
	err error
}

// BrowserModel is the interactive task browser: a list of every task, a
// detail pane for the selection, a next-up sidebar, and dialogs for the
// add-task and add-hierarchy flows.
type BrowserModel struct {
	db *db.DB

	rows   []taskRow
	byUID  map[int64]*models.Task
	cursor int

	detail *components.DetailPane
	next   *components.NextPanel

	mode         browserMode
	form         *formState
	session      *editor.HierarchySession
	sessionFocus int

	selectedUID   int64
	pendingDelete int64
	status        string
	statusErr     bool

	width        int
	height       int
	sidebarWidth int
	mainWidth    int
	ready        bool
	quitting     bool
	err          error
}

func NewBrowserModel(database *db.DB) *BrowserModel {
	return &BrowserModel{
		db:     database,
		byUID:  make(map[int64]*models.Task),
		detail: components.NewDetailPane(0, 12),
		next:   components.NewNextPanel(0),
	}
}

func (m *BrowserModel) Init() tea.Cmd {
	return m.loadTasks()
}

func (m *BrowserModel) loadTasks() tea.Cmd {
	return func() tea.Msg {
		sys, err := m.db.LoadSystem(context.Background())
		if err != nil {
			return err
		}

		uids := sys.Tasks()
		rows := make([]taskRow, 0, len(uids))
		for _, uid := range uids {
			progress, err := sys.Progress(uid)
			if err != nil {
				return err
			}
			importance, err := sys.EffectiveImportance(uid)
			if err != nil {
				return err
			}
			t := sys.Task(uid)
			rows = append(rows, taskRow{
				task:       t,
				progress:   progress,
				inferred:   t.Progress == nil,
				importance: importance,
				supertasks: sortedUIDs(sys.Supertasks(uid)),
				subtasks:   sortedUIDs(sys.Subtasks(uid)),
				dependees:  sortedUIDs(sys.Dependees(uid)),
				dependents: sortedUIDs(sys.Dependents(uid)),
			})
		}

		return tasksLoadedMsg{rows: rows, ranked: sys.ActiveConcreteTasksByPriority()}
	}
}

// runOp performs a store mutation off the update loop and reports the
// outcome as a message.
func (m *BrowserModel) runOp(status string, op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := op(context.Background()); err != nil {
			return opFailedMsg{err: err}
		}
		return opDoneMsg{status: status}
	}
}

func (m *BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeHierarchy:
			return m.updateHierarchy(msg)
		default:
			return m.updateList(msg)
		}

	case tea.MouseMsg:
		return m, m.detail.Update(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.recalculateLayout()

	case tasksLoadedMsg:
		m.rows = msg.rows
		m.byUID = make(map[int64]*models.Task, len(msg.rows))
		for _, row := range msg.rows {
			m.byUID[row.task.UID] = row.task
		}
		m.next.Entries = nextEntries(msg.ranked)
		m.cursor = 0
		for i, row := range m.rows {
			if row.task.UID == m.selectedUID {
				m.cursor = i
				break
			}
		}
		m.syncSelection()

	case opDoneMsg:
		m.mode = modeList
		m.form = nil
		m.session = nil
		m.pendingDelete = 0
		m.status = msg.status
		m.statusErr = false
		if msg.focus != 0 {
			m.selectedUID = msg.focus
		}
		return m, m.loadTasks()

	case opFailedMsg:
		// The open dialog stays up so the selection can be corrected.
		m.status = msg.err.Error()
		m.statusErr = true

	case error:
		m.err = msg
		return m, tea.Quit
	}

	return m, nil
}

func (m *BrowserModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" || key == "q" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.pendingDelete != 0 {
		uid := m.pendingDelete
		m.pendingDelete = 0
		m.status = ""
		if key == "y" {
			return m, m.runOp(fmt.Sprintf("Deleted task [%d]", uid), func(ctx context.Context) error {
				return m.db.DeleteTask(ctx, uid)
			})
		}
		return m, nil
	}

	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.syncSelection()
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.syncSelection()
		}

	case "a":
		return m, m.openForm(nil)

	case "e", "enter":
		if row := m.selected(); row != nil {
			return m, m.openForm(row.task)
		}

	case "h":
		m.openSession()

	case "+", "=":
		return m, m.stepProgress(editor.NextProgress)

	case "-", "_":
		return m, m.stepProgress(editor.PrevProgress)

	case "i":
		return m, m.cycleImportance()

	case "d":
		if row := m.selected(); row != nil {
			m.pendingDelete = row.task.UID
			m.status = fmt.Sprintf("Delete task [%d]? Press 'y' to confirm", row.task.UID)
			m.statusErr = false
		}

	case "r":
		return m, m.loadTasks()
	}

	return m, nil
}

// stepProgress moves the selected task's progress one step in either
// direction. Tasks with subtasks have no progress of their own to step.
func (m *BrowserModel) stepProgress(step func(models.Progress) (models.Progress, bool)) tea.Cmd {
	row := m.selected()
	if row == nil {
		return nil
	}
	if row.task.Progress == nil {
		m.status = fmt.Sprintf("Task [%d] infers its progress from its subtasks", row.task.UID)
		m.statusErr = true
		return nil
	}

	next, ok := step(*row.task.Progress)
	if !ok {
		return nil
	}

	uid := row.task.UID
	return m.runOp(fmt.Sprintf("Task [%d] is now %s", uid, next), func(ctx context.Context) error {
		return m.db.SetTaskProgress(ctx, uid, next)
	})
}

func (m *BrowserModel) cycleImportance() tea.Cmd {
	row := m.selected()
	if row == nil {
		return nil
	}

	uid := row.task.UID
	next := nextImportance(row.task.Importance)
	status := fmt.Sprintf("Task [%d] importance cleared", uid)
	if next != nil {
		status = fmt.Sprintf("Task [%d] importance set to %s", uid, *next)
	}
	return m.runOp(status, func(ctx context.Context) error {
		return m.db.SetTaskImportance(ctx, uid, next)
	})
}

// nextImportance cycles none, low, medium, high, none.
func nextImportance(current *models.Importance) *models.Importance {
	options := editor.ImportanceOptions()
	level := editor.ImportanceNone
	if current != nil {
		level = string(*current)
	}
	for i, option := range options {
		if option != level {
			continue
		}
		following := options[(i+1)%len(options)]
		if following == editor.ImportanceNone {
			return nil
		}
		importance := models.Importance(following)
		return &importance
	}
	return nil
}

func (m *BrowserModel) openForm(t *models.Task) tea.Cmd {
	form := &editor.TaskForm{}
	if t != nil {
		form = editor.NewTaskForm(t)
	}

	name := textinput.New()
	name.Placeholder = "name"
	name.CharLimit = 200
	name.Width = 48
	name.SetValue(form.Name)

	desc := textinput.New()
	desc.Placeholder = "description"
	desc.CharLimit = 500
	desc.Width = 48
	desc.SetValue(form.Description)

	m.mode = modeForm
	m.form = &formState{form: form, name: name, desc: desc, editing: t != nil}
	m.status = ""
	m.statusErr = false
	return m.form.name.Focus()
}

func (m *BrowserModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.mode = modeList
		m.form = nil
		return m, nil

	case "tab", "shift+tab", "up", "down":
		if m.form.focus == 0 {
			m.form.focus = 1
			m.form.name.Blur()
			return m, m.form.desc.Focus()
		}
		m.form.focus = 0
		m.form.desc.Blur()
		return m, m.form.name.Focus()

	case "enter":
		return m, m.saveForm()
	}

	var cmd tea.Cmd
	if m.form.focus == 0 {
		m.form.name, cmd = m.form.name.Update(msg)
	} else {
		m.form.desc, cmd = m.form.desc.Update(msg)
	}
	return m, cmd
}

func (m *BrowserModel) saveForm() tea.Cmd {
	form := m.form.form
	form.Name = m.form.name.Value()
	form.Description = m.form.desc.Value()

	name := form.NameValue()
	description := form.DescriptionValue()

	if m.form.editing {
		uid := form.UID
		return m.runOp(fmt.Sprintf("Updated task [%d]", uid), func(ctx context.Context) error {
			if err := m.db.SetTaskName(ctx, uid, name); err != nil {
				return err
			}
			return m.db.SetTaskDescription(ctx, uid, description)
		})
	}

	return func() tea.Msg {
		created, err := m.db.CreateTask(context.Background(), name, description)
		if err != nil {
			return opFailedMsg{err: err}
		}
		return opDoneMsg{status: fmt.Sprintf("Created task [%d]", created.UID), focus: created.UID}
	}
}

func (m *BrowserModel) openSession() {
	tasks := make([]*models.Task, 0, len(m.rows))
	for _, row := range m.rows {
		tasks = append(tasks, row.task)
	}

	session, err := editor.NewHierarchySession(tasks)
	if err != nil {
		m.status = err.Error()
		m.statusErr = true
		return
	}

	m.mode = modeHierarchy
	m.session = session
	m.sessionFocus = 0
	m.status = ""
	m.statusErr = false
}

func (m *BrowserModel) updateHierarchy(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.mode = modeList
		m.session = nil
		return m, nil

	case "tab":
		m.sessionFocus = 1 - m.sessionFocus

	case "up", "k":
		m.moveSessionSelection(-1)

	case "down", "j":
		m.moveSessionSelection(1)

	case "enter":
		session := m.session
		super, sub := session.Supertask(), session.Subtask()
		return m, m.runOp(fmt.Sprintf("Task [%d] is now a subtask of task [%d]", sub, super), func(ctx context.Context) error {
			return session.Apply(ctx, m.db)
		})
	}

	return m, nil
}

func (m *BrowserModel) moveSessionSelection(direction int) {
	options := m.session.Options()
	if len(options) == 0 {
		return
	}

	current := m.session.Supertask()
	if m.sessionFocus == 1 {
		current = m.session.Subtask()
	}

	idx := 0
	for i, option := range options {
		if option.UID == current {
			idx = i
			break
		}
	}
	idx += direction
	if idx < 0 {
		idx = 0
	}
	if idx >= len(options) {
		idx = len(options) - 1
	}

	var err error
	if m.sessionFocus == 1 {
		err = m.session.SelectSubtask(options[idx].UID)
	} else {
		err = m.session.SelectSupertask(options[idx].UID)
	}
	if err != nil {
		m.status = err.Error()
		m.statusErr = true
	}
}

func (m *BrowserModel) selected() *taskRow {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return &m.rows[m.cursor]
}

func (m *BrowserModel) syncSelection() {
	row := m.selected()
	if row == nil {
		m.selectedUID = 0
		m.detail.SetContent("")
		return
	}
	m.selectedUID = row.task.UID
	m.detail.SetContent(m.detailContent(row))
}

func (m *BrowserModel) recalculateLayout() {
	if !m.ready {
		return
	}

	m.sidebarWidth = m.width / 4
	if m.sidebarWidth < 24 {
		m.sidebarWidth = 24
	}
	m.mainWidth = m.width - m.sidebarWidth

	m.next.Width = m.sidebarWidth - 1

	headerHeight := lipgloss.Height(m.renderHeader())
	helpHeight := 1
	availableHeight := m.height - headerHeight - helpHeight
	if availableHeight < 10 {
		availableHeight = 10
	}

	detailHeight := availableHeight / 2
	if detailHeight > 14 {
		detailHeight = 14
	}
	m.detail.SetSize(m.mainWidth-2, detailHeight)
	m.syncSelection()
}

func (m *BrowserModel) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}
	if !m.ready {
		return "Loading tasks..."
	}

	header := m.renderHeader()

	bottom := m.renderHelp()
	if status := m.renderStatus(); status != "" {
		bottom = status + "\n" + bottom
	}

	availableHeight := m.height - lipgloss.Height(header) - lipgloss.Height(bottom)
	if availableHeight < 0 {
		availableHeight = 0
	}

	sidebar := lipgloss.NewStyle().
		Width(m.sidebarWidth-1).
		Height(availableHeight).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color("240")).
		Render(m.next.View())

	var main string
	switch m.mode {
	case modeForm:
		main = m.renderForm()
	case modeHierarchy:
		main = m.renderSession()
	default:
		main = m.renderList(availableHeight)
	}

	mainArea := lipgloss.NewStyle().
		Width(m.mainWidth).
		Height(availableHeight).
		Render(main)

	content := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, mainArea)

	return header + "\n" + content + "\n" + bottom
}

func (m *BrowserModel) renderHeader() string {
	headerText := fmt.Sprintf("Trellis | Tasks: %d | Ready: %d", len(m.rows), len(m.next.Entries))

	orb := orbStyle.Render("⬤")
	text := headerTextStyle.Render(headerText)

	header := lipgloss.JoinHorizontal(lipgloss.Center, orb, "  ", text)
	return headerStyle.Copy().Width(m.width - 4).Render(header)
}

func (m *BrowserModel) renderList(height int) string {
	detailHeight := m.detail.Height()
	listHeight := height - detailHeight - 1
	if listHeight < 1 {
		listHeight = 1
	}

	var rendered []string
	for i, row := range m.rows {
		rendered = append(rendered, m.renderRow(row, i == m.cursor))
	}
	if len(rendered) == 0 {
		rendered = append(rendered, emptyListStyle.Render("No tasks yet. Press 'a' to add one."))
	}

	lines := strings.Split(strings.Join(rendered, "\n"), "\n")

	start := 0
	if m.cursor >= listHeight {
		start = m.cursor - listHeight + 1
	}
	end := start + listHeight
	if end > len(lines) {
		end = len(lines)
	}
	list := strings.Join(lines[start:end], "\n")

	clippedHeight := lipgloss.Height(list)
	if clippedHeight < listHeight {
		list += strings.Repeat("\n", listHeight-clippedHeight)
	}

	return list + "\n" + m.detail.View()
}

func (m *BrowserModel) renderRow(row taskRow, selected bool) string {
	label := fmt.Sprintf("[%d]", row.task.UID)
	if name := row.task.DisplayName(); name != "" {
		label = fmt.Sprintf("[%d] %s", row.task.UID, name)
	}

	line := fmt.Sprintf("%s %s", progressGlyph(row.progress), label)
	if row.importance != nil {
		line = fmt.Sprintf("%s · %s", line, *row.importance)
	}

	styled := itemStyle.Render("  " + line)
	if selected {
		styled = selectedItemStyle.Render("> " + line)
	}
	return lipgloss.NewStyle().MaxWidth(m.mainWidth - 1).Render(styled)
}

func (m *BrowserModel) renderForm() string {
	title := "Add task"
	if m.form.editing {
		title = fmt.Sprintf("Edit task [%d]", m.form.form.UID)
	}

	var b strings.Builder
	b.WriteString(paneTitleStyle.Render(title) + "\n\n")
	b.WriteString("  Name\n")
	b.WriteString("  " + m.form.name.View() + "\n\n")
	b.WriteString("  Description\n")
	b.WriteString("  " + m.form.desc.View() + "\n\n")
	b.WriteString(dimStyle.Render("  Blank fields are stored as absent, not as empty text."))
	return b.String()
}

func (m *BrowserModel) renderSession() string {
	var b strings.Builder
	b.WriteString(paneTitleStyle.Render("Add hierarchy") + "\n\n")
	b.WriteString(m.renderSelector("Supertask", m.session.Supertask(), m.sessionFocus == 0))
	b.WriteString("\n")
	b.WriteString(m.renderSelector("Subtask", m.session.Subtask(), m.sessionFocus == 1))
	return b.String()
}

func (m *BrowserModel) renderSelector(title string, selected int64, focused bool) string {
	var b strings.Builder

	heading := dimStyle.Render("  " + title)
	if focused {
		heading = paneTitleStyle.Render(" " + title)
	}
	b.WriteString(heading + "\n")

	for _, option := range m.session.Options() {
		marker := "  "
		if option.UID == selected {
			marker = "> "
		}
		line := marker + option.Label
		if focused && option.UID == selected {
			b.WriteString(selectedItemStyle.Render(line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m *BrowserModel) detailContent(row *taskRow) string {
	t := row.task

	title := fmt.Sprintf("[%d]", t.UID)
	if name := t.DisplayName(); name != "" {
		title = fmt.Sprintf("[%d] %s", t.UID, name)
	}

	progress := string(row.progress)
	if row.inferred {
		progress += " (inferred)"
	}

	importance := "none"
	if row.importance != nil {
		importance = string(*row.importance)
		if t.Importance == nil {
			importance += " (inherited)"
		}
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	b.WriteString(fmt.Sprintf("Progress:    %s\n", progress))
	b.WriteString(fmt.Sprintf("Importance:  %s\n", importance))
	b.WriteString(fmt.Sprintf("Created:     %s\n", humanize.Time(t.CreatedAt)))
	b.WriteString(fmt.Sprintf("Updated:     %s\n", humanize.Time(t.UpdatedAt)))

	if t.Description != nil {
		b.WriteString("\n" + *t.Description + "\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Supertasks:  %s\n", m.relationLine(row.supertasks)))
	b.WriteString(fmt.Sprintf("Subtasks:    %s\n", m.relationLine(row.subtasks)))
	b.WriteString(fmt.Sprintf("Depends on:  %s\n", m.relationLine(row.dependees)))
	b.WriteString(fmt.Sprintf("Blocks:      %s\n", m.relationLine(row.dependents)))

	return b.String()
}

func (m *BrowserModel) relationLine(uids []int64) string {
	if len(uids) == 0 {
		return "(none)"
	}

	labels := make([]string, 0, len(uids))
	for _, uid := range uids {
		label := fmt.Sprintf("[%d]", uid)
		if t, ok := m.byUID[uid]; ok && t.DisplayName() != "" {
			label = fmt.Sprintf("[%d] %s", uid, t.DisplayName())
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ", ")
}

func (m *BrowserModel) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return statusErrorStyle.Render(m.status)
	}
	return statusInfoStyle.Render(m.status)
}

func (m *BrowserModel) renderHelp() string {
	var help string
	switch m.mode {
	case modeForm:
		help = "'enter' save • 'tab' switch field • 'esc' cancel"
	case modeHierarchy:
		help = "'enter' apply • 'tab' switch selector • 'j'/'k' select • 'esc' cancel"
	default:
		help = "'j'/'k' move • 'a' add • 'e' edit • 'h' hierarchy • '+'/'-' progress • 'i' importance • 'd' delete • 'q' quit"
	}
	return helpStyle.Render(help)
}

func progressGlyph(p models.Progress) string {
	switch p {
	case models.ProgressCompleted:
		return "●"
	case models.ProgressInProgress:
		return "◐"
	}
	return "○"
}

func nextEntries(ranked []task.Ranked) []components.NextEntry {
	entries := make([]components.NextEntry, 0, len(ranked))
	for _, r := range ranked {
		entry := components.NextEntry{UID: r.Task.UID, Name: r.Task.DisplayName()}
		if r.Importance != nil {
			entry.Importance = string(*r.Importance)
		}
		entries = append(entries, entry)
	}
	return entries
}

func sortedUIDs(uids []int64) []int64 {
	slices.Sort(uids)
	return uids
}

// RunBrowser opens the task browser over the given store.
func RunBrowser(database *db.DB) error {
	m := NewBrowserModel(database)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
