package views

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pablasso/parcours/internal/journal"
	"github.com/pablasso/parcours/internal/path"
	"github.com/pablasso/parcours/internal/render"
	"github.com/pablasso/parcours/internal/tui/components"
	"github.com/pablasso/parcours/internal/tui/msgs"
	"github.com/pablasso/parcours/internal/tui/styles"
)

const flashDuration = 3 * time.Second

// Flash messages shown after each action.
const (
	FlashStepMoved         = "Step moved"
	FlashStepAdded         = "Step added"
	FlashStepDeleted       = "Step deleted"
	FlashStepUpdated       = "Step updated"
	FlashResourceAdded     = "Resource added"
	FlashResourceDeleted   = "Resource deleted"
	FlashTitleUpdated      = "Title updated"
	FlashObjectivesUpdated = "Objectives updated"
)

// EditorMode is what the editor is currently capturing input for.
type EditorMode int

const (
	// ModeBrowse navigates steps and resources.
	ModeBrowse EditorMode = iota
	// ModeStepTitle edits the selected step's title.
	ModeStepTitle
	// ModeStepTask edits the selected step's task.
	ModeStepTask
	// ModeResourceTitle asks for a new resource's title.
	ModeResourceTitle
	// ModeResourceURL asks for a new resource's optional URL.
	ModeResourceURL
	// ModePathTitle edits the path title.
	ModePathTitle
	// ModeObjectives edits the learning objectives.
	ModeObjectives
)

// Saver persists snapshots without blocking the update loop.
type Saver interface {
	Save(snapshot path.LearningPath)
}

// Recorder appends applied changes to the journal.
type Recorder interface {
	Record(write func(*journal.Journal) error)
}

// EditorConfig holds initialization parameters.
type EditorConfig struct {
	Store    *path.Store
	Saver    Saver
	Recorder Recorder
	// SaveErrors delivers failures from the background writer, if any.
	SaveErrors <-chan error
	// Notice is shown as an error flash on the first frame.
	Notice string
}

// EditorModel edits a learning path in place.
type EditorModel struct {
	store    *path.Store
	saver    Saver
	recorder Recorder
	errs     <-chan error

	mode   EditorMode
	cursor int // index of the selected step
	// resCursor is the selected resource within the selected step, -1 for none.
	resCursor int

	input textinput.Model
	area  textarea.Model
	// newResourceTitle holds the title while the URL is being typed.
	newResourceTitle string

	flash    string
	flashErr bool
	flashSeq int

	width  int
	height int
}

// NewEditorModel creates the editor over config.Store.
func NewEditorModel(config EditorConfig) EditorModel {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 60

	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(6)
	ta.SetWidth(60)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	m := EditorModel{
		store:     config.Store,
		saver:     config.Saver,
		recorder:  config.Recorder,
		errs:      config.SaveErrors,
		resCursor: -1,
		input:     ti,
		area:      ta,
	}
	if config.Notice != "" {
		m.flash = config.Notice
		m.flashErr = true
	}
	return m
}

// Init implements tea.Model.
func (m EditorModel) Init() tea.Cmd {
	return m.waitForSaveError()
}

// waitForSaveError turns the next writer failure into a message.
func (m EditorModel) waitForSaveError() tea.Cmd {
	if m.errs == nil {
		return nil
	}
	errs := m.errs
	return func() tea.Msg {
		err, ok := <-errs
		if !ok {
			return nil
		}
		return msgs.SaveFailedMsg{Err: err}
	}
}

// Update implements tea.Model.
func (m EditorModel) Update(msg tea.Msg) (EditorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if msg.Width > 8 {
			m.input.Width = msg.Width - 8
			m.area.SetWidth(msg.Width - 4)
		}
		return m, nil

	case msgs.SaveFailedMsg:
		cmd := m.setFlash(fmt.Sprintf("Save failed: %v", msg.Err), true)
		return m, tea.Batch(cmd, m.waitForSaveError())

	case msgs.FlashExpiredMsg:
		if msg.Seq == m.flashSeq {
			m.flash = ""
			m.flashErr = false
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeBrowse:
			return m.handleBrowseKeys(msg)
		case ModeStepTitle, ModeResourceTitle, ModeResourceURL, ModePathTitle:
			return m.handleInputKeys(msg)
		case ModeStepTask, ModeObjectives:
			return m.handleAreaKeys(msg)
		}
	}

	return m.updateEditors(msg)
}

// updateEditors forwards non-key messages (such as cursor blinks) to the
// active text control.
func (m EditorModel) updateEditors(msg tea.Msg) (EditorModel, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case ModeStepTitle, ModeResourceTitle, ModeResourceURL, ModePathTitle:
		m.input, cmd = m.input.Update(msg)
	case ModeStepTask, ModeObjectives:
		m.area, cmd = m.area.Update(msg)
	}
	return m, cmd
}

func (m EditorModel) handleBrowseKeys(msg tea.KeyMsg) (EditorModel, tea.Cmd) {
	snapshot := m.store.Snapshot()

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.resCursor = -1
		}
	case "down", "j":
		if m.cursor < len(snapshot.Steps)-1 {
			m.cursor++
			m.resCursor = -1
		}

	case "K", "shift+up":
		return m.moveStep(m.cursor - 1)
	case "J", "shift+down":
		return m.moveStep(m.cursor + 1)

	case "a":
		after := m.store.AddStep()
		m.cursor = len(after.Steps) - 1
		m.resCursor = -1
		id := after.Steps[m.cursor].ID
		m.commit(after, func(j *journal.Journal) error { return j.StepAdded(id) })
		return m, m.setFlash(FlashStepAdded, false)

	case "d":
		step, ok := m.selectedStep()
		if !ok {
			return m, nil
		}
		after := m.store.DeleteStep(step.ID)
		if m.cursor >= len(after.Steps) && m.cursor > 0 {
			m.cursor = len(after.Steps) - 1
		}
		m.resCursor = -1
		m.commit(after, func(j *journal.Journal) error { return j.StepDeleted(step.ID) })
		return m, m.setFlash(FlashStepDeleted, false)

	case "t":
		if step, ok := m.selectedStep(); ok {
			return m, m.openInput(ModeStepTitle, step.Title, "Step title")
		}
	case "e":
		if step, ok := m.selectedStep(); ok {
			return m, m.openArea(ModeStepTask, step.Task, "What should the learner do?")
		}
	case "r":
		if _, ok := m.selectedStep(); ok {
			m.newResourceTitle = ""
			return m, m.openInput(ModeResourceTitle, "", "Resource title")
		}

	case "[":
		if m.resCursor > 0 {
			m.resCursor--
		}
	case "]":
		if step, ok := m.selectedStep(); ok && m.resCursor < len(step.Resources)-1 {
			m.resCursor++
		}
	case "x":
		step, ok := m.selectedStep()
		if !ok || m.resCursor < 0 || m.resCursor >= len(step.Resources) {
			return m, nil
		}
		res := step.Resources[m.resCursor]
		after := m.store.DeleteResource(step.ID, res.ID)
		if m.resCursor >= len(step.Resources)-1 {
			m.resCursor = len(step.Resources) - 2
		}
		m.commit(after, func(j *journal.Journal) error { return j.ResourceDeleted(step.ID, res.ID) })
		return m, m.setFlash(FlashResourceDeleted, false)

	case "T":
		return m, m.openInput(ModePathTitle, snapshot.Title, "Path title")
	case "o":
		return m, m.openArea(ModeObjectives, snapshot.Objectives, "What will the learner be able to do?")
	}

	return m, nil
}

// moveStep moves the selected step to index to and keeps it selected.
func (m EditorModel) moveStep(to int) (EditorModel, tea.Cmd) {
	from := m.cursor
	steps := m.store.Snapshot().Steps
	if to < 0 || to >= len(steps) || from == to {
		return m, nil
	}

	after := m.store.ReorderSteps(from, to)
	m.cursor = to
	id := after.Steps[to].ID
	m.commit(after, func(j *journal.Journal) error { return j.StepMoved(id, from+1, to+1) })
	return m, m.setFlash(FlashStepMoved, false)
}

func (m EditorModel) handleInputKeys(msg tea.KeyMsg) (EditorModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeEditors()
		return m, nil
	case "enter":
		return m.submitInput(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m EditorModel) handleAreaKeys(msg tea.KeyMsg) (EditorModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeEditors()
		return m, nil
	case "ctrl+s":
		return m.submitArea(m.area.Value())
	}

	var cmd tea.Cmd
	m.area, cmd = m.area.Update(msg)
	return m, cmd
}

func (m EditorModel) submitInput(value string) (EditorModel, tea.Cmd) {
	mode := m.mode
	m.closeEditors()

	switch mode {
	case ModePathTitle:
		after := m.store.SetTitle(value)
		m.commit(after, (*journal.Journal).TitleChanged)
		return m, m.setFlash(FlashTitleUpdated, false)

	case ModeStepTitle:
		step, ok := m.selectedStep()
		if !ok {
			return m, nil
		}
		return m.updateStep(step.ID, path.StepPatch{Title: &value})

	case ModeResourceTitle:
		if strings.TrimSpace(value) == "" {
			return m, m.setFlash("A resource needs a title", true)
		}
		m.newResourceTitle = value
		return m, m.openInput(ModeResourceURL, "", "https://… (optional)")

	case ModeResourceURL:
		step, ok := m.selectedStep()
		if !ok {
			return m, nil
		}
		after, err := m.store.AddResource(step.ID, path.NewResource{Title: m.newResourceTitle, URL: value})
		m.newResourceTitle = ""
		if err != nil {
			return m, m.setFlash(errorFlash(err), true)
		}
		updated, _ := after.Step(step.ID)
		added := updated.Resources[len(updated.Resources)-1]
		m.resCursor = len(updated.Resources) - 1
		m.commit(after, func(j *journal.Journal) error { return j.ResourceAdded(step.ID, added.ID, added.Title) })
		return m, m.setFlash(FlashResourceAdded, false)
	}
	return m, nil
}

func (m EditorModel) submitArea(value string) (EditorModel, tea.Cmd) {
	mode := m.mode
	m.closeEditors()

	switch mode {
	case ModeObjectives:
		after := m.store.SetObjectives(value)
		m.commit(after, (*journal.Journal).ObjectivesChanged)
		return m, m.setFlash(FlashObjectivesUpdated, false)

	case ModeStepTask:
		step, ok := m.selectedStep()
		if !ok {
			return m, nil
		}
		return m.updateStep(step.ID, path.StepPatch{Task: &value})
	}
	return m, nil
}

func (m EditorModel) updateStep(id int, patch path.StepPatch) (EditorModel, tea.Cmd) {
	after, err := m.store.UpdateStep(id, patch)
	if err != nil {
		return m, m.setFlash(errorFlash(err), true)
	}
	m.commit(after, func(j *journal.Journal) error { return j.StepUpdated(id) })
	return m, m.setFlash(FlashStepUpdated, false)
}

// commit hands the new snapshot to the saver and journals the change.
func (m EditorModel) commit(snapshot path.LearningPath, record func(*journal.Journal) error) {
	if m.saver != nil {
		m.saver.Save(snapshot)
	}
	if m.recorder != nil {
		m.recorder.Record(record)
	}
}

func (m *EditorModel) openInput(mode EditorMode, value, placeholder string) tea.Cmd {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	return textinput.Blink
}

func (m *EditorModel) openArea(mode EditorMode, value, placeholder string) tea.Cmd {
	m.mode = mode
	m.area.Placeholder = placeholder
	m.area.SetValue(value)
	m.area.Focus()
	return textarea.Blink
}

func (m *EditorModel) closeEditors() {
	m.mode = ModeBrowse
	m.input.Blur()
	m.input.SetValue("")
	m.area.Blur()
	m.area.SetValue("")
}

// setFlash shows text until it expires or is replaced.
func (m *EditorModel) setFlash(text string, isErr bool) tea.Cmd {
	m.flashSeq++
	m.flash = text
	m.flashErr = isErr
	seq := m.flashSeq
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return msgs.FlashExpiredMsg{Seq: seq}
	})
}

func errorFlash(err error) string {
	if errors.Is(err, path.ErrValidation) {
		return "Not saved: " + err.Error()
	}
	return err.Error()
}

func (m EditorModel) selectedStep() (path.Step, bool) {
	steps := m.store.Snapshot().Steps
	if m.cursor < 0 || m.cursor >= len(steps) {
		return path.Step{}, false
	}
	return steps[m.cursor], true
}

// View implements tea.Model.
func (m EditorModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	snapshot := m.store.Snapshot()
	var b strings.Builder

	title := snapshot.Title
	if title == "" {
		title = "Untitled learning path"
	}
	b.WriteString(styles.TitleStyle.Render(title))
	if gauge := components.NewPosition(m.cursor+1, len(snapshot.Steps), 10).View(); gauge != "" {
		b.WriteString("  ")
		b.WriteString(styles.SubtleStyle.Render(gauge))
	}
	b.WriteString("\n")
	if snapshot.Objectives != "" {
		b.WriteString(styles.SubtleStyle.Render(snapshot.Objectives))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(snapshot.Steps) == 0 {
		b.WriteString(styles.SubtleStyle.Render("No steps yet. Press 'a' to add one."))
		b.WriteString("\n")
	}
	for i, step := range snapshot.Steps {
		b.WriteString(m.formatStepLine(i, step))
		b.WriteString("\n")
	}

	if step, ok := m.selectedStep(); ok {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(step))
		b.WriteString("\n")
	}

	if editor := m.renderEditor(); editor != "" {
		b.WriteString("\n")
		b.WriteString(editor)
		b.WriteString("\n")
	}

	if m.flash != "" {
		b.WriteString("\n")
		if m.flashErr {
			b.WriteString(styles.ErrorStyle.Render(m.flash))
		} else {
			b.WriteString(styles.SuccessStyle.Render(m.flash))
		}
		b.WriteString("\n")
	}

	content := b.String()
	if pad := m.height - 1 - lipgloss.Height(content); pad > 0 {
		content += strings.Repeat("\n", pad)
	}
	return content + components.NewStatusBar().Render(m.width, m.statusItems())
}

func (m EditorModel) formatStepLine(index int, step path.Step) string {
	indicator := "○"
	if index == m.cursor {
		indicator = "●"
	}

	line := fmt.Sprintf("%s %d. %s", indicator, index+1, step.Title)
	if n := len(step.Resources); n > 0 {
		line += styles.SubtleStyle.Render(fmt.Sprintf("  (%d)", n))
	}
	if index == m.cursor {
		return styles.SelectedStyle.Render(line)
	}
	return line
}

func (m EditorModel) renderDetail(step path.Step) string {
	var b strings.Builder

	if step.Task == "" {
		b.WriteString(styles.SubtleStyle.Render("No task yet. Press 'e' to describe it."))
	} else {
		b.WriteString(step.Task)
	}
	b.WriteString("\n\n")

	if len(step.Resources) == 0 {
		b.WriteString(styles.SubtleStyle.Render("No resources."))
	}
	for i, res := range step.Resources {
		marker := "  "
		if i == m.resCursor {
			marker = "> "
		}
		b.WriteString(marker)
		b.WriteString(res.Title)
		if res.URL != "" {
			b.WriteString(" ")
			b.WriteString(styles.LinkStyle.Render(render.DisplayURL(res.URL)))
		}
		if i < len(step.Resources)-1 {
			b.WriteString("\n")
		}
	}

	box := styles.BoxStyle
	if m.width > 4 {
		box = box.Width(m.width - 2)
	}
	return box.Render(b.String())
}

func (m EditorModel) renderEditor() string {
	switch m.mode {
	case ModePathTitle:
		return "Path title\n" + m.input.View()
	case ModeStepTitle:
		return "Step title\n" + m.input.View()
	case ModeResourceTitle:
		return "New resource: title\n" + m.input.View()
	case ModeResourceURL:
		return fmt.Sprintf("New resource %q: link\n%s", m.newResourceTitle, m.input.View())
	case ModeStepTask:
		return "Task\n" + m.area.View()
	case ModeObjectives:
		return "Objectives\n" + m.area.View()
	}
	return ""
}

func (m EditorModel) statusItems() []string {
	switch m.mode {
	case ModeBrowse:
		return []string{"↑↓ Select", "K/J Move", "a Add", "d Delete", "t Title", "e Task", "r Resource", "[/] x Resources", "T Path", "o Objectives", "q Quit"}
	case ModeStepTask, ModeObjectives:
		return []string{"Ctrl+S Save", "Esc Cancel"}
	default:
		return []string{"Enter Save", "Esc Cancel"}
	}
}

// Mode returns what the editor is capturing input for.
func (m EditorModel) Mode() EditorMode {
	return m.mode
}

// Cursor returns the index of the selected step.
func (m EditorModel) Cursor() int {
	return m.cursor
}

// ResourceCursor returns the selected resource index, -1 for none.
func (m EditorModel) ResourceCursor() int {
	return m.resCursor
}

// Flash returns the current flash message and whether it reports an error.
func (m EditorModel) Flash() (string, bool) {
	return m.flash, m.flashErr
}
