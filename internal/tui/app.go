package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pablasso/parcours/internal/persistence"
	"github.com/pablasso/parcours/internal/session"
	"github.com/pablasso/parcours/internal/tui/views"
)

// saveErrorBuffer bounds how many writer failures wait for the update loop.
// Older failures are dropped when it fills; the flash only shows the latest.
const saveErrorBuffer = 8

// Model is the main Bubble Tea model hosting the path editor.
type Model struct {
	editor views.EditorModel
	width  int
	height int
}

// NewModel wraps an editor in the application model.
func NewModel(editor views.EditorModel) Model {
	return Model{editor: editor}
}

// Run opens the editor on sess until the user quits. It holds the session
// lock for the data directory and drains pending saves before returning.
func Run(sess *session.Session) error {
	lock, err := sess.Lock()
	if err != nil {
		return err
	}
	defer lock.Release()

	sink := newErrorSink(saveErrorBuffer)
	writer := persistence.NewWriter(sess.Adapter, persistence.WithErrorHandler(sink.report))

	editor := views.NewEditorModel(views.EditorConfig{
		Store:      sess.Store,
		Saver:      writer,
		Recorder:   sess,
		SaveErrors: sink.errs(),
		Notice:     startupNotice(sess.State),
	})

	p := tea.NewProgram(NewModel(editor), tea.WithAltScreen())
	_, runErr := p.Run()

	// The writer goroutine is the only sender, so the sink can close once it stops.
	closeErr := writer.Close()
	sink.close()
	if closeErr != nil {
		return errors.Join(runErr, fmt.Errorf("last change was not saved: %w", closeErr))
	}
	return runErr
}

// startupNotice explains why the editor opened on the default path.
func startupNotice(state persistence.StartupState) string {
	switch state {
	case persistence.StateCorruptData:
		return "The saved path was damaged and could not be loaded; starting from the default path"
	case persistence.StateReadFailed:
		return "The saved path could not be read; starting from the default path, and your next change will replace it"
	}
	return ""
}

// errorSink carries writer failures to the update loop without ever blocking
// the writer. Failures beyond the buffer are dropped.
type errorSink struct {
	ch chan error
}

func newErrorSink(size int) *errorSink {
	return &errorSink{ch: make(chan error, size)}
}

func (s *errorSink) report(err error) {
	select {
	case s.ch <- err:
	default:
	}
}

func (s *errorSink) errs() <-chan error {
	return s.ch
}

// close ends the stream; report must not be called afterwards.
func (s *errorSink) close() {
	close(s.ch)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.editor.Init()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	return m.editor.View()
}

// Editor returns the hosted editor.
func (m Model) Editor() views.EditorModel {
	return m.editor
}
