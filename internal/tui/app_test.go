package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pablasso/parcours/internal/config"
	"github.com/pablasso/parcours/internal/logging"
	"github.com/pablasso/parcours/internal/path"
	"github.com/pablasso/parcours/internal/persistence"
	"github.com/pablasso/parcours/internal/session"
	"github.com/pablasso/parcours/internal/storage"
	"github.com/pablasso/parcours/internal/tui/views"
)

func TestModel_DelegatesToEditor(t *testing.T) {
	m := NewModel(views.NewEditorModel(views.EditorConfig{Store: path.NewStore()}))

	if m.View() != "" {
		t.Error("expected empty view before the first WindowSizeMsg")
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)
	if m.width != 80 || m.height != 24 {
		t.Errorf("expected 80x24, got %dx%d", m.width, m.height)
	}
	if !strings.Contains(m.View(), "Première étape") {
		t.Error("expected the editor view")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = updated.(Model)
	if m.Editor().Cursor() != 1 {
		t.Errorf("expected key to reach the editor, cursor %d", m.Editor().Cursor())
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := NewModel(views.NewEditorModel(views.EditorConfig{Store: path.NewStore()}))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestRun_RefusesWhenLocked(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = storage.BackendMemory
	cfg.Storage.DataDir = t.TempDir()

	sess, err := session.Open(context.Background(), cfg, session.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sess.Close()

	held := storage.NewSessionLock(cfg.Storage.DataDir)
	if _, err := held.Acquire(); err != nil {
		t.Fatalf("failed to take lock: %v", err)
	}
	defer held.Release()

	err = Run(sess)
	if !errors.Is(err, storage.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if !strings.Contains(err.Error(), held.Path()) {
		t.Errorf("expected the lock path in the error, got %q", err.Error())
	}
}

func TestStartupNotice(t *testing.T) {
	tests := []struct {
		state persistence.StartupState
		want  string
	}{
		{persistence.StateNoData, ""},
		{persistence.StateValidData, ""},
		{persistence.StateCorruptData, "damaged"},
		{persistence.StateReadFailed, "could not be read"},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			got := startupNotice(tt.state)
			if tt.want == "" {
				if got != "" {
					t.Errorf("expected no notice, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected notice to contain %q, got %q", tt.want, got)
			}
		})
	}

	if strings.Contains(startupNotice(persistence.StateReadFailed), "damaged") {
		t.Error("a read failure must not be reported as damaged data")
	}
}

func TestErrorSink(t *testing.T) {
	sink := newErrorSink(2)
	sink.report(errors.New("one"))
	sink.report(errors.New("two"))
	sink.report(errors.New("dropped"))
	sink.close()

	var got []string
	for err := range sink.errs() {
		got = append(got, err.Error())
	}
	if strings.Join(got, ",") != "one,two" {
		t.Errorf("expected buffered failures then end of stream, got %v", got)
	}
}
