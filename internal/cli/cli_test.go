package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pablasso/parcours/internal/path"
	"github.com/pablasso/parcours/internal/session"
	"github.com/pablasso/parcours/internal/storage"
)

// runCLI executes a fresh command tree against dataDir.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	for _, name := range []string{"PARCOURS_BACKEND", "PARCOURS_DATA_DIR", "PARCOURS_KEY", "PARCOURS_LOG_FILE", "PARCOURS_LOG_LEVEL", "PARCOURS_SQLITE_PATH", "PARCOURS_REDIS_URL"} {
		t.Setenv(name, "")
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--data-dir", dataDir,
		"--config", filepath.Join(dataDir, "missing.yaml"),
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func loadSnapshot(t *testing.T, dataDir string) path.LearningPath {
	t.Helper()
	out, err := runCLI(t, dataDir, "show", "--json")
	if err != nil {
		t.Fatalf("show --json failed: %v\n%s", err, out)
	}
	p, err := path.Decode([]byte(out))
	if err != nil {
		t.Fatalf("show --json printed an invalid snapshot: %v\n%s", err, out)
	}
	return p
}

func TestShow_DefaultPath(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".parcours")

	out, err := runCLI(t, dataDir, "show")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Première étape", "Deuxième étape", "Troisième étape"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestEndToEnd_StepAndResourceCommands(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".parcours")

	out, err := runCLI(t, dataDir, "step", "add")
	if err != nil {
		t.Fatalf("step add failed: %v", err)
	}
	if !strings.Contains(out, "Added step 4.") {
		t.Errorf("unexpected output %q", out)
	}

	if out, err := runCLI(t, dataDir, "resource", "add", "4", "Doc", "example.com"); err != nil {
		t.Fatalf("resource add failed: %v\n%s", err, out)
	}
	if out, err := runCLI(t, dataDir, "step", "rm", "1"); err != nil {
		t.Fatalf("step rm failed: %v\n%s", err, out)
	}

	p := loadSnapshot(t, dataDir)
	ids := p.StepIDs()
	if len(ids) != 3 || ids[0] != 2 || ids[1] != 3 || ids[2] != 4 {
		t.Fatalf("got ids %v, want [2 3 4]", ids)
	}
	res := p.Steps[2].Resources
	if len(res) != 1 || res[0].Title != "Doc" || res[0].URL != "example.com" {
		t.Errorf("unexpected resources %+v", res)
	}

	out, err = runCLI(t, dataDir, "step", "add")
	if err != nil {
		t.Fatalf("step add failed: %v", err)
	}
	if !strings.Contains(out, "Added step 5.") {
		t.Errorf("expected next id 5 after reload, got %q", out)
	}
}

func TestTitleAndObjectives(t *testing.T) {
	dataDir := t.TempDir()

	if _, err := runCLI(t, dataDir, "title", "Apprendre le développement web"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := runCLI(t, dataDir, "objectives", "HTML\nCSS"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := loadSnapshot(t, dataDir)
	if p.Title != "Apprendre le développement web" || p.Objectives != "HTML\nCSS" {
		t.Errorf("unexpected path %+v", p)
	}
}

func TestStepAdd_WithFlags(t *testing.T) {
	dataDir := t.TempDir()

	if _, err := runCLI(t, dataDir, "step", "add", "--title", "Projet", "--task", "Construire une API"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := loadSnapshot(t, dataDir)
	last := p.Steps[len(p.Steps)-1]
	if last.ID != 4 || last.Title != "Projet" || last.Task != "Construire une API" {
		t.Errorf("unexpected step %+v", last)
	}
}

func TestStepEdit(t *testing.T) {
	dataDir := t.TempDir()

	if _, err := runCLI(t, dataDir, "step", "edit", "2", "--task", "Lire"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := loadSnapshot(t, dataDir)
	if p.Steps[1].Task != "Lire" || p.Steps[1].Title != "Deuxième étape" {
		t.Errorf("unexpected step %+v", p.Steps[1])
	}

	if _, err := runCLI(t, dataDir, "step", "edit", "2"); err == nil {
		t.Error("expected error when no field is given")
	}
	if _, err := runCLI(t, dataDir, "step", "edit", "42", "--task", "x"); err == nil {
		t.Error("expected error for unknown step")
	}
}

func TestStepMove(t *testing.T) {
	dataDir := t.TempDir()

	out, err := runCLI(t, dataDir, "step", "move", "1", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Moved step 1 to position 3.") {
		t.Errorf("unexpected output %q", out)
	}
	p := loadSnapshot(t, dataDir)
	ids := p.StepIDs()
	if ids[0] != 2 || ids[1] != 3 || ids[2] != 1 {
		t.Errorf("got ids %v, want [2 3 1]", ids)
	}

	out, err = runCLI(t, dataDir, "step", "move", "1", "9")
	if err != nil {
		t.Fatalf("out of range move should not fail: %v", err)
	}
	if !strings.Contains(out, "Nothing moved") {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := runCLI(t, dataDir, "step", "move", "one", "2"); err == nil {
		t.Error("expected error for non-numeric position")
	}
}

func TestResourceAdd_BlankTitleRejected(t *testing.T) {
	dataDir := t.TempDir()

	_, err := runCLI(t, dataDir, "resource", "add", "1", "   ", "example.com")
	if !errors.Is(err, path.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	p := loadSnapshot(t, dataDir)
	if len(p.Steps[0].Resources) != 0 {
		t.Errorf("expected no resources, got %+v", p.Steps[0].Resources)
	}
}

func TestResourceRm(t *testing.T) {
	dataDir := t.TempDir()

	if _, err := runCLI(t, dataDir, "resource", "add", "2", "Doc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := loadSnapshot(t, dataDir)
	id := p.Steps[1].Resources[0].ID

	if _, err := runCLI(t, dataDir, "resource", "rm", "2", "123"); err == nil {
		t.Error("expected error for unknown resource")
	}
	if _, err := runCLI(t, dataDir, "resource", "rm", "2", strconv.FormatInt(id, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p = loadSnapshot(t, dataDir)
	if len(p.Steps[1].Resources) != 0 {
		t.Errorf("expected resource to be removed, got %+v", p.Steps[1].Resources)
	}
}

func TestReset(t *testing.T) {
	dataDir := t.TempDir()
	runCLI(t, dataDir, "title", "x")
	runCLI(t, dataDir, "step", "rm", "1")

	if _, err := runCLI(t, dataDir, "reset"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := loadSnapshot(t, dataDir)
	if p.Title != "" || len(p.Steps) != 3 {
		t.Errorf("expected default path, got %+v", p)
	}
}

func TestExportImport(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(t.TempDir(), "path.json")

	runCLI(t, src, "title", "Exporté")
	runCLI(t, src, "step", "add")
	if _, err := runCLI(t, src, "export", file); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("expected export file: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}

	if _, err := runCLI(t, dst, "import", file); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if got := loadSnapshot(t, dst); got.Title != "Exporté" || len(got.Steps) != 4 {
		t.Errorf("unexpected imported path %+v", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	_, err = runCLI(t, dst, "import", bad)
	if !errors.Is(err, path.ErrMalformedSnapshot) {
		t.Errorf("expected ErrMalformedSnapshot, got %v", err)
	}
}

func TestCorruptStorageFallsBackToDefault(t *testing.T) {
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "learningPath.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, dataDir, "show")
	if err != nil {
		t.Fatalf("expected corrupt data to be tolerated, got %v", err)
	}
	if !strings.Contains(out, "Première étape") {
		t.Errorf("expected default path, got:\n%s", out)
	}

	logData, _ := os.ReadFile(filepath.Join(dataDir, "parcours.log"))
	if !strings.Contains(string(logData), "discarding stored learning path") {
		t.Errorf("expected a diagnostic in the log, got %q", string(logData))
	}
}

func TestHistory(t *testing.T) {
	dataDir := t.TempDir()

	out, err := runCLI(t, dataDir, "history")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No changes recorded.") {
		t.Errorf("unexpected output %q", out)
	}

	runCLI(t, dataDir, "step", "add")
	runCLI(t, dataDir, "step", "move", "4", "1")

	out, err = runCLI(t, dataDir, "history")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "added step 4") || !strings.Contains(out, "moved step 4 from position 4 to 1") {
		t.Errorf("unexpected history:\n%s", out)
	}
	if strings.Index(out, "moved step") > strings.Index(out, "added step") {
		t.Errorf("expected newest change first:\n%s", out)
	}
}

func TestRootLaunchesEditor(t *testing.T) {
	dataDir := t.TempDir()

	var launched *session.Session
	original := runTUI
	runTUI = func(sess *session.Session) error {
		launched = sess
		return nil
	}
	defer func() { runTUI = original }()

	if _, err := runCLI(t, dataDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if launched == nil {
		t.Fatal("expected the editor to be launched")
	}
	if launched.Config.Storage.DataDir != dataDir {
		t.Errorf("expected data dir %q, got %q", dataDir, launched.Config.Storage.DataDir)
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := runCLI(t, t.TempDir(), "--backend", "etcd", "show"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"just now for less than a minute", 30 * time.Second, "just now"},
		{"5 minutes ago", 5 * time.Minute, "5m ago"},
		{"1 hour ago", 1 * time.Hour, "1h ago"},
		{"23 hours ago", 23 * time.Hour, "23h ago"},
		{"3 days ago", 72 * time.Hour, "3d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatAge(time.Now().Add(-tt.duration))
			if got != tt.want {
				t.Errorf("formatAge() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExport_ToDirectoryNamesFileAfterTitle(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()

	runCLI(t, dataDir, "title", "Go en 30 jours")
	out, err := runCLI(t, dataDir, "export", outDir)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	want := filepath.Join(outDir, "go-en-30-jours.json")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected %s to exist: %v", want, err)
	}
	if !strings.Contains(out, want) {
		t.Errorf("expected output to name %s, got %q", want, out)
	}
}

func TestExport_ToStdout(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "export")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if _, err := path.Decode([]byte(out)); err != nil {
		t.Errorf("expected a valid snapshot on stdout: %v", err)
	}
}

func TestMutatingCommands_RefuseWhileLocked(t *testing.T) {
	dataDir := t.TempDir()
	importFile := filepath.Join(t.TempDir(), "path.json")
	data, err := path.Encode(path.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(importFile, data, 0644); err != nil {
		t.Fatalf("failed to write import file: %v", err)
	}

	held := storage.NewSessionLock(dataDir)
	if _, err := held.Acquire(); err != nil {
		t.Fatalf("failed to take lock: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"title", []string{"title", "Locked"}},
		{"objectives", []string{"objectives", "Locked"}},
		{"reset", []string{"reset"}},
		{"step add", []string{"step", "add", "--title", "Locked"}},
		{"step edit", []string{"step", "edit", "1", "--title", "Locked"}},
		{"step rm", []string{"step", "rm", "1"}},
		{"step move", []string{"step", "move", "1", "2"}},
		{"resource add", []string{"resource", "add", "1", "Doc", "https://example.com"}},
		{"resource rm", []string{"resource", "rm", "1", "1"}},
		{"import", []string{"import", importFile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, dataDir, tt.args...)
			if !errors.Is(err, storage.ErrLocked) {
				t.Errorf("expected ErrLocked, got %v", err)
			}
		})
	}

	if _, err := runCLI(t, dataDir, "show"); err != nil {
		t.Errorf("expected show to work while locked, got %v", err)
	}
	if got := loadSnapshot(t, dataDir); got.Title != path.Default().Title {
		t.Errorf("expected the stored path untouched, title %q", got.Title)
	}

	if err := held.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
	if _, err := runCLI(t, dataDir, "title", "Unlocked"); err != nil {
		t.Fatalf("expected title to work after release, got %v", err)
	}
	if got := loadSnapshot(t, dataDir); got.Title != "Unlocked" {
		t.Errorf("expected title %q, got %q", "Unlocked", got.Title)
	}
	if _, err := os.Stat(held.Path()); !os.IsNotExist(err) {
		t.Errorf("expected the command to release its lock, stat err %v", err)
	}
}
