package persistence

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/pablasso/parcours/internal/path"
	"github.com/pablasso/parcours/internal/storage"
)

// fakeKV wraps a MemoryKV and can be told to fail.
type fakeKV struct {
	*storage.MemoryKV
	mu     sync.Mutex
	getErr error
	setErr error
	writes [][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{MemoryKV: storage.NewMemoryKV()}
}

func (f *fakeKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryKV.Get(ctx, key)
}

func (f *fakeKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	err := f.setErr
	if err == nil {
		f.writes = append(f.writes, value)
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func (f *fakeKV) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func TestAdapter_LoadNoData(t *testing.T) {
	var logs bytes.Buffer
	a := NewAdapter(newFakeKV(), "", testLogger(&logs))

	if _, ok := a.Load(context.Background()); ok {
		t.Fatal("expected no snapshot")
	}
	if logs.Len() != 0 {
		t.Errorf("expected no diagnostic for absent data, got %q", logs.String())
	}
	if a.Key() != DefaultKey {
		t.Errorf("expected default key, got %q", a.Key())
	}
}

func TestAdapter_LoadCorruptData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{not json`},
		{"wrong shape", `{"title":"","objectives":"","steps":"nope"}`},
		{"missing fields", `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := newFakeKV()
			kv.MemoryKV.Set(context.Background(), DefaultKey, []byte(tc.data))
			var logs bytes.Buffer
			a := NewAdapter(kv, DefaultKey, testLogger(&logs))

			if _, ok := a.Load(context.Background()); ok {
				t.Fatal("expected no snapshot for corrupt data")
			}
			if !strings.Contains(logs.String(), "discarding stored learning path") {
				t.Errorf("expected a diagnostic, got %q", logs.String())
			}
		})
	}
}

func TestAdapter_LoadReadError(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("disk on fire")
	var logs bytes.Buffer
	a := NewAdapter(kv, "", testLogger(&logs))

	if _, ok := a.Load(context.Background()); ok {
		t.Fatal("expected no snapshot")
	}
	if !strings.Contains(logs.String(), "failed to read stored learning path") || !strings.Contains(logs.String(), "disk on fire") {
		t.Errorf("expected read error to be logged, got %q", logs.String())
	}
	if strings.Contains(logs.String(), "discarding") {
		t.Errorf("a read failure must not be reported as discarded data, got %q", logs.String())
	}

	s := path.NewStore()
	if state := a.Restore(context.Background(), s); state != StateReadFailed {
		t.Fatalf("got state %v, want %v", state, StateReadFailed)
	}
	if !reflect.DeepEqual(s.Snapshot(), path.Default()) {
		t.Error("expected default path")
	}
}

func TestAdapter_SaveAndLoad(t *testing.T) {
	a := NewAdapter(newFakeKV(), "", testLogger(&bytes.Buffer{}))
	s := path.NewStore()
	s.SetTitle("Go")
	want := s.AddStep()

	if err := a.Save(context.Background(), want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := a.Load(context.Background())
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestAdapter_SaveFailure(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("quota exceeded")
	a := NewAdapter(kv, "", testLogger(&bytes.Buffer{}))

	err := a.Save(context.Background(), path.Default())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected cause in error, got %v", err)
	}
}

func TestAdapter_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("no data applies default", func(t *testing.T) {
		a := NewAdapter(newFakeKV(), "", testLogger(&bytes.Buffer{}))
		s := path.NewStore()
		s.AddStep()
		if state := a.Restore(ctx, s); state != StateNoData {
			t.Fatalf("got state %v, want %v", state, StateNoData)
		}
		if !reflect.DeepEqual(s.Snapshot(), path.Default()) {
			t.Error("expected default path")
		}
	})

	t.Run("corrupt data applies default", func(t *testing.T) {
		kv := newFakeKV()
		kv.MemoryKV.Set(ctx, DefaultKey, []byte(`{not json`))
		a := NewAdapter(kv, "", testLogger(&bytes.Buffer{}))
		s := path.NewStore()
		if state := a.Restore(ctx, s); state != StateCorruptData {
			t.Fatalf("got state %v, want %v", state, StateCorruptData)
		}
		want := []string{"Première étape", "Deuxième étape", "Troisième étape"}
		for i, step := range s.Snapshot().Steps {
			if step.Title != want[i] {
				t.Errorf("step %d: got %q, want %q", i, step.Title, want[i])
			}
		}
	})

	t.Run("valid data hydrates", func(t *testing.T) {
		kv := newFakeKV()
		kv.MemoryKV.Set(ctx, DefaultKey, []byte(`{"title":"x","objectives":"","steps":[{"id":12,"title":"a","task":"","resources":[]}]}`))
		a := NewAdapter(kv, "", testLogger(&bytes.Buffer{}))
		s := path.NewStore()
		if state := a.Restore(ctx, s); state != StateValidData {
			t.Fatalf("got state %v, want %v", state, StateValidData)
		}
		if s.Snapshot().Title != "x" || s.NextStepID() != 13 {
			t.Errorf("unexpected store state: %+v next=%d", s.Snapshot(), s.NextStepID())
		}
	})
}

func TestEndToEnd_DefaultPathEdits(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	a := NewAdapter(kv, "", testLogger(&bytes.Buffer{}))

	s := path.NewStore()
	a.Restore(ctx, s)
	p := s.AddStep()
	newID := p.Steps[len(p.Steps)-1].ID
	if _, err := s.AddResource(newID, path.NewResource{Title: "Doc", URL: "example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Save(ctx, s.DeleteStep(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := path.NewStore()
	if state := a.Restore(ctx, reloaded); state != StateValidData {
		t.Fatalf("got state %v", state)
	}
	got := reloaded.Snapshot()
	if !reflect.DeepEqual(got.StepIDs(), []int{2, 3, newID}) {
		t.Fatalf("got ids %v", got.StepIDs())
	}
	if res := got.Steps[2].Resources; len(res) != 1 || res[0].Title != "Doc" {
		t.Errorf("expected resource to survive reload, got %+v", res)
	}
	if reloaded.NextStepID() < 5 {
		t.Errorf("expected next step id >= 5, got %d", reloaded.NextStepID())
	}
}

func TestStartupState_String(t *testing.T) {
	tests := map[StartupState]string{
		StateNoData:      "no_data",
		StateValidData:   "valid_data",
		StateCorruptData: "corrupt_data",
		StateReadFailed:  "read_failed",
		StartupState(9):  "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("StartupState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
