// Package journal records applied learning path mutations as JSON Lines.
package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const fileName = "history.log"

// Event type constants.
const (
	EventTitleChanged      = "title_changed"
	EventObjectivesChanged = "objectives_changed"
	EventStepAdded         = "step_added"
	EventStepUpdated       = "step_updated"
	EventStepMoved         = "step_moved"
	EventStepDeleted       = "step_deleted"
	EventResourceAdded     = "resource_added"
	EventResourceDeleted   = "resource_deleted"
	EventPathReset         = "path_reset"
	EventPathImported      = "path_imported"
)

// Event is a single journal entry.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// Journal appends events to <dir>/history.log.
type Journal struct {
	path string
	now  func() time.Time
}

// New creates a journal for the given data directory.
func New(dir string) *Journal {
	return &Journal{
		path: filepath.Join(dir, fileName),
		now:  time.Now,
	}
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Log appends an event.
func (j *Journal) Log(event string, data map[string]any) error {
	entry := Event{
		Timestamp: j.now(),
		Event:     event,
		Data:      data,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	jsonBytes = append(jsonBytes, '\n')

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(jsonBytes)
	return err
}

// Read returns every event in the journal, oldest first. Lines that do not
// parse are skipped. A missing journal yields no events.
func (j *Journal) Read() ([]Event, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		dec := json.NewDecoder(bytes.NewReader(scanner.Bytes()))
		dec.UseNumber()
		if err := dec.Decode(&e); err != nil {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return events, nil
}

// StepAdded logs a step_added event.
func (j *Journal) StepAdded(stepID int) error {
	return j.Log(EventStepAdded, map[string]any{"step_id": stepID})
}

// StepUpdated logs a step_updated event.
func (j *Journal) StepUpdated(stepID int) error {
	return j.Log(EventStepUpdated, map[string]any{"step_id": stepID})
}

// StepMoved logs a step_moved event. Positions are 1-based.
func (j *Journal) StepMoved(stepID, from, to int) error {
	return j.Log(EventStepMoved, map[string]any{
		"step_id": stepID,
		"from":    from,
		"to":      to,
	})
}

// StepDeleted logs a step_deleted event.
func (j *Journal) StepDeleted(stepID int) error {
	return j.Log(EventStepDeleted, map[string]any{"step_id": stepID})
}

// ResourceAdded logs a resource_added event.
func (j *Journal) ResourceAdded(stepID int, resourceID int64, title string) error {
	return j.Log(EventResourceAdded, map[string]any{
		"step_id":     stepID,
		"resource_id": resourceID,
		"title":       title,
	})
}

// ResourceDeleted logs a resource_deleted event.
func (j *Journal) ResourceDeleted(stepID int, resourceID int64) error {
	return j.Log(EventResourceDeleted, map[string]any{
		"step_id":     stepID,
		"resource_id": resourceID,
	})
}

// TitleChanged logs a title_changed event.
func (j *Journal) TitleChanged() error {
	return j.Log(EventTitleChanged, nil)
}

// ObjectivesChanged logs an objectives_changed event.
func (j *Journal) ObjectivesChanged() error {
	return j.Log(EventObjectivesChanged, nil)
}

// PathReset logs a path_reset event.
func (j *Journal) PathReset() error {
	return j.Log(EventPathReset, nil)
}

// PathImported logs a path_imported event.
func (j *Journal) PathImported(source string, steps int) error {
	return j.Log(EventPathImported, map[string]any{
		"source": source,
		"steps":  steps,
	})
}

// Describe renders an event as a short human readable line.
func Describe(e Event) string {
	num := func(key string) string {
		if v, ok := e.Data[key]; ok {
			return fmt.Sprint(v)
		}
		return "?"
	}

	switch e.Event {
	case EventStepAdded:
		return "added step " + num("step_id")
	case EventStepUpdated:
		return "edited step " + num("step_id")
	case EventStepMoved:
		return fmt.Sprintf("moved step %s from position %s to %s", num("step_id"), num("from"), num("to"))
	case EventStepDeleted:
		return "deleted step " + num("step_id")
	case EventResourceAdded:
		return fmt.Sprintf("added resource %q to step %s", num("title"), num("step_id"))
	case EventResourceDeleted:
		return fmt.Sprintf("removed resource %s from step %s", num("resource_id"), num("step_id"))
	case EventTitleChanged:
		return "changed path title"
	case EventObjectivesChanged:
		return "changed path objectives"
	case EventPathReset:
		return "reset to the default path"
	case EventPathImported:
		return fmt.Sprintf("imported %s steps from %s", num("steps"), num("source"))
	default:
		return e.Event
	}
}
