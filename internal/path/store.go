package path

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// StepPatch holds the step fields to replace. Nil fields are left untouched.
type StepPatch struct {
	Title     *string
	Task      *string
	Resources *[]Resource
}

// NewResource carries the user supplied fields of a resource to add.
type NewResource struct {
	Title string
	URL   string
}

// Store owns the current LearningPath snapshot and the step id allocator.
// Every mutation builds a new snapshot; snapshots returned earlier are never
// modified afterwards. Store is not safe for concurrent use.
type Store struct {
	current        LearningPath
	nextStepID     int
	lastResourceID int64
	now            func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for resource ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a store holding the default path.
func NewStore(opts ...Option) *Store {
	s := &Store{
		current:    Default(),
		nextStepID: defaultNextStepID,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() LearningPath {
	return s.current
}

// NextStepID returns the id the next AddStep call will allocate.
func (s *Store) NextStepID() int {
	return s.nextStepID
}

// Reset replaces the current snapshot with the default path. The step id
// counter only moves forward so ids issued earlier in the session stay unique.
func (s *Store) Reset() LearningPath {
	s.current = Default()
	if s.nextStepID < defaultNextStepID {
		s.nextStepID = defaultNextStepID
	}
	return s.current
}

// Hydrate parses a persisted snapshot and makes it current. On failure the
// store is left untouched and the error wraps ErrMalformedSnapshot.
func (s *Store) Hydrate(data []byte) (LearningPath, error) {
	p, err := Decode(data)
	if err != nil {
		return LearningPath{}, err
	}
	s.Replace(p)
	return s.current, nil
}

// Replace makes an already validated snapshot current and moves the step id
// counter past every id it contains.
func (s *Store) Replace(p LearningPath) {
	s.current = p.Clone()
	s.nextStepID = p.maxStepID() + 1
	for i := range s.current.Steps {
		for _, r := range s.current.Steps[i].Resources {
			if r.ID > s.lastResourceID {
				s.lastResourceID = r.ID
			}
		}
	}
}

// SetTitle replaces the path title.
func (s *Store) SetTitle(text string) LearningPath {
	next := s.current.Clone()
	next.Title = text
	s.current = next
	return s.current
}

// SetObjectives replaces the path objectives.
func (s *Store) SetObjectives(text string) LearningPath {
	next := s.current.Clone()
	next.Objectives = text
	s.current = next
	return s.current
}

// ReorderSteps moves the step at from to position to. Equal or out-of-range
// indices are a no-op rather than an error, so a cancelled drag that races a
// delete is harmless.
func (s *Store) ReorderSteps(from, to int) LearningPath {
	n := len(s.current.Steps)
	if from == to || from < 0 || to < 0 || from >= n || to >= n {
		return s.current
	}
	next := s.current.Clone()
	next.Steps = Move(next.Steps, from, to)
	s.current = next
	return s.current
}

// AddStep appends a new empty step with a freshly allocated id. Once the
// counter has reached the largest int the snapshot is returned unchanged,
// since allocating it would leave no successor.
func (s *Store) AddStep() LearningPath {
	if s.nextStepID == math.MaxInt {
		return s.current
	}
	id := s.nextStepID
	s.nextStepID++

	next := s.current.Clone()
	next.Steps = append(next.Steps, Step{
		ID:        id,
		Title:     DefaultStepTitle(id),
		Task:      "",
		Resources: []Resource{},
	})
	s.current = next
	return s.current
}

// UpdateStep merges patch into the step with the given id. An unknown id
// returns the snapshot unchanged. A resource list with repeated ids is rejected.
func (s *Store) UpdateStep(id int, patch StepPatch) (LearningPath, error) {
	i := s.current.StepIndex(id)
	if i < 0 {
		return s.current, nil
	}

	if patch.Resources != nil {
		seen := make(map[int64]bool, len(*patch.Resources))
		for _, r := range *patch.Resources {
			if seen[r.ID] {
				return s.current, fmt.Errorf("%w: duplicate resource id %d in step %d", ErrValidation, r.ID, id)
			}
			seen[r.ID] = true
		}
	}

	next := s.current.Clone()
	step := &next.Steps[i]
	if patch.Title != nil {
		step.Title = *patch.Title
	}
	if patch.Task != nil {
		step.Task = *patch.Task
	}
	if patch.Resources != nil {
		step.Resources = make([]Resource, len(*patch.Resources))
		copy(step.Resources, *patch.Resources)
	}
	s.current = next
	return s.current, nil
}

// DeleteStep removes the step with the given id. Its id is never reissued.
func (s *Store) DeleteStep(id int) LearningPath {
	i := s.current.StepIndex(id)
	if i < 0 {
		return s.current
	}
	next := s.current.Clone()
	next.Steps = append(next.Steps[:i], next.Steps[i+1:]...)
	s.current = next
	return s.current
}

// AddResource appends a resource to the step with the given id. The title must
// contain something other than whitespace. An unknown step returns the
// snapshot unchanged.
func (s *Store) AddResource(stepID int, res NewResource) (LearningPath, error) {
	if strings.TrimSpace(res.Title) == "" {
		return s.current, fmt.Errorf("%w: resource title is required", ErrValidation)
	}

	i := s.current.StepIndex(stepID)
	if i < 0 {
		return s.current, nil
	}

	id, ok := s.allocResourceID(s.current.Steps[i])
	if !ok {
		return s.current, fmt.Errorf("%w: no resource id left in step %d", ErrValidation, stepID)
	}

	next := s.current.Clone()
	step := &next.Steps[i]
	step.Resources = append(step.Resources, Resource{
		ID:    id,
		Title: res.Title,
		URL:   res.URL,
	})
	s.current = next
	return s.current, nil
}

// DeleteResource removes a resource from a step. Unknown ids are a no-op.
func (s *Store) DeleteResource(stepID int, resourceID int64) LearningPath {
	i := s.current.StepIndex(stepID)
	if i < 0 {
		return s.current
	}
	j := -1
	for k, r := range s.current.Steps[i].Resources {
		if r.ID == resourceID {
			j = k
			break
		}
	}
	if j < 0 {
		return s.current
	}

	next := s.current.Clone()
	step := &next.Steps[i]
	step.Resources = append(step.Resources[:j], step.Resources[j+1:]...)
	s.current = next
	return s.current
}

// allocResourceID returns a millisecond timestamp, bumped past the last id
// issued in this session and past every id already present in the step. It
// reports false when the bump would overflow int64.
func (s *Store) allocResourceID(step Step) (int64, bool) {
	id := s.now().UnixMilli()
	if id <= s.lastResourceID {
		if s.lastResourceID == math.MaxInt64 {
			return 0, false
		}
		id = s.lastResourceID + 1
	}
	for _, r := range step.Resources {
		if id <= r.ID {
			if r.ID == math.MaxInt64 {
				return 0, false
			}
			id = r.ID + 1
		}
	}
	s.lastResourceID = id
	return id, true
}
