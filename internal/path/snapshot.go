package path

import (
	"encoding/json"
	"fmt"
	"math"
)

// Wire shapes with pointer fields so an absent field can be told apart from a
// zero value. encoding/json rejects type mismatches (a string id, a
// fractional id, an object where an array belongs) on its own.
type rawPath struct {
	Title      *string    `json:"title"`
	Objectives *string    `json:"objectives"`
	Steps      *[]rawStep `json:"steps"`
}

type rawStep struct {
	ID        *int           `json:"id"`
	Title     *string        `json:"title"`
	Task      *string        `json:"task"`
	Resources *[]rawResource `json:"resources"`
}

type rawResource struct {
	ID    *int64  `json:"id"`
	Title *string `json:"title"`
	URL   *string `json:"url"`
}

// Encode serializes a snapshot to the persisted JSON format.
func Encode(p LearningPath) ([]byte, error) {
	data, err := json.Marshal(normalize(p))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal learning path: %w", err)
	}
	return data, nil
}

// Decode parses and validates a persisted snapshot. Any structural problem is
// reported as ErrMalformedSnapshot.
func Decode(data []byte) (LearningPath, error) {
	var raw *rawPath
	if err := json.Unmarshal(data, &raw); err != nil {
		return LearningPath{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if raw == nil {
		return LearningPath{}, fmt.Errorf("%w: snapshot is null", ErrMalformedSnapshot)
	}
	if raw.Title == nil {
		return LearningPath{}, fmt.Errorf("%w: missing title", ErrMalformedSnapshot)
	}
	if raw.Objectives == nil {
		return LearningPath{}, fmt.Errorf("%w: missing objectives", ErrMalformedSnapshot)
	}
	if raw.Steps == nil {
		return LearningPath{}, fmt.Errorf("%w: missing steps", ErrMalformedSnapshot)
	}

	p := LearningPath{
		Title:      *raw.Title,
		Objectives: *raw.Objectives,
		Steps:      make([]Step, 0, len(*raw.Steps)),
	}

	seenSteps := make(map[int]bool)
	for i, rs := range *raw.Steps {
		step, err := decodeStep(rs)
		if err != nil {
			return LearningPath{}, fmt.Errorf("%w: step %d: %v", ErrMalformedSnapshot, i, err)
		}
		if seenSteps[step.ID] {
			return LearningPath{}, fmt.Errorf("%w: duplicate step id %d", ErrMalformedSnapshot, step.ID)
		}
		seenSteps[step.ID] = true
		p.Steps = append(p.Steps, step)
	}

	return p, nil
}

func decodeStep(rs rawStep) (Step, error) {
	if rs.ID == nil {
		return Step{}, fmt.Errorf("missing id")
	}
	// The next step id is max+1, so the largest int leaves no successor.
	if *rs.ID == math.MaxInt {
		return Step{}, fmt.Errorf("step id %d leaves no room for new steps", *rs.ID)
	}
	if rs.Title == nil {
		return Step{}, fmt.Errorf("missing title")
	}
	if rs.Task == nil {
		return Step{}, fmt.Errorf("missing task")
	}
	if rs.Resources == nil {
		return Step{}, fmt.Errorf("missing resources")
	}

	step := Step{
		ID:        *rs.ID,
		Title:     *rs.Title,
		Task:      *rs.Task,
		Resources: make([]Resource, 0, len(*rs.Resources)),
	}

	seen := make(map[int64]bool)
	for j, rr := range *rs.Resources {
		if rr.ID == nil {
			return Step{}, fmt.Errorf("resource %d: missing id", j)
		}
		if rr.Title == nil {
			return Step{}, fmt.Errorf("resource %d: missing title", j)
		}
		if *rr.ID == math.MaxInt64 {
			return Step{}, fmt.Errorf("resource %d: id %d leaves no room for new resources", j, *rr.ID)
		}
		if seen[*rr.ID] {
			return Step{}, fmt.Errorf("duplicate resource id %d", *rr.ID)
		}
		seen[*rr.ID] = true

		res := Resource{ID: *rr.ID, Title: *rr.Title}
		if rr.URL != nil {
			res.URL = *rr.URL
		}
		step.Resources = append(step.Resources, res)
	}

	return step, nil
}

// normalize replaces nil slices with empty ones so the persisted form never
// carries null for steps or resources.
func normalize(p LearningPath) LearningPath {
	return p.Clone()
}
