// Package path holds the learning path state model and the operations that
// produce new snapshots of it.
package path

import "fmt"

// LearningPath is a titled, ordered sequence of steps.
type LearningPath struct {
	Title      string `json:"title"`
	Objectives string `json:"objectives"`
	Steps      []Step `json:"steps"`
}

// Step is one ordered unit of the path, carrying a task and its resources.
type Step struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Task      string     `json:"task"`
	Resources []Resource `json:"resources"`
}

// Resource is a titled reference attached to a step. An empty URL means none.
type Resource struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// defaultNextStepID follows the three placeholder steps of the default path.
const defaultNextStepID = 4

// Default returns the path shown on first launch or when stored data is unusable.
func Default() LearningPath {
	return LearningPath{
		Title:      "",
		Objectives: "",
		Steps: []Step{
			{ID: 1, Title: "Première étape", Task: "", Resources: []Resource{}},
			{ID: 2, Title: "Deuxième étape", Task: "", Resources: []Resource{}},
			{ID: 3, Title: "Troisième étape", Task: "", Resources: []Resource{}},
		},
	}
}

// DefaultStepTitle is the title given to a freshly added step.
func DefaultStepTitle(id int) string {
	return fmt.Sprintf("Étape %d", id)
}

// StepIndex returns the position of the step with the given id, or -1.
func (p LearningPath) StepIndex(id int) int {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return i
		}
	}
	return -1
}

// Step returns the step with the given id.
func (p LearningPath) Step(id int) (Step, bool) {
	i := p.StepIndex(id)
	if i < 0 {
		return Step{}, false
	}
	return p.Steps[i], true
}

// StepIDs returns step ids in path order.
func (p LearningPath) StepIDs() []int {
	ids := make([]int, len(p.Steps))
	for i := range p.Steps {
		ids[i] = p.Steps[i].ID
	}
	return ids
}

// Clone returns a deep copy sharing no slices with p.
func (p LearningPath) Clone() LearningPath {
	out := p
	out.Steps = make([]Step, len(p.Steps))
	for i := range p.Steps {
		out.Steps[i] = p.Steps[i].Clone()
	}
	return out
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	out.Resources = make([]Resource, len(s.Resources))
	copy(out.Resources, s.Resources)
	return out
}

// maxStepID returns the highest step id, or 0 for an empty path.
func (p LearningPath) maxStepID() int {
	max := 0
	for i := range p.Steps {
		if p.Steps[i].ID > max {
			max = p.Steps[i].ID
		}
	}
	return max
}
