// Package flow holds the static conversation script: an immutable graph of
// steps the chatbot engine walks through, plus the pure helpers used to
// render bot messages and score a session.
package flow

import (
	"errors"
	"fmt"
)

// CaptureType classifies how a free-text reply is validated before capture.
type CaptureType string

const (
	CaptureName  CaptureType = "name"
	CaptureEmail CaptureType = "email"
	CapturePhone CaptureType = "phone"
	CaptureText  CaptureType = "text"
)

// ActionType identifies a side effect declared on a step.
type ActionType string

const (
	ActionIncrementScore   ActionType = "increment_score"
	ActionSetQualified     ActionType = "set_qualified"
	ActionCreateLead       ActionType = "create_lead"
	ActionSendNotification ActionType = "send_notification"
)

// Option is a selectable button on a step. Choosing it transitions to
// NextStepID; when CaptureAs is set the option's label is recorded under
// that field name.
type Option struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	NextStepID string `json:"next_step_id"`
	CaptureAs  string `json:"capture_as,omitempty"`
}

// CaptureInput directs the engine to validate the next free-text reply
// according to Type and write it into Field.
type CaptureInput struct {
	Type       CaptureType `json:"type"`
	Field      string      `json:"field"`
	NextStepID string      `json:"next_step_id"`
}

// Action is a side effect executed when the engine leaves the step toward a
// resolved next step.
type Action struct {
	Type ActionType `json:"type"`
	// Points documents the declared score bump for increment_score actions.
	// Scoring is always fully recomputed, so the value has no runtime effect.
	Points int `json:"points,omitempty"`
	// Qualified is the literal value written by set_qualified actions.
	Qualified bool `json:"qualified,omitempty"`
}

// Step is one node of the conversation script. A step carries at most one of
// Options or Capture; a step with neither is terminal.
type Step struct {
	ID         string        `json:"id"`
	Stage      int           `json:"stage"`
	BotMessage string        `json:"bot_message"`
	Options    []Option      `json:"options,omitempty"`
	Capture    *CaptureInput `json:"capture_input,omitempty"`
	Actions    []Action      `json:"actions,omitempty"`
}

// Terminal reports whether the step offers no further transition of its own.
func (s Step) Terminal() bool {
	return len(s.Options) == 0 && s.Capture == nil
}

// Option finds a selectable option by id.
func (s Step) Option(id string) (Option, bool) {
	for _, opt := range s.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Graph is the immutable step table, indexed by step id.
type Graph struct {
	entry string
	steps map[string]Step
}

var errNoSteps = errors.New("flow: graph requires at least one step")

// NewGraph builds and validates the step index. Construction fails on
// duplicate ids, stages outside 1-8, steps declaring both options and a
// capture directive, or a missing entry step.
func NewGraph(entry string, steps []Step) (*Graph, error) {
	if len(steps) == 0 {
		return nil, errNoSteps
	}
	index := make(map[string]Step, len(steps))
	for _, step := range steps {
		if step.ID == "" {
			return nil, errors.New("flow: step with empty id")
		}
		if _, dup := index[step.ID]; dup {
			return nil, fmt.Errorf("flow: duplicate step id %q", step.ID)
		}
		if step.Stage < 1 || step.Stage > 8 {
			return nil, fmt.Errorf("flow: step %q has stage %d outside 1-8", step.ID, step.Stage)
		}
		if len(step.Options) > 0 && step.Capture != nil {
			return nil, fmt.Errorf("flow: step %q declares both options and capture input", step.ID)
		}
		for _, opt := range step.Options {
			if opt.ID == "" || opt.NextStepID == "" {
				return nil, fmt.Errorf("flow: step %q has option without id or next step", step.ID)
			}
		}
		if step.Capture != nil && step.Capture.NextStepID == "" {
			return nil, fmt.Errorf("flow: step %q has capture input without next step", step.ID)
		}
		index[step.ID] = step
	}
	if _, ok := index[entry]; !ok {
		return nil, fmt.Errorf("flow: entry step %q not found", entry)
	}
	return &Graph{entry: entry, steps: index}, nil
}

// MustGraph is NewGraph that panics on a broken script. Used for the
// compiled-in default script, whose integrity is a build-time concern.
func MustGraph(entry string, steps []Step) *Graph {
	g, err := NewGraph(entry, steps)
	if err != nil {
		panic(err)
	}
	return g
}

// Step looks up a step by id.
func (g *Graph) Step(id string) (Step, bool) {
	step, ok := g.steps[id]
	return step, ok
}

// Entry returns the designated entry step.
func (g *Graph) Entry() Step {
	return g.steps[g.entry]
}

// Len reports the number of steps in the script.
func (g *Graph) Len() int {
	return len(g.steps)
}
