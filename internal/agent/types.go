// Package agent implements a plan-and-execute loop over named tools: a
// planner asks the model to break a goal into tool invocations, an executor
// runs them strictly in sequence, and a synthesis step turns the collected
// observations into a final answer. Every model-facing stage has a
// deterministic fallback, so an execution always terminates with an answer.
package agent

import "time"

// StepStatus is the state of a plan step. Transitions are
// pending → running → completed|failed; terminal states never change within
// a pass.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Step is one tool invocation in a plan.
type Step struct {
	ID          int        `json:"id"`
	Tool        string     `json:"tool"`
	Input       string     `json:"input"`
	Description string     `json:"description,omitempty"`
	Status      StepStatus `json:"status"`
	Observation string     `json:"observation,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Plan is the planner's output. A zero-step plan with DirectAnswer set means
// the model chose to answer without tools.
type Plan struct {
	Goal         string `json:"goal"`
	Steps        []Step `json:"steps"`
	DirectAnswer string `json:"directAnswer,omitempty"`
}

// Execution is the audit record of one agent run.
type Execution struct {
	ID          string        `json:"id"`
	Goal        string        `json:"goal"`
	Steps       []Step        `json:"steps"`
	FinalAnswer string        `json:"finalAnswer"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
}
