package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orgkb/graphchat/internal/llm"
)

const (
	stepTimeout      = 20 * time.Second
	synthesisTimeout = 30 * time.Second
	// DefaultMaxExecutionTime is the aggregate wall-clock ceiling for one run.
	DefaultMaxExecutionTime = 2 * time.Minute
)

const apologyAnswer = "Xin lỗi, tôi chưa tìm được câu trả lời cho yêu cầu này. Bạn có thể thử diễn đạt lại."

// ErrExecutionTimeout marks a run that hit the aggregate wall-clock ceiling.
var ErrExecutionTimeout = fmt.Errorf("agent execution exceeded time limit")

// Executor runs plans sequentially against the tool registry.
type Executor struct {
	registry *Registry
	model    Model
	planner  *Planner

	maxSteps        int
	maxExecution    time.Duration
	dynamicPlanning bool
	logger          *slog.Logger
}

// NewExecutor creates an Executor. Zero values for maxSteps and maxExecution
// use the defaults; dynamicPlanning enables the post-pass continuation check.
func NewExecutor(registry *Registry, model Model, planner *Planner, maxSteps int, maxExecution time.Duration, dynamicPlanning bool, logger *slog.Logger) *Executor {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if maxExecution <= 0 {
		maxExecution = DefaultMaxExecutionTime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry:        registry,
		model:           model,
		planner:         planner,
		maxSteps:        maxSteps,
		maxExecution:    maxExecution,
		dynamicPlanning: dynamicPlanning,
		logger:          logger,
	}
}

// Run plans and executes in one call.
func (e *Executor) Run(ctx context.Context, query string) (*Execution, error) {
	plan := e.planner.CreatePlan(ctx, query, "")
	return e.Execute(ctx, plan)
}

// Execute runs the plan's steps strictly in order. A failed step halts the
// pass and the run proceeds to synthesis with whatever observations exist.
// The aggregate wall-clock ceiling turns the run into a failed result with
// ErrExecutionTimeout. The returned Execution is always non-nil.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Execution, error) {
	exec := &Execution{
		ID:        uuid.NewString(),
		Goal:      plan.Goal,
		Steps:     plan.Steps,
		StartedAt: time.Now().UTC(),
	}
	defer func() { exec.Duration = time.Since(exec.StartedAt) }()

	if plan.DirectAnswer != "" {
		exec.FinalAnswer = plan.DirectAnswer
		return exec, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, e.maxExecution)
	defer cancel()

	halted := false
	for i := range exec.Steps {
		if runCtx.Err() != nil {
			exec.FinalAnswer = apologyAnswer
			return exec, ErrExecutionTimeout
		}
		if !e.runStep(runCtx, &exec.Steps[i]) {
			halted = true
			break
		}
	}

	// After a clean pass the model may ask for more steps, bounded by the
	// overall step limit. A failing check silently stops the loop.
	if e.dynamicPlanning && !halted {
		e.continueDynamically(runCtx, exec)
	}

	if runCtx.Err() != nil {
		exec.FinalAnswer = apologyAnswer
		return exec, ErrExecutionTimeout
	}

	exec.FinalAnswer = e.synthesize(runCtx, exec)
	return exec, nil
}

// runStep executes one step and reports whether the pass should continue.
func (e *Executor) runStep(ctx context.Context, step *Step) bool {
	step.Status = StepRunning

	tool, ok := e.registry.Get(step.Tool)
	if !ok {
		step.Status = StepFailed
		step.Error = fmt.Sprintf("unknown tool %q", step.Tool)
		e.logger.Warn("step references unknown tool", "tool", step.Tool)
		return false
	}

	stepCtx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	observation, err := tool.Run(stepCtx, step.Input)
	if err != nil {
		step.Status = StepFailed
		step.Error = err.Error()
		e.logger.Warn("step failed", "tool", step.Tool, "error", err)
		return false
	}
	step.Status = StepCompleted
	step.Observation = observation
	e.logger.Debug("step completed", "tool", step.Tool, "observation_len", len(observation))
	return true
}

// continueDynamically asks the model whether more steps are needed and runs
// them, up to the overall step limit.
func (e *Executor) continueDynamically(ctx context.Context, exec *Execution) {
	for len(exec.Steps) < e.maxSteps {
		next, ok := e.nextStep(ctx, exec)
		if !ok {
			return
		}
		next.ID = len(exec.Steps) + 1
		next.Status = StepPending
		exec.Steps = append(exec.Steps, next)
		if !e.runStep(ctx, &exec.Steps[len(exec.Steps)-1]) {
			return
		}
	}
}

type continuation struct {
	Done  bool   `json:"done"`
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

func (e *Executor) nextStep(ctx context.Context, exec *Execution) (Step, bool) {
	prompt := fmt.Sprintf(`MỤC TIÊU: %s

KẾT QUẢ ĐÃ THU THẬP:
%s

Đã đủ thông tin để trả lời chưa? Trả về JSON: {"done": true} nếu đủ, hoặc {"done": false, "tool": "...", "input": "..."} nếu cần thêm một bước.

CÔNG CỤ:
%s`, exec.Goal, observations(exec.Steps), e.registry.Catalog())

	checkCtx, cancel := context.WithTimeout(ctx, planTimeout)
	defer cancel()

	raw, err := e.model.Chat(checkCtx, []llm.Message{{Role: "user", Content: prompt}}, continuationSchema)
	if err != nil {
		e.logger.Debug("continuation check failed, stopping", "error", err)
		return Step{}, false
	}
	var c continuation
	if err := llm.ExtractJSON(raw, &c); err != nil {
		e.logger.Debug("continuation output unparsable, stopping", "error", err)
		return Step{}, false
	}
	if c.Done || c.Tool == "" {
		return Step{}, false
	}
	if _, ok := e.registry.Get(c.Tool); !ok {
		e.logger.Debug("continuation names unknown tool, stopping", "tool", c.Tool)
		return Step{}, false
	}
	return Step{Tool: c.Tool, Input: c.Input, Description: "bước bổ sung"}, true
}

var continuationSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]llm.SchemaProperty{
		"done":  {Type: "boolean"},
		"tool":  {Type: "string"},
		"input": {Type: "string"},
	},
	Required: []string{"done"},
}

// synthesize turns the collected observations into the final answer. The
// fallback chain is model synthesis, then the last raw observation, then a
// generic apology.
func (e *Executor) synthesize(ctx context.Context, exec *Execution) string {
	obs := observations(exec.Steps)
	if obs == "" {
		return apologyAnswer
	}

	prompt := fmt.Sprintf(`MỤC TIÊU: %s

KẾT QUẢ THU THẬP ĐƯỢC:
%s

Dựa trên kết quả trên, trả lời mục tiêu một cách ngắn gọn bằng tiếng Việt.`, exec.Goal, obs)

	synthCtx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	answer, err := e.model.Generate(synthCtx, prompt, "")
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			e.logger.Warn("synthesis failed, returning last observation", "error", err)
		}
		return lastObservation(exec.Steps)
	}
	return answer
}

func observations(steps []Step) string {
	var sb strings.Builder
	for _, s := range steps {
		if s.Status != StepCompleted || s.Observation == "" {
			continue
		}
		fmt.Fprintf(&sb, "[%s] %s\n", s.Tool, s.Observation)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func lastObservation(steps []Step) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Status == StepCompleted && steps[i].Observation != "" {
			return steps[i].Observation
		}
	}
	return apologyAnswer
}
