package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/orgkb/graphchat/internal/llm"
)

const planTimeout = 30 * time.Second

// DefaultMaxSteps bounds plan length when the caller passes no limit.
const DefaultMaxSteps = 5

const greetingAnswer = "Xin chào! Tôi là trợ lý tri thức nội bộ. Bạn muốn tìm hiểu gì về nhân sự, phòng ban, kỹ năng hay dự án của công ty?"

var greetingRe = regexp.MustCompile(`(?i)^\s*(xin chào|chào bạn|chào|hello|hi|hey)\b`)

// Model is the planning/synthesis completion provider.
type Model interface {
	Chat(ctx context.Context, messages []llm.Message, jsonSchema *llm.Schema) (string, error)
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Planner turns a goal into a tool plan.
type Planner struct {
	model    Model
	registry *Registry
	maxSteps int
	logger   *slog.Logger
}

// NewPlanner creates a Planner. maxSteps <= 0 uses DefaultMaxSteps.
func NewPlanner(model Model, registry *Registry, maxSteps int, logger *slog.Logger) *Planner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{model: model, registry: registry, maxSteps: maxSteps, logger: logger}
}

// planEnvelope is the JSON shape the model is asked to produce.
type planEnvelope struct {
	DirectAnswer string `json:"directAnswer"`
	Steps        []struct {
		Tool        string `json:"tool"`
		Input       string `json:"input"`
		Description string `json:"description"`
	} `json:"steps"`
}

// CreatePlan asks the model to plan tool use for the query. It never fails:
// an unparsable or unavailable model degrades to a single broad-search step,
// or to a canned direct answer when the query is a greeting.
func (p *Planner) CreatePlan(ctx context.Context, query, contextInfo string) *Plan {
	plan := &Plan{Goal: query}

	planCtx, cancel := context.WithTimeout(ctx, planTimeout)
	defer cancel()

	raw, err := p.model.Chat(planCtx, p.planMessages(query, contextInfo), planSchema)
	if err != nil {
		p.logger.Warn("planning call failed, using fallback plan", "error", err)
		return p.fallbackPlan(plan, query)
	}

	var env planEnvelope
	if err := llm.ExtractJSON(raw, &env); err != nil {
		p.logger.Warn("plan output unparsable, using fallback plan", "error", err)
		return p.fallbackPlan(plan, query)
	}

	if len(env.Steps) == 0 {
		if strings.TrimSpace(env.DirectAnswer) == "" {
			return p.fallbackPlan(plan, query)
		}
		plan.DirectAnswer = strings.TrimSpace(env.DirectAnswer)
		return plan
	}

	for _, s := range env.Steps {
		if _, ok := p.registry.Get(s.Tool); !ok {
			p.logger.Warn("plan names unknown tool, dropping step", "tool", s.Tool)
			continue
		}
		// IDs number the kept steps, so they stay contiguous when a step
		// is dropped.
		plan.Steps = append(plan.Steps, Step{
			ID:          len(plan.Steps) + 1,
			Tool:        s.Tool,
			Input:       s.Input,
			Description: s.Description,
			Status:      StepPending,
		})
	}
	if len(plan.Steps) == 0 {
		return p.fallbackPlan(plan, query)
	}
	if len(plan.Steps) > p.maxSteps {
		p.logger.Warn("plan exceeds step limit, truncating",
			"planned", len(plan.Steps), "limit", p.maxSteps)
		plan.Steps = plan.Steps[:p.maxSteps]
	}
	return plan
}

// fallbackPlan is the deterministic degradation: canned greeting answer when
// the query is a greeting, otherwise one semantic_search step over the query.
func (p *Planner) fallbackPlan(plan *Plan, query string) *Plan {
	if greetingRe.MatchString(query) {
		plan.DirectAnswer = greetingAnswer
		return plan
	}
	plan.Steps = []Step{{
		ID:          1,
		Tool:        "semantic_search",
		Input:       query,
		Description: "tìm kiếm rộng trong cơ sở tri thức",
		Status:      StepPending,
	}}
	return plan
}

func (p *Planner) planMessages(query, contextInfo string) []llm.Message {
	system := fmt.Sprintf(`Bạn là bộ lập kế hoạch cho trợ lý tri thức nội bộ. Nhiệm vụ: quyết định cần gọi công cụ nào (tối đa %d bước) để trả lời câu hỏi, hoặc trả lời trực tiếp nếu là chào hỏi/kiến thức chung.

CÔNG CỤ:
%s
Trả về JSON: {"directAnswer": "...", "steps": [{"tool": "...", "input": "...", "description": "..."}]}. Nếu trả lời trực tiếp, để steps rỗng.`, p.maxSteps, p.registry.Catalog())

	user := query
	if contextInfo != "" {
		user = contextInfo + "\n\nCÂU HỎI: " + query
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

var planSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]llm.SchemaProperty{
		"directAnswer": {Type: "string"},
		"steps": {
			Type: "array",
			Items: &llm.SchemaProperty{
				Type: "object",
				Properties: map[string]llm.SchemaProperty{
					"tool":        {Type: "string"},
					"input":       {Type: "string"},
					"description": {Type: "string"},
				},
			},
		},
	},
	Required: []string{"steps"},
}
