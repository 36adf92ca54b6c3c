// Package orchestrator routes a chat message through classification, the
// appropriate retrieval or generation strategy, and conversation persistence.
// Process never returns an error and never panics: every failure path
// resolves to a structured response the chat UI can render.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/orgkb/graphchat/internal/classifier"
	"github.com/orgkb/graphchat/internal/directory"
	"github.com/orgkb/graphchat/internal/llm"
	"github.com/orgkb/graphchat/internal/rag"
	"github.com/orgkb/graphchat/internal/storage"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

const (
	// listCap bounds human-readable lists; overflow gets an "… và N khác" suffix.
	listCap = 10
	// historyLimit bounds how many recent messages feed generation context.
	historyLimit = 10
	// generateTimeout bounds open-ended generation for complex queries.
	generateTimeout = 45 * time.Second
)

// ConversationStore is the session persistence the orchestrator relies on.
// All calls are best-effort: a failing store degrades context, never the
// request.
type ConversationStore interface {
	GetOrCreate(userID, id string) (string, error)
	Append(id, role, content string, meta storage.MessageMeta) error
	Recent(id string, max int) ([]storage.Message, error)
}

// Directory is the set of read-only retrieval adapters over the graph.
type Directory interface {
	ListEmployees(ctx context.Context, limit int) ([]directory.Employee, error)
	SearchEmployeesByName(ctx context.Context, name string) ([]directory.Employee, error)
	EmployeeProfile(ctx context.Context, name string) (directory.Employee, error)
	EmployeesByDepartment(ctx context.Context, department string) ([]directory.Employee, error)
	EmployeesBySkill(ctx context.Context, skill string) ([]directory.Employee, error)
	EmployeesByProject(ctx context.Context, project string) ([]directory.Employee, error)
	EmployeesByPosition(ctx context.Context, position string) ([]directory.Employee, error)
	ListDepartments(ctx context.Context) ([]directory.Department, error)
	ListSkills(ctx context.Context) ([]directory.Skill, error)
	ListProjects(ctx context.Context) ([]directory.Project, error)
	SearchAll(ctx context.Context, text string) ([]string, error)
	Stats(ctx context.Context) (directory.Stats, error)
}

// Responder is the RAG pipeline used for semantic queries.
type Responder interface {
	Answer(ctx context.Context, query, collection string, topK int, history []llm.Message) (string, error)
}

// Searcher is direct vector search, the middle stage of the medium-query
// fallback chain.
type Searcher interface {
	Search(ctx context.Context, collection, text string, topK int) ([]vectorindex.Result, error)
}

// Model is the completion provider for open-ended complex queries.
type Model interface {
	Chat(ctx context.Context, messages []llm.Message, jsonSchema *llm.Schema) (string, error)
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Response is the structured result of processing one message.
type Response struct {
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	QueryType      string    `json:"queryType"`
	QueryLevel     string    `json:"queryLevel"`
	ProcessingTime int64     `json:"processingTime"` // milliseconds
	ConversationID string    `json:"conversationId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Orchestrator wires the pipeline. Construct with New.
type Orchestrator struct {
	conversations ConversationStore
	directory     Directory
	rag           Responder
	index         Searcher
	model         Model
	collection    string
	topK          int
	logger        *slog.Logger
}

// New creates an Orchestrator. collection names the vector collection
// semantic retrieval searches (empty uses the ingestion default); topK
// controls retrieval breadth (default 5 if <= 0).
func New(conversations ConversationStore, dir Directory, rag Responder, index Searcher, model Model, collection string, topK int, logger *slog.Logger) *Orchestrator {
	if collection == "" {
		collection = vectorindex.DefaultCollection
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		conversations: conversations,
		directory:     dir,
		rag:           rag,
		index:         index,
		model:         model,
		collection:    collection,
		topK:          topK,
		logger:        logger,
	}
}

// Process handles one inbound message end to end. It always returns a
// well-formed Response; failures are classified and rendered as diagnostic
// text with queryType "error".
func (o *Orchestrator) Process(ctx context.Context, message, conversationID, userID string) (resp Response) {
	start := time.Now()
	resp = Response{
		Message:    message,
		QueryType:  string(classifier.TypeUnknown),
		QueryLevel: classifier.LevelSimple.String(),
		Timestamp:  start.UTC(),
	}
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("panic in query pipeline", "panic", rec)
			resp.Response = genericErrorMessage
			resp.QueryType = string(classifier.TypeError)
			resp.QueryLevel = classifier.LevelSimple.String()
		}
		resp.ProcessingTime = time.Since(start).Milliseconds()
	}()

	// Resolve the conversation and record the user turn. Both are
	// best-effort: a broken session store must not block the answer.
	convID, err := o.conversations.GetOrCreate(userID, conversationID)
	if err != nil {
		o.logger.Warn("conversation resolution failed, continuing without context", "error", err)
		convID = ""
	}
	resp.ConversationID = convID
	if convID != "" {
		if err := o.conversations.Append(convID, "user", message, storage.MessageMeta{}); err != nil {
			o.logger.Warn("saving user message failed", "error", err)
		}
	}

	// Early high-precision path: "find employee by name" is common and cheap,
	// so it skips the general classifier entirely. A failing lookup falls
	// through to the general path rather than failing the request.
	if name := extractEmployeeName(message); name != "" {
		if text, ok := o.employeeByName(ctx, name); ok {
			resp.Response = text
			resp.QueryType = string(classifier.TypeEmployeeNameSearch)
			resp.QueryLevel = classifier.LevelSimple.String()
			o.saveAssistantTurn(convID, text, resp)
			return resp
		}
	}

	result := classifier.Classify(message)
	resp.QueryType = string(result.Type)
	resp.QueryLevel = result.Level.String()

	var text string
	switch result.Level {
	case classifier.LevelSimple:
		text, err = o.handleSimple(ctx, result)
	case classifier.LevelMedium:
		text, err = o.handleMedium(ctx, message, result, convID)
	case classifier.LevelComplex:
		text, err = o.handleComplex(ctx, message, convID)
	default:
		text, err = o.handleSimple(ctx, result)
	}
	if err != nil {
		o.logger.Error("query handling failed", "level", result.Level.String(), "type", result.Type, "error", err)
		text = diagnose(err)
		resp.QueryType = string(classifier.TypeError)
		resp.QueryLevel = classifier.LevelSimple.String()
	}
	resp.Response = text

	o.saveAssistantTurn(convID, text, resp)
	return resp
}

func (o *Orchestrator) saveAssistantTurn(convID, text string, resp Response) {
	if convID == "" {
		return
	}
	meta := storage.MessageMeta{
		QueryType:        resp.QueryType,
		QueryLevel:       resp.QueryLevel,
		ProcessingTimeMs: time.Since(resp.Timestamp).Milliseconds(),
	}
	if err := o.conversations.Append(convID, "assistant", text, meta); err != nil {
		o.logger.Warn("saving assistant message failed", "error", err)
	}
}

// employeeByName runs the short-circuit name lookup. ok is false when the
// request should fall through to the general path (no match, or the lookup
// itself failed).
func (o *Orchestrator) employeeByName(ctx context.Context, name string) (string, bool) {
	matches, err := o.directory.SearchEmployeesByName(ctx, name)
	if err != nil {
		o.logger.Warn("employee name lookup failed, falling back to general path", "name", name, "error", err)
		return "", false
	}
	switch len(matches) {
	case 0:
		return "", false
	case 1:
		profile, err := o.directory.EmployeeProfile(ctx, matches[0].Name)
		if err != nil {
			// Full profile unavailable; the basic search record still answers.
			o.logger.Warn("employee profile fetch failed, using search record", "name", matches[0].Name, "error", err)
			return formatEmployeeBrief(matches[0]), true
		}
		return formatEmployeeProfile(profile), true
	default:
		return formatDisambiguation(name, matches), true
	}
}

// handleSimple answers direct lookups. The type switch carries a default arm
// so unrecognized types resolve to the help text, never an error.
func (o *Orchestrator) handleSimple(ctx context.Context, result classifier.Result) (string, error) {
	switch result.Type {
	case classifier.TypeListEmployees:
		employees, err := o.directory.ListEmployees(ctx, 100)
		if err != nil {
			return "", err
		}
		return formatEmployeeList(employees), nil
	case classifier.TypeListDepartments:
		departments, err := o.directory.ListDepartments(ctx)
		if err != nil {
			return "", err
		}
		return formatDepartmentList(departments), nil
	case classifier.TypeListSkills:
		skills, err := o.directory.ListSkills(ctx)
		if err != nil {
			return "", err
		}
		return formatSkillList(skills), nil
	case classifier.TypeListProjects:
		projects, err := o.directory.ListProjects(ctx)
		if err != nil {
			return "", err
		}
		return formatProjectList(projects), nil
	case classifier.TypeUnknown:
		return helpMessage, nil
	default:
		return helpMessage, nil
	}
}

// handleMedium answers filtered and semantic queries. Without filters it
// walks a staged fallback chain — RAG, direct vector search, substring
// search — where each stage runs only if the previous failed or came back
// empty. The floor guarantees a useful answer even with the model and the
// vector index both down.
func (o *Orchestrator) handleMedium(ctx context.Context, message string, result classifier.Result, convID string) (string, error) {
	if !result.Filters.Empty() {
		return o.handleFiltered(ctx, result.Filters)
	}

	history := o.recentHistory(convID)

	// Stage 1: RAG.
	answer, err := o.rag.Answer(ctx, message, o.collection, o.topK, history)
	if err == nil && answer != "" && !isNotFound(answer) {
		return answer, nil
	}
	if err != nil {
		o.logger.Warn("RAG stage failed, trying direct vector search", "error", err)
	}

	// Stage 2: direct vector search.
	results, err := o.index.Search(ctx, o.collection, message, o.topK)
	if err != nil {
		o.logger.Warn("vector search stage failed, trying substring search", "error", err)
	} else if len(results) > 0 {
		return formatVectorResults(results), nil
	}

	// Stage 3: substring search floor.
	names, err := o.directory.SearchAll(ctx, message)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return noResultsMessage, nil
	}
	return formatNameList(names), nil
}

func (o *Orchestrator) handleFiltered(ctx context.Context, filters classifier.Filters) (string, error) {
	var (
		employees []directory.Employee
		err       error
	)
	switch {
	case filters.Department != "":
		employees, err = o.directory.EmployeesByDepartment(ctx, filters.Department)
	case filters.Skill != "":
		employees, err = o.directory.EmployeesBySkill(ctx, filters.Skill)
	case filters.Project != "":
		employees, err = o.directory.EmployeesByProject(ctx, filters.Project)
	case filters.Position != "":
		employees, err = o.directory.EmployeesByPosition(ctx, filters.Position)
	default:
		// Only an experience filter extracted; the broad list is filtered below.
		employees, err = o.directory.ListEmployees(ctx, 100)
	}
	if err != nil {
		return "", err
	}
	if filters.Experience != "" {
		employees = filterByExperience(employees, filters.Experience)
	}
	if len(employees) == 0 {
		return noResultsMessage, nil
	}
	return formatEmployeeList(employees), nil
}

// handleComplex builds grounding context from aggregate stats and recent
// history, then delegates to the completion model. Missing stats degrade the
// context, not the request.
func (o *Orchestrator) handleComplex(ctx context.Context, message, convID string) (string, error) {
	contextBlock := ""
	stats, err := o.directory.Stats(ctx)
	if err != nil {
		o.logger.Warn("stats unavailable for complex query context", "error", err)
	} else {
		contextBlock = formatStats(stats)
	}

	history := o.recentHistory(convID)

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	if len(history) > 0 {
		messages := make([]llm.Message, 0, len(history)+2)
		messages = append(messages, llm.Message{Role: "system", Content: complexSystemPrompt + "\n\n" + contextBlock})
		messages = append(messages, history...)
		messages = append(messages, llm.Message{Role: "user", Content: message})
		return o.model.Chat(genCtx, messages, nil)
	}

	prompt := contextBlock + "\n\nCÂU HỎI: " + message
	return o.model.Generate(genCtx, prompt, complexSystemPrompt)
}

// isNotFound reports whether a RAG answer is the empty-retrieval sentinel,
// which should trigger the next fallback stage rather than being returned.
func isNotFound(answer string) bool {
	return answer == rag.NotFoundMessage
}

// recentHistory loads conversation context best-effort and converts it for
// the model.
func (o *Orchestrator) recentHistory(convID string) []llm.Message {
	if convID == "" {
		return nil
	}
	stored, err := o.conversations.Recent(convID, historyLimit)
	if err != nil {
		o.logger.Warn("loading conversation history failed", "error", err)
		return nil
	}
	messages := make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}
