package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/orgkb/graphchat/internal/classifier"
	"github.com/orgkb/graphchat/internal/directory"
	"github.com/orgkb/graphchat/internal/ingest"
	"github.com/orgkb/graphchat/internal/llm"
	"github.com/orgkb/graphchat/internal/rag"
	"github.com/orgkb/graphchat/internal/storage"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

// fakeStore records appends in memory.
type fakeStore struct {
	resolveErr error
	appendErr  error
	history    []storage.Message
	appended   []storage.Message
}

func (f *fakeStore) GetOrCreate(userID, id string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if id != "" {
		return id, nil
	}
	return "conv-1", nil
}

func (f *fakeStore) Append(id, role, content string, meta storage.MessageMeta) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, storage.Message{Role: role, Content: content, Meta: meta})
	return nil
}

func (f *fakeStore) Recent(id string, max int) ([]storage.Message, error) {
	return f.history, nil
}

// fakeDirectory returns canned data; err poisons every call.
type fakeDirectory struct {
	err         error
	employees   []directory.Employee
	byName      []directory.Employee
	profile     directory.Employee
	profileErr  error
	departments []directory.Department
	skills      []directory.Skill
	projects    []directory.Project
	names       []string
	stats       directory.Stats
}

func (f *fakeDirectory) ListEmployees(context.Context, int) ([]directory.Employee, error) {
	return f.employees, f.err
}
func (f *fakeDirectory) SearchEmployeesByName(context.Context, string) ([]directory.Employee, error) {
	return f.byName, f.err
}
func (f *fakeDirectory) EmployeeProfile(context.Context, string) (directory.Employee, error) {
	if f.profileErr != nil {
		return directory.Employee{}, f.profileErr
	}
	return f.profile, f.err
}
func (f *fakeDirectory) EmployeesByDepartment(context.Context, string) ([]directory.Employee, error) {
	return f.employees, f.err
}
func (f *fakeDirectory) EmployeesBySkill(context.Context, string) ([]directory.Employee, error) {
	return f.employees, f.err
}
func (f *fakeDirectory) EmployeesByProject(context.Context, string) ([]directory.Employee, error) {
	return f.employees, f.err
}
func (f *fakeDirectory) EmployeesByPosition(context.Context, string) ([]directory.Employee, error) {
	return f.employees, f.err
}
func (f *fakeDirectory) ListDepartments(context.Context) ([]directory.Department, error) {
	return f.departments, f.err
}
func (f *fakeDirectory) ListSkills(context.Context) ([]directory.Skill, error) {
	return f.skills, f.err
}
func (f *fakeDirectory) ListProjects(context.Context) ([]directory.Project, error) {
	return f.projects, f.err
}
func (f *fakeDirectory) SearchAll(context.Context, string) ([]string, error) {
	return f.names, f.err
}
func (f *fakeDirectory) Stats(context.Context) (directory.Stats, error) {
	return f.stats, f.err
}

type fakeResponder struct {
	answer string
	err    error
}

func (f *fakeResponder) Answer(context.Context, string, string, int, []llm.Message) (string, error) {
	return f.answer, f.err
}

type fakeSearcher struct {
	results []vectorindex.Result
	err     error
}

func (f *fakeSearcher) Search(context.Context, string, string, int) ([]vectorindex.Result, error) {
	return f.results, f.err
}

type fakeModel struct {
	answer string
	err    error
}

func (f *fakeModel) Chat(context.Context, []llm.Message, *llm.Schema) (string, error) {
	return f.answer, f.err
}
func (f *fakeModel) Generate(context.Context, string, string) (string, error) {
	return f.answer, f.err
}

func newTestOrchestrator(store *fakeStore, dir *fakeDirectory, responder *fakeResponder, searcher *fakeSearcher, model *fakeModel) *Orchestrator {
	if store == nil {
		store = &fakeStore{}
	}
	if dir == nil {
		dir = &fakeDirectory{}
	}
	if responder == nil {
		responder = &fakeResponder{answer: rag.NotFoundMessage}
	}
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	if model == nil {
		model = &fakeModel{answer: "ok"}
	}
	return New(store, dir, responder, searcher, model, "", 5, nil)
}

// fakeEmbedder maps exact text to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func TestProcess_EmployeeNameShortCircuit(t *testing.T) {
	dir := &fakeDirectory{
		byName:  []directory.Employee{{Name: "Nguyễn Văn A"}},
		profile: directory.Employee{Name: "Nguyễn Văn A", Position: "Kỹ sư", Department: "Kỹ thuật"},
	}
	o := newTestOrchestrator(nil, dir, nil, nil, nil)

	resp := o.Process(context.Background(), "nhân viên tên Nguyễn Văn A", "", "alice")

	if resp.QueryType != string(classifier.TypeEmployeeNameSearch) {
		t.Errorf("QueryType = %s, want employee-name-search", resp.QueryType)
	}
	if resp.QueryLevel != "simple" {
		t.Errorf("QueryLevel = %s, want simple", resp.QueryLevel)
	}
	if !strings.Contains(resp.Response, "Nguyễn Văn A") || !strings.Contains(resp.Response, "Kỹ sư") {
		t.Errorf("Response missing profile fields: %q", resp.Response)
	}
}

func TestProcess_NameDisambiguation(t *testing.T) {
	dir := &fakeDirectory{
		byName: []directory.Employee{
			{Name: "Nguyễn Văn A", Department: "Kỹ thuật"},
			{Name: "Nguyễn Văn An", Department: "Kinh doanh"},
		},
	}
	o := newTestOrchestrator(nil, dir, nil, nil, nil)

	resp := o.Process(context.Background(), "thông tin về Nguyễn Văn A", "", "alice")

	if resp.QueryType != string(classifier.TypeEmployeeNameSearch) {
		t.Errorf("QueryType = %s, want employee-name-search", resp.QueryType)
	}
	if !strings.Contains(resp.Response, "Nguyễn Văn An") {
		t.Errorf("disambiguation list missing candidates: %q", resp.Response)
	}
}

func TestProcess_SimpleListDepartments(t *testing.T) {
	dir := &fakeDirectory{
		departments: []directory.Department{
			{Name: "Kỹ thuật", Headcount: 12},
			{Name: "Kinh doanh", Headcount: 8},
		},
	}
	o := newTestOrchestrator(nil, dir, nil, nil, nil)

	resp := o.Process(context.Background(), "Danh sách phòng ban", "", "alice")

	if resp.QueryLevel != "simple" || resp.QueryType != string(classifier.TypeListDepartments) {
		t.Errorf("got %s/%s, want simple/list-departments", resp.QueryLevel, resp.QueryType)
	}
	if !strings.Contains(resp.Response, "Kỹ thuật") || !strings.Contains(resp.Response, "12") {
		t.Errorf("Response missing department data: %q", resp.Response)
	}
}

func TestProcess_ListCapWithOverflowSuffix(t *testing.T) {
	employees := make([]directory.Employee, 25)
	for i := range employees {
		employees[i] = directory.Employee{Name: "NV " + strings.Repeat("x", i+1)}
	}
	dir := &fakeDirectory{employees: employees}
	o := newTestOrchestrator(nil, dir, nil, nil, nil)

	resp := o.Process(context.Background(), "danh sách nhân viên", "", "alice")

	if !strings.Contains(resp.Response, "và 15 khác") {
		t.Errorf("Response missing overflow suffix: %q", resp.Response)
	}
	if got := strings.Count(resp.Response, "NV "); got != 10 {
		t.Errorf("listed %d employees, want 10", got)
	}
}

func TestProcess_MediumRAGAnswer(t *testing.T) {
	o := newTestOrchestrator(nil, nil, &fakeResponder{answer: "Có 2 người biết Python."}, nil, nil)

	resp := o.Process(context.Background(), "tìm hiểu về văn hóa công ty", "", "alice")

	if resp.QueryLevel != "medium" {
		t.Fatalf("QueryLevel = %s, want medium", resp.QueryLevel)
	}
	if resp.Response != "Có 2 người biết Python." {
		t.Errorf("Response = %q, want RAG answer", resp.Response)
	}
}

// End-to-end over the real index, ingestor, and responder: a document
// ingested into the default collection must be reachable from a semantic
// query, not fall through to the substring floor.
func TestProcess_AnswersFromIngestedDocument(t *testing.T) {
	content := "Công ty đề cao văn hóa học hỏi và chia sẻ tri thức."
	query := "tìm hiểu về văn hóa công ty"
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		content: {1, 0},
		query:   {1, 0},
	}}
	index := vectorindex.New(embedder, nil, nil)

	ingestor := ingest.New(index, nil)
	if _, err := ingestor.IngestText(context.Background(), vectorindex.DefaultCollection, "Văn hóa công ty", content); err != nil {
		t.Fatalf("IngestText: %v", err)
	}

	model := &fakeModel{answer: "Công ty đề cao văn hóa học hỏi."}
	o := New(&fakeStore{}, &fakeDirectory{}, rag.New(index, model, nil), index, model, "", 5, nil)

	resp := o.Process(context.Background(), query, "", "alice")

	if resp.QueryLevel != "medium" {
		t.Fatalf("QueryLevel = %s, want medium", resp.QueryLevel)
	}
	if resp.Response != model.answer {
		t.Errorf("Response = %q, want answer grounded in the ingested document", resp.Response)
	}
}

func TestProcess_MediumFallsBackToVectorSearch(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorindex.Result{
		{Content: "Trần Thị B: chuyên gia dữ liệu", Score: 0.8},
	}}
	o := newTestOrchestrator(nil, nil, &fakeResponder{err: errors.New("model down")}, searcher, nil)

	resp := o.Process(context.Background(), "tìm chuyên gia dữ liệu", "", "alice")

	if resp.QueryType == string(classifier.TypeError) {
		t.Fatalf("fallback should absorb the RAG failure, got error response %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "Trần Thị B") {
		t.Errorf("Response missing vector result: %q", resp.Response)
	}
}

func TestProcess_MediumSubstringFloor(t *testing.T) {
	dir := &fakeDirectory{names: []string{"Lê Văn C"}}
	o := newTestOrchestrator(nil, dir, &fakeResponder{err: errors.New("down")}, &fakeSearcher{err: errors.New("down")}, nil)

	resp := o.Process(context.Background(), "tìm Lê Văn C giúp tôi", "", "alice")

	if !strings.Contains(resp.Response, "Lê Văn C") {
		t.Errorf("substring floor not reached: %q", resp.Response)
	}
}

func TestProcess_FilteredRetrieval(t *testing.T) {
	dir := &fakeDirectory{employees: []directory.Employee{{Name: "Phạm D", Position: "Dev"}}}
	o := newTestOrchestrator(nil, dir, nil, nil, nil)

	resp := o.Process(context.Background(), "ai thuộc phòng kỹ thuật", "", "alice")

	if resp.QueryType != string(classifier.TypeFilterSearch) {
		t.Fatalf("QueryType = %s, want filter-search", resp.QueryType)
	}
	if !strings.Contains(resp.Response, "Phạm D") {
		t.Errorf("Response missing filtered employee: %q", resp.Response)
	}
}

func TestProcess_ComplexUsesModel(t *testing.T) {
	dir := &fakeDirectory{stats: directory.Stats{Employees: 40, Departments: 4}}
	model := &fakeModel{answer: "Phân tích: công ty có 40 nhân viên trong 4 phòng ban."}
	o := newTestOrchestrator(nil, dir, nil, nil, model)

	resp := o.Process(context.Background(), "Phân tích cơ cấu nhân sự", "", "alice")

	if resp.QueryLevel != "complex" {
		t.Fatalf("QueryLevel = %s, want complex", resp.QueryLevel)
	}
	if resp.Response != model.answer {
		t.Errorf("Response = %q, want model answer", resp.Response)
	}
}

func TestProcess_UnknownGetsHelp(t *testing.T) {
	o := newTestOrchestrator(nil, nil, nil, nil, nil)

	resp := o.Process(context.Background(), "blah blah", "", "alice")

	if resp.QueryType != string(classifier.TypeUnknown) {
		t.Errorf("QueryType = %s, want unknown", resp.QueryType)
	}
	if resp.Response != helpMessage {
		t.Errorf("Response = %q, want help text", resp.Response)
	}
}

func TestProcess_StoreFailureDoesNotBlockAnswer(t *testing.T) {
	store := &fakeStore{resolveErr: errors.New("store unreachable")}
	dir := &fakeDirectory{departments: []directory.Department{{Name: "Kỹ thuật"}}}
	o := newTestOrchestrator(store, dir, nil, nil, nil)

	resp := o.Process(context.Background(), "danh sách phòng ban", "", "alice")

	if resp.ConversationID != "" {
		t.Errorf("ConversationID = %q, want empty when store fails", resp.ConversationID)
	}
	if resp.QueryType != string(classifier.TypeListDepartments) {
		t.Errorf("QueryType = %s, want list-departments despite store failure", resp.QueryType)
	}
}

func TestProcess_ConnectivityErrorClassified(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("dial tcp 127.0.0.1:7687: connection refused")}
	o := newTestOrchestrator(nil, dir, nil, nil, nil)

	resp := o.Process(context.Background(), "danh sách phòng ban", "", "alice")

	if resp.QueryType != string(classifier.TypeError) {
		t.Fatalf("QueryType = %s, want error", resp.QueryType)
	}
	if resp.QueryLevel != "simple" {
		t.Errorf("QueryLevel = %s, want simple", resp.QueryLevel)
	}
	if !strings.Contains(resp.Response, "kết nối") {
		t.Errorf("Response should carry connectivity hints: %q", resp.Response)
	}
}

func TestProcess_RecordsBothTurns(t *testing.T) {
	store := &fakeStore{}
	dir := &fakeDirectory{departments: []directory.Department{{Name: "Kỹ thuật"}}}
	o := newTestOrchestrator(store, dir, nil, nil, nil)

	o.Process(context.Background(), "danh sách phòng ban", "", "alice")

	if len(store.appended) != 2 {
		t.Fatalf("appended %d messages, want 2", len(store.appended))
	}
	if store.appended[0].Role != "user" || store.appended[1].Role != "assistant" {
		t.Errorf("roles = %s,%s want user,assistant", store.appended[0].Role, store.appended[1].Role)
	}
	if store.appended[1].Meta.QueryType != string(classifier.TypeListDepartments) {
		t.Errorf("assistant meta QueryType = %s, want list-departments", store.appended[1].Meta.QueryType)
	}
}

func TestProcess_NameLookupErrorFallsThrough(t *testing.T) {
	// Name pattern matches but the lookup fails: the general path answers.
	dir := &fakeDirectory{err: errors.New("graph briefly down")}
	responder := &fakeResponder{answer: "đã tìm thấy qua ngữ nghĩa"}
	o := newTestOrchestrator(nil, dir, responder, nil, nil)

	resp := o.Process(context.Background(), "nhân viên tên Hùng giỏi python", "", "alice")

	if resp.QueryType == string(classifier.TypeEmployeeNameSearch) {
		t.Errorf("failed lookup must not short-circuit, got %s", resp.QueryType)
	}
}

func TestExtractEmployeeName(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"nhân viên tên Nguyễn Văn A", "Nguyễn Văn A"},
		{"Thông tin về Trần Thị B?", "Trần Thị B"},
		{"ai tên là Minh vậy", "Minh"},
		{"người có tên Hoa", "Hoa"},
		{"danh sách phòng ban", ""},
		{"xin chào", ""},
	}
	for _, tt := range tests {
		if got := extractEmployeeName(tt.message); got != tt.want {
			t.Errorf("extractEmployeeName(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestDiagnose(t *testing.T) {
	if got := diagnose(errors.New("connection refused")); got != connectivityErrorMessage {
		t.Errorf("connectivity error not classified: %q", got)
	}
	if got := diagnose(errors.New("syntax error near WHERE")); got != genericErrorMessage {
		t.Errorf("unknown error should map to generic message: %q", got)
	}
	if got := diagnose(context.DeadlineExceeded); got != connectivityErrorMessage {
		t.Errorf("deadline exceeded should classify as connectivity: %q", got)
	}
}
