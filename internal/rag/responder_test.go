package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/orgkb/graphchat/internal/llm"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

type fakeSearcher struct {
	results []vectorindex.Result
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _, _ string, _ int) ([]vectorindex.Result, error) {
	return f.results, f.err
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func TestAnswer_EmptyRetrievalSkipsModel(t *testing.T) {
	model := &fakeGenerator{answer: "should not be used"}
	r := New(&fakeSearcher{}, model, nil)

	got, err := r.Answer(context.Background(), "ai biết python", "employees", 5, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != NotFoundMessage {
		t.Errorf("Answer = %q, want NotFoundMessage", got)
	}
	if model.calls != 0 {
		t.Errorf("model called %d times on empty retrieval, want 0", model.calls)
	}
}

func TestAnswer_SearchErrorPropagates(t *testing.T) {
	r := New(&fakeSearcher{err: errors.New("index down")}, &fakeGenerator{}, nil)

	if _, err := r.Answer(context.Background(), "q", "employees", 5, nil); err == nil {
		t.Fatal("expected error when search fails")
	}
}

func TestAnswer_GenerationSuccess(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorindex.Result{
		{ID: "1", Content: "Nguyễn Văn A biết Python", Score: 0.9, Metadata: map[string]string{"name": "Nguyễn Văn A"}},
	}}
	model := &fakeGenerator{answer: "Nguyễn Văn A là người biết Python."}
	r := New(searcher, model, nil)

	got, err := r.Answer(context.Background(), "ai biết python", "employees", 5, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != model.answer {
		t.Errorf("Answer = %q, want model answer", got)
	}
}

func TestAnswer_GenerationFailureFallsBackToListing(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorindex.Result{
		{ID: "1", Content: "Nguyễn Văn A biết Python", Score: 0.9},
		{ID: "2", Content: "Trần Thị B biết Go", Score: 0.7},
	}}
	r := New(searcher, &fakeGenerator{err: errors.New("model down")}, nil)

	got, err := r.Answer(context.Background(), "ai biết gì", "employees", 5, nil)
	if err != nil {
		t.Fatalf("Answer should not fail once retrieval succeeded: %v", err)
	}
	if !strings.Contains(got, "Nguyễn Văn A biết Python") || !strings.Contains(got, "Trần Thị B biết Go") {
		t.Errorf("fallback listing missing raw results: %q", got)
	}
}

func TestBuildPrompt_HistorySection(t *testing.T) {
	results := []vectorindex.Result{{ID: "1", Content: "x", Score: 0.5}}
	history := []llm.Message{{Role: "user", Content: "câu trước"}}

	prompt := buildPrompt("câu hỏi", results, history)
	if !strings.Contains(prompt, "HỘI THOẠI TRƯỚC ĐÓ") || !strings.Contains(prompt, "câu trước") {
		t.Errorf("prompt missing history section: %q", prompt)
	}
}

func TestBuildPrompt_MetadataAndEmptyHistory(t *testing.T) {
	results := []vectorindex.Result{
		{ID: "1", Content: "nội dung", Score: 0.8, Metadata: map[string]string{"name": "A", "type": "employee"}},
	}
	prompt := buildPrompt("câu hỏi mới", results, nil)
	if !strings.Contains(prompt, "nội dung") {
		t.Error("prompt missing retrieved content")
	}
	if !strings.Contains(prompt, "Tên: A") || !strings.Contains(prompt, "Loại: employee") {
		t.Error("prompt missing metadata lines")
	}
	if !strings.Contains(prompt, "câu hỏi mới") {
		t.Error("prompt missing the query")
	}
	if strings.Contains(prompt, "HỘI THOẠI TRƯỚC ĐÓ") {
		t.Error("prompt should omit history section when history is empty")
	}
}
