package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/orgkb/graphchat/internal/directory"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

type fakeIndexer struct {
	collection string
	docs       []vectorindex.Document
	err        error
}

func (f *fakeIndexer) AddDocuments(_ context.Context, collection string, docs []vectorindex.Document) error {
	f.collection = collection
	f.docs = docs
	return f.err
}

func TestChunk_Paragraphs(t *testing.T) {
	text := "Đoạn một.\n\nĐoạn hai.\n\n   \n\nĐoạn ba."
	chunks := Chunk(text)

	want := []string{"Đoạn một.", "Đoạn hai.", "Đoạn ba."}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d: %q", len(chunks), len(want), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := Chunk("   \n\n  \n"); len(got) != 0 {
		t.Errorf("whitespace-only input produced chunks: %q", got)
	}
}

func TestChunk_SplitsOversizedParagraphAtSpace(t *testing.T) {
	word := strings.Repeat("từ ", 1200) // ~3600 runes, no blank lines
	chunks := Chunk(word)

	if len(chunks) < 2 {
		t.Fatalf("oversized paragraph not split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > maxChunkRunes {
			t.Errorf("chunk %d has %d runes, exceeds limit", i, n)
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Errorf("chunk %d not trimmed: %q", i, c[:20])
		}
	}
}

func TestChunk_HardCutWithoutSpaces(t *testing.T) {
	solid := strings.Repeat("x", maxChunkRunes+100)
	chunks := Chunk(solid)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if n := len([]rune(chunks[0])); n != maxChunkRunes {
		t.Errorf("first chunk = %d runes, want hard cut at %d", n, maxChunkRunes)
	}
}

func TestIngestText(t *testing.T) {
	index := &fakeIndexer{}
	g := New(index, nil)

	n, err := g.IngestText(context.Background(), "documents", "Quy chế", "Phần một.\n\nPhần hai.")
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if n != 2 || len(index.docs) != 2 {
		t.Fatalf("indexed %d chunks, want 2", n)
	}
	if index.collection != "documents" {
		t.Errorf("collection = %q", index.collection)
	}

	first := index.docs[0]
	if first.ID == "" {
		t.Error("chunk documents need generated ids")
	}
	if first.Metadata["name"] != "Quy chế" || first.Metadata["type"] != "document" {
		t.Errorf("metadata = %v", first.Metadata)
	}
	if first.Metadata["chunk"] != "1/2" || index.docs[1].Metadata["chunk"] != "2/2" {
		t.Errorf("chunk numbering = %q, %q", first.Metadata["chunk"], index.docs[1].Metadata["chunk"])
	}
}

func TestIngestText_EmptyDocument(t *testing.T) {
	g := New(&fakeIndexer{}, nil)

	if _, err := g.IngestText(context.Background(), "documents", "rỗng", "   "); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestIngestText_IndexErrorPropagates(t *testing.T) {
	g := New(&fakeIndexer{err: errors.New("embedder down")}, nil)

	if _, err := g.IngestText(context.Background(), "documents", "t", "nội dung"); err == nil {
		t.Fatal("expected error when indexing fails")
	}
}

type fakeEmployeeSource struct {
	employees []directory.Employee
	err       error
}

func (f *fakeEmployeeSource) ListEmployees(context.Context, int) ([]directory.Employee, error) {
	return f.employees, f.err
}

func TestSyncEmployees(t *testing.T) {
	index := &fakeIndexer{}
	src := &fakeEmployeeSource{employees: []directory.Employee{
		{ID: "e1", Name: "Nguyễn Văn A", Position: "Kỹ sư", Department: "Kỹ thuật", Skills: []string{"Go", "Python"}},
		{Name: "Trần Thị B"},
	}}
	g := New(index, nil)

	n, err := g.SyncEmployees(context.Background(), "documents", src)
	if err != nil {
		t.Fatalf("SyncEmployees: %v", err)
	}
	if n != 2 || len(index.docs) != 2 {
		t.Fatalf("indexed %d profiles, want 2", n)
	}
	if index.collection != "documents" {
		t.Errorf("collection = %q", index.collection)
	}

	first := index.docs[0]
	if first.ID != "employee:e1" {
		t.Errorf("ID = %q, want stable id for upsert on re-sync", first.ID)
	}
	if index.docs[1].ID != "employee:Trần Thị B" {
		t.Errorf("ID = %q, want name fallback when the graph id is empty", index.docs[1].ID)
	}
	if first.Metadata["name"] != "Nguyễn Văn A" || first.Metadata["type"] != "employee" {
		t.Errorf("metadata = %v", first.Metadata)
	}
	for _, want := range []string{"Nguyễn Văn A", "Kỹ sư", "Kỹ thuật", "Go"} {
		if !strings.Contains(first.Content, want) {
			t.Errorf("profile content missing %q: %q", want, first.Content)
		}
	}
}

func TestSyncEmployees_EmptyGraph(t *testing.T) {
	index := &fakeIndexer{}
	g := New(index, nil)

	n, err := g.SyncEmployees(context.Background(), "documents", &fakeEmployeeSource{})
	if err != nil {
		t.Fatalf("SyncEmployees: %v", err)
	}
	if n != 0 || index.docs != nil {
		t.Errorf("empty graph must index nothing, got %d", n)
	}
}

func TestSyncEmployees_ListErrorPropagates(t *testing.T) {
	g := New(&fakeIndexer{}, nil)

	if _, err := g.SyncEmployees(context.Background(), "documents", &fakeEmployeeSource{err: errors.New("graph down")}); err == nil {
		t.Fatal("expected error when the employee listing fails")
	}
}

func TestExtractPDFText_InvalidBytes(t *testing.T) {
	if _, err := ExtractPDFText([]byte("not a pdf")); err == nil {
		t.Fatal("expected error for invalid pdf bytes")
	}
}
