// Package ingest turns uploaded documents into vector index entries: PDF or
// plain text in, paragraph chunks with metadata out.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/orgkb/graphchat/internal/directory"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

// maxChunkRunes splits oversized paragraphs so a single chunk stays inside
// typical embedding context windows.
const maxChunkRunes = 2000

// Indexer is the vector index write surface.
type Indexer interface {
	AddDocuments(ctx context.Context, collection string, docs []vectorindex.Document) error
}

// Ingestor chunks and indexes documents.
type Ingestor struct {
	index  Indexer
	logger *slog.Logger
}

// New creates an Ingestor.
func New(index Indexer, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{index: index, logger: logger}
}

// IngestText chunks plain text and indexes it into the named collection.
// Returns the number of chunks indexed.
func (g *Ingestor) IngestText(ctx context.Context, collection, title, text string) (int, error) {
	chunks := Chunk(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %q contains no text", title)
	}

	docs := make([]vectorindex.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, vectorindex.Document{
			ID:      uuid.NewString(),
			Content: chunk,
			Metadata: map[string]string{
				"name":  title,
				"type":  "document",
				"chunk": fmt.Sprintf("%d/%d", i+1, len(chunks)),
			},
		})
	}
	if err := g.index.AddDocuments(ctx, collection, docs); err != nil {
		return 0, fmt.Errorf("indexing %q: %w", title, err)
	}
	g.logger.Info("document ingested", "title", title, "collection", collection, "chunks", len(docs))
	return len(docs), nil
}

// syncLimit caps how many employee profiles one sync embeds.
const syncLimit = 1000

// EmployeeSource lists employee profiles for indexing.
type EmployeeSource interface {
	ListEmployees(ctx context.Context, limit int) ([]directory.Employee, error)
}

// SyncEmployees renders employee profiles from the graph into the named
// collection, so semantic retrieval covers people as well as uploaded
// documents. IDs are stable per employee: a re-sync upserts instead of
// duplicating. Returns the number of profiles indexed.
func (g *Ingestor) SyncEmployees(ctx context.Context, collection string, src EmployeeSource) (int, error) {
	employees, err := src.ListEmployees(ctx, syncLimit)
	if err != nil {
		return 0, fmt.Errorf("listing employees: %w", err)
	}
	if len(employees) == 0 {
		return 0, nil
	}

	docs := make([]vectorindex.Document, 0, len(employees))
	for _, e := range employees {
		id := e.ID
		if id == "" {
			id = e.Name
		}
		docs = append(docs, vectorindex.Document{
			ID:      "employee:" + id,
			Content: renderEmployee(e),
			Metadata: map[string]string{
				"name": e.Name,
				"type": "employee",
			},
		})
	}
	if err := g.index.AddDocuments(ctx, collection, docs); err != nil {
		return 0, fmt.Errorf("indexing employee profiles: %w", err)
	}
	g.logger.Info("employee profiles indexed", "collection", collection, "count", len(docs))
	return len(docs), nil
}

// renderEmployee flattens a profile into one embeddable line.
func renderEmployee(e directory.Employee) string {
	parts := []string{e.Name}
	if e.Position != "" {
		parts = append(parts, "chức vụ "+e.Position)
	}
	if e.Department != "" {
		parts = append(parts, "phòng ban "+e.Department)
	}
	if e.Experience > 0 {
		parts = append(parts, fmt.Sprintf("%d năm kinh nghiệm", e.Experience))
	}
	if len(e.Skills) > 0 {
		parts = append(parts, "kỹ năng: "+strings.Join(e.Skills, ", "))
	}
	if len(e.Projects) > 0 {
		parts = append(parts, "dự án: "+strings.Join(e.Projects, ", "))
	}
	return strings.Join(parts, "; ")
}

// IngestPDF extracts text from raw PDF bytes and indexes it.
func (g *Ingestor) IngestPDF(ctx context.Context, collection, title string, raw []byte) (int, error) {
	text, err := ExtractPDFText(raw)
	if err != nil {
		return 0, fmt.Errorf("extracting %q: %w", title, err)
	}
	return g.IngestText(ctx, collection, title, text)
}

// ExtractPDFText pulls plain text from PDF bytes, page by page. Pages that
// fail to extract are skipped; an error is returned only when nothing could
// be read.
func ExtractPDFText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	extracted := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
		extracted++
	}
	if extracted == 0 {
		return "", fmt.Errorf("no extractable text in %d pages", reader.NumPage())
	}
	return sb.String(), nil
}

// Chunk splits text into paragraph-sized chunks: blank-line paragraphs
// first, then a rune-count split for paragraphs exceeding maxChunkRunes.
// Whitespace-only paragraphs are dropped.
func Chunk(text string) []string {
	var chunks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		runes := []rune(para)
		for len(runes) > maxChunkRunes {
			cut := splitPoint(runes, maxChunkRunes)
			chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
			runes = runes[cut:]
		}
		if rest := strings.TrimSpace(string(runes)); rest != "" {
			chunks = append(chunks, rest)
		}
	}
	return chunks
}

// splitPoint finds a space near limit to cut at, falling back to a hard cut.
func splitPoint(runes []rune, limit int) int {
	for i := limit; i > limit/2; i-- {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i
		}
	}
	return limit
}
