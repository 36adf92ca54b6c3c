// Package vectorindex is a minimal in-memory vector store: named collections
// of (id, embedding, text, metadata) supporting upsert, cosine-similarity
// search, and full-snapshot persistence. Search is a linear scan, acceptable
// at the documented scale of hundreds to low thousands of vectors per
// collection.
package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// DefaultCollection is where document ingestion and semantic retrieval meet
// when no collection is configured.
const DefaultCollection = "documents"

// Document is the caller-facing unit of content before embedding.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// StoredVector is a Document with its embedding attached.
type StoredVector struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Result is a search hit with its cosine similarity score.
type Result struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float64
}

// Embedder converts text to a vector. May fail and must be treated as fallible.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Persister saves and restores full collection snapshots.
type Persister interface {
	SaveCollection(collection string, vectors []StoredVector) error
	LoadAll() (map[string][]StoredVector, error)
}

// Index holds the in-memory collection map. It is the one piece of
// process-wide mutable state: writers build a fresh slice and swap the
// reference under mu, so a concurrent reader never observes a half-written
// collection. writeMu serializes whole read-copy-swap-persist cycles, so
// racing writers cannot overwrite each other's swap.
type Index struct {
	writeMu sync.Mutex

	mu          sync.RWMutex
	collections map[string][]StoredVector

	embedder  Embedder
	snapshots Persister // optional; nil disables persistence
	logger    *slog.Logger
}

// New creates an Index. snapshots may be nil for a purely in-memory index.
func New(embedder Embedder, snapshots Persister, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		collections: make(map[string][]StoredVector),
		embedder:    embedder,
		snapshots:   snapshots,
		logger:      logger,
	}
}

// Load restores all collections from the snapshot store. Call once at startup.
func (ix *Index) Load() error {
	if ix.snapshots == nil {
		return nil
	}
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	loaded, err := ix.snapshots.LoadAll()
	if err != nil {
		return fmt.Errorf("loading vector snapshots: %w", err)
	}

	ix.mu.Lock()
	ix.collections = loaded
	if ix.collections == nil {
		ix.collections = make(map[string][]StoredVector)
	}
	ix.mu.Unlock()

	for name, vectors := range loaded {
		ix.logger.Debug("loaded vector collection", "collection", name, "size", len(vectors))
	}
	return nil
}

// AddDocuments embeds and upserts docs into the named collection, then
// persists the full collection snapshot. A per-document embedding failure is
// logged and skipped — partial success is acceptable. A document whose
// embedding dimensionality differs from the collection's is a hard error.
func (ix *Index) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	ix.mu.RLock()
	existing := ix.collections[collection]
	ix.mu.RUnlock()

	// Build the new slice off-lock, then swap.
	updated := make([]StoredVector, len(existing))
	copy(updated, existing)

	dim := 0
	if len(updated) > 0 {
		dim = len(updated[0].Embedding)
	}

	added := 0
	for _, doc := range docs {
		embedding, err := ix.embedder.Embed(ctx, doc.Content)
		if err != nil {
			ix.logger.Warn("skipping document: embedding failed",
				"collection", collection, "id", doc.ID, "error", err)
			continue
		}
		if dim == 0 {
			dim = len(embedding)
		} else if len(embedding) != dim {
			return fmt.Errorf("document %s: %w: collection %s has dimension %d, got %d",
				doc.ID, ErrDimensionMismatch, collection, dim, len(embedding))
		}

		sv := StoredVector{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: embedding,
		}
		if i := indexOf(updated, doc.ID); i >= 0 {
			updated[i] = sv
		} else {
			updated = append(updated, sv)
		}
		added++
	}

	if added == 0 {
		return fmt.Errorf("all %d documents failed to embed", len(docs))
	}

	ix.mu.Lock()
	ix.collections[collection] = updated
	ix.mu.Unlock()

	if ix.snapshots != nil {
		if err := ix.snapshots.SaveCollection(collection, updated); err != nil {
			return fmt.Errorf("persisting collection %s: %w", collection, err)
		}
	}

	ix.logger.Debug("indexed documents", "collection", collection, "added", added, "total", len(updated))
	return nil
}

// Search embeds the query once and returns the topK most similar vectors in
// the named collection, sorted by descending similarity.
func (ix *Index) Search(ctx context.Context, collection, text string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	ix.mu.RLock()
	vectors := ix.collections[collection]
	ix.mu.RUnlock()

	if len(vectors) == 0 {
		return nil, nil
	}

	query, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results := make([]Result, 0, len(vectors))
	for _, v := range vectors {
		score, err := Cosine(query, v.Embedding)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", v.ID, err)
		}
		results = append(results, Result{
			ID:       v.ID,
			Content:  v.Content,
			Metadata: v.Metadata,
			Score:    score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Clear removes the named collection from memory and persists the empty
// snapshot.
func (ix *Index) Clear(collection string) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	ix.mu.Lock()
	delete(ix.collections, collection)
	ix.mu.Unlock()

	if ix.snapshots != nil {
		if err := ix.snapshots.SaveCollection(collection, nil); err != nil {
			return fmt.Errorf("clearing collection %s: %w", collection, err)
		}
	}
	return nil
}

// Size returns the number of vectors in the named collection.
func (ix *Index) Size(collection string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.collections[collection])
}

func indexOf(vectors []StoredVector, id string) int {
	for i, v := range vectors {
		if v.ID == id {
			return i
		}
	}
	return -1
}
