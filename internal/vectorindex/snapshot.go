package vectorindex

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// SnapshotStore persists full collection snapshots to SQLite. Every mutation
// rewrites the whole collection in one transaction — no incremental log.
// Acceptable because collections are small (hundreds to low thousands).
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore wraps an existing *sql.DB for snapshot persistence.
// The vector_snapshots table must already exist (created via migrations).
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// SaveCollection replaces the stored snapshot of the named collection.
func (s *SnapshotStore) SaveCollection(collection string, vectors []StoredVector) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM vector_snapshots WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clearing snapshot of %s: %w", collection, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO vector_snapshots (collection, id, content, metadata_json, embedding)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vectors {
		meta, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", v.ID, err)
		}
		if _, err := stmt.Exec(collection, v.ID, v.Content, string(meta), encodeFloat32s(v.Embedding)); err != nil {
			return fmt.Errorf("inserting snapshot row %s: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

// LoadAll returns every stored collection keyed by name.
func (s *SnapshotStore) LoadAll() (map[string][]StoredVector, error) {
	rows, err := s.db.Query(`
		SELECT collection, id, content, metadata_json, embedding
		FROM vector_snapshots ORDER BY collection, id`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]StoredVector)
	for rows.Next() {
		var collection, metaJSON string
		var v StoredVector
		var blob []byte
		if err := rows.Scan(&collection, &v.ID, &v.Content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &v.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata for %s: %w", v.ID, err)
		}
		embedding, err := decodeFloat32s(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", v.ID, err)
		}
		v.Embedding = embedding
		out[collection] = append(out[collection], v)
	}
	return out, rows.Err()
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a new float32 slice.
// Returns an error if the byte slice length is not a multiple of 4 (indicates data corruption).
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
