package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// GetOrCreate resolves a conversation id for the given user. When id is
// empty, unknown, or expired, a new conversation is created; when id exists
// but belongs to another user, ErrForbidden is returned so sessions cannot
// be hijacked by guessing ids.
func (s *Store) GetOrCreate(userID, id string) (string, error) {
	if id != "" {
		var owner, updatedAt string
		err := s.db.QueryRow(`SELECT user_id, updated_at FROM conversations WHERE id = ?`, id).
			Scan(&owner, &updatedAt)
		switch {
		case err == sql.ErrNoRows:
			// fall through to create
		case err != nil:
			return "", fmt.Errorf("looking up conversation: %w", err)
		case owner != userID:
			return "", ErrForbidden
		case !s.expired(updatedAt):
			return id, nil
		}
	}

	newID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(`INSERT INTO conversations (id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)`, newID, userID, now, now)
	if err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}
	return newID, nil
}

// Append adds a message to the conversation, slides the expiry window, and
// truncates history beyond the configured cap (oldest dropped first).
func (s *Store) Append(id, role, content string, meta MessageMeta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`
		INSERT INTO messages (conversation_id, role, content, created_at, query_type, query_level, processing_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, role, content, now, meta.QueryType, meta.QueryLevel, meta.ProcessingTimeMs,
	); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	// FIFO truncation beyond the cap.
	if _, err := tx.Exec(`
		DELETE FROM messages WHERE conversation_id = ? AND id NOT IN (
			SELECT id FROM messages WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		)`, id, id, s.opts.MaxMessages,
	); err != nil {
		return fmt.Errorf("truncating history: %w", err)
	}

	return tx.Commit()
}

// Recent returns the last max messages of the conversation in chronological
// order. Expired or unknown conversations yield ErrNotFound.
func (s *Store) Recent(id string, max int) ([]Message, error) {
	if max <= 0 {
		max = s.opts.MaxMessages
	}

	var updatedAt string
	err := s.db.QueryRow(`SELECT updated_at FROM conversations WHERE id = ?`, id).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up conversation: %w", err)
	}
	if s.expired(updatedAt) {
		return nil, ErrNotFound
	}

	rows, err := s.db.Query(`
		SELECT role, content, created_at, query_type, query_level, processing_ms
		FROM (
			SELECT id, role, content, created_at, query_type, query_level, processing_ms
			FROM messages WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, id, max)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.Role, &m.Content, &createdAt, &m.Meta.QueryType, &m.Meta.QueryLevel, &m.Meta.ProcessingTimeMs); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		m.CreatedAt = t
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ListByUser returns the user's live conversations, most recently active first.
func (s *Store) ListByUser(userID string) ([]Conversation, error) {
	cutoff := time.Now().UTC().Add(-s.opts.TTL).Format(time.RFC3339Nano)
	rows, err := s.db.Query(`
		SELECT id, user_id, created_at, updated_at FROM conversations
		WHERE user_id = ? AND updated_at >= ?
		ORDER BY updated_at DESC`, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns the conversation when it exists, is live, and belongs to userID.
func (s *Store) Get(id, userID string) (Conversation, error) {
	row := s.db.QueryRow(`SELECT id, user_id, created_at, updated_at FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, err
	}
	if c.UserID != userID {
		return Conversation{}, ErrForbidden
	}
	if time.Since(c.UpdatedAt) > s.opts.TTL {
		return Conversation{}, ErrNotFound
	}
	return c, nil
}

// Delete removes the conversation and its messages. Only the owner may
// delete; non-owners get ErrForbidden, unknown ids ErrNotFound.
func (s *Store) Delete(id, userID string) error {
	var owner string
	err := s.db.QueryRow(`SELECT user_id FROM conversations WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up conversation: %w", err)
	}
	if owner != userID {
		return ErrForbidden
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return tx.Commit()
}

// PurgeExpired removes conversations whose sliding TTL window has passed,
// along with their messages. Returns the number of conversations removed.
func (s *Store) PurgeExpired() (int64, error) {
	cutoff := time.Now().UTC().Add(-s.opts.TTL).Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning purge transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM messages WHERE conversation_id IN (
			SELECT id FROM conversations WHERE updated_at < ?
		)`, cutoff); err != nil {
		return 0, fmt.Errorf("purging messages: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM conversations WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging conversations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Sweep runs PurgeExpired on the given interval until ctx is cancelled.
// Expired conversations are also invisible to reads, so the sweeper is
// purely reclamation, not correctness.
func (s *Store) Sweep(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired()
			if err != nil {
				logger.Warn("conversation sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged expired conversations", "count", n)
			}
		}
	}
}

func (s *Store) expired(updatedAt string) bool {
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return true
	}
	return time.Since(t) > s.opts.TTL
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var c Conversation
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.UserID, &createdAt, &updatedAt); err != nil {
		return Conversation{}, err
	}
	var err error
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Conversation{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Conversation{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return c, nil
}
