package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docqa-io/docqa/internal/db"
)

// Store persists conversations and their turns.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Append records one turn, creating the conversation row on its first
// turn. Empty IDs are generated.
func (s *Store) Append(ctx context.Context, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.ConversationID == "" {
		turn.ConversationID = uuid.New().String()
	}

	sources, err := json.Marshal(turn.Sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, language) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = datetime('now')`,
		turn.ConversationID, turn.Language,
	)
	if err != nil {
		return fmt.Errorf("upserting conversation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, question, answer, sources, language, cached)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.ID,
		turn.ConversationID,
		turn.Question,
		turn.Answer,
		string(sources),
		turn.Language,
		boolToInt(turn.Cached),
	)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}
	return nil
}

// Get returns one conversation with its turns oldest-first.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	var created, updated string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, language, created_at, updated_at FROM conversations WHERE id = ?", id,
	).Scan(&conv.ID, &conv.Language, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	conv.CreatedAt = parseTime(created)
	conv.UpdatedAt = parseTime(updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, question, answer, sources, language, cached, rating, feedback, created_at
		FROM turns WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		conv.Turns = append(conv.Turns, *turn)
	}
	return &conv, rows.Err()
}

// List returns conversation summaries newest-first, capped at limit
// (default 50).
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.language, c.updated_at,
		       (SELECT COUNT(*) FROM turns t WHERE t.conversation_id = c.id),
		       COALESCE((SELECT question FROM turns t WHERE t.conversation_id = c.id
		                 ORDER BY t.created_at ASC, t.rowid ASC LIMIT 1), '')
		FROM conversations c
		ORDER BY c.updated_at DESC, c.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		var updated string
		if err := rows.Scan(&sum.ID, &sum.Language, &updated, &sum.Turns, &sum.FirstQuestion); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		sum.UpdatedAt = parseTime(updated)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Rate records a thumbs up/down (+1/-1) with optional feedback on a turn.
func (s *Store) Rate(ctx context.Context, turnID string, rating int, feedback string) error {
	if rating != 1 && rating != -1 {
		return fmt.Errorf("rating must be +1 or -1, got %d", rating)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE turns SET rating = ?, feedback = ? WHERE id = ?",
		rating, feedback, turnID,
	)
	if err != nil {
		return fmt.Errorf("rating turn: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("turn %s not found", turnID)
	}
	return nil
}

// Ratings aggregates all turn ratings.
func (s *Store) Ratings(ctx context.Context) (RatingStats, error) {
	var stats RatingStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(rating),
		       COALESCE(SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN rating = -1 THEN 1 ELSE 0 END), 0)
		FROM turns WHERE rating IS NOT NULL`,
	).Scan(&stats.Rated, &stats.Up, &stats.Down)
	if err != nil {
		return stats, fmt.Errorf("aggregating ratings: %w", err)
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(sc scanner) (*Turn, error) {
	var (
		t           Turn
		sourcesJSON string
		cached      int
		rating      sql.NullInt64
		feedback    sql.NullString
		created     string
	)

	err := sc.Scan(&t.ID, &t.ConversationID, &t.Question, &t.Answer,
		&sourcesJSON, &t.Language, &cached, &rating, &feedback, &created)
	if err != nil {
		return nil, fmt.Errorf("scanning turn: %w", err)
	}

	t.Cached = cached != 0
	t.CreatedAt = parseTime(created)
	if rating.Valid {
		r := int(rating.Int64)
		t.Rating = &r
	}
	if feedback.Valid {
		t.Feedback = feedback.String
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &t.Sources); err != nil {
		t.Sources = nil
	}
	return &t, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
