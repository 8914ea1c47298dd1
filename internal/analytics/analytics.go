// Package analytics records per-question query events and aggregates
// them into a usage overview.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docqa-io/docqa/internal/db"
)

const topQueriesLimit = 10

// Event captures one answered question.
type Event struct {
	Query    string
	Language string
	Cached   bool
	Duration time.Duration
	Results  int
}

// QueryCount is a query with its occurrence count.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// Ratings summarizes turn ratings.
type Ratings struct {
	Rated int `json:"rated"`
	Up    int `json:"up"`
	Down  int `json:"down"`
}

// Overview aggregates all recorded events.
type Overview struct {
	TotalQueries  int            `json:"total_queries"`
	CacheHits     int            `json:"cache_hits"`
	CacheHitRate  float64        `json:"cache_hit_rate"`
	AvgDurationMs float64        `json:"avg_duration_ms"`
	Languages     map[string]int `json:"languages"`
	TopQueries    []QueryCount   `json:"top_queries"`
	Ratings       Ratings        `json:"ratings"`
}

// Store persists query events in the shared database.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record persists one query event.
func (s *Store) Record(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_events (id, query, language, cached, duration_ms, results)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		ev.Query,
		ev.Language,
		boolToInt(ev.Cached),
		ev.Duration.Milliseconds(),
		ev.Results,
	)
	if err != nil {
		return fmt.Errorf("recording query event: %w", err)
	}
	return nil
}

// Overview aggregates all query events plus the rating totals from the
// conversation turns.
func (s *Store) Overview(ctx context.Context) (*Overview, error) {
	var ov Overview
	var totalDuration int64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(cached), 0),
		       COALESCE(SUM(duration_ms), 0)
		FROM query_events`,
	).Scan(&ov.TotalQueries, &ov.CacheHits, &totalDuration)
	if err != nil {
		return nil, fmt.Errorf("aggregating query events: %w", err)
	}

	if ov.TotalQueries > 0 {
		ov.CacheHitRate = float64(ov.CacheHits) / float64(ov.TotalQueries)
		ov.AvgDurationMs = float64(totalDuration) / float64(ov.TotalQueries)
	}

	ov.Languages, err = s.languageBreakdown(ctx)
	if err != nil {
		return nil, err
	}

	ov.TopQueries, err = s.topQueries(ctx)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(rating),
		       COALESCE(SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN rating = -1 THEN 1 ELSE 0 END), 0)
		FROM turns WHERE rating IS NOT NULL`,
	).Scan(&ov.Ratings.Rated, &ov.Ratings.Up, &ov.Ratings.Down)
	if err != nil {
		return nil, fmt.Errorf("aggregating ratings: %w", err)
	}

	return &ov, nil
}

func (s *Store) languageBreakdown(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT language, COUNT(*) FROM query_events GROUP BY language")
	if err != nil {
		return nil, fmt.Errorf("aggregating languages: %w", err)
	}
	defer rows.Close()

	langs := map[string]int{}
	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			return nil, fmt.Errorf("scanning language row: %w", err)
		}
		langs[lang] = count
	}
	return langs, rows.Err()
}

func (s *Store) topQueries(ctx context.Context) ([]QueryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS n FROM query_events
		GROUP BY query ORDER BY n DESC, query ASC LIMIT ?`, topQueriesLimit)
	if err != nil {
		return nil, fmt.Errorf("aggregating top queries: %w", err)
	}
	defer rows.Close()

	var top []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scanning query row: %w", err)
		}
		top = append(top, qc)
	}
	return top, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
