package store

import (
	"context"
	"time"

	"github.com/HartBrook/tokun/internal/errors"
	"github.com/google/uuid"
)

// Source records where an optimized text came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceLocal    Source = "local"
)

// Record is one saved optimization.
type Record struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model,omitempty"`
	Mode            string    `json:"mode,omitempty"`
	Source          Source    `json:"source"`
	OriginalText    string    `json:"originalText"`
	OptimizedText   string    `json:"optimizedText"`
	OriginalTokens  int       `json:"originalTokens"`
	OptimizedTokens int       `json:"optimizedTokens"`
}

// Saved returns the estimated tokens saved by this optimization.
func (r Record) Saved() int {
	return r.OriginalTokens - r.OptimizedTokens
}

// Totals aggregates token savings across all records.
type Totals struct {
	Count           int `json:"count"`
	OriginalTokens  int `json:"originalTokens"`
	OptimizedTokens int `json:"optimizedTokens"`
}

// Saved returns total tokens saved.
func (t Totals) Saved() int {
	return t.OriginalTokens - t.OptimizedTokens
}

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AddHistory saves r, assigning an ID and timestamp when unset.
func (s *SQLite) AddHistory(ctx context.Context, r Record) (Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, created_at, provider, model, mode, source,
			original_text, optimized_text, original_tokens, optimized_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(timeLayout), r.Provider, r.Model, r.Mode, string(r.Source),
		r.OriginalText, r.OptimizedText, r.OriginalTokens, r.OptimizedTokens)
	if err != nil {
		return Record{}, errors.StoreFailed("add history", err)
	}
	return r, nil
}

// ListHistory returns up to limit records, newest first. limit <= 0 returns all.
func (s *SQLite) ListHistory(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, provider, model, mode, source,
			original_text, optimized_text, original_tokens, optimized_tokens
		 FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.StoreFailed("list history", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			createdAt string
			source    string
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.Provider, &r.Model, &r.Mode, &source,
			&r.OriginalText, &r.OptimizedText, &r.OriginalTokens, &r.OptimizedTokens); err != nil {
			return nil, errors.StoreFailed("list history", err)
		}
		r.Source = Source(source)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreFailed("list history", err)
	}
	return records, nil
}

// HistoryTotals sums token counts over every record.
func (s *SQLite) HistoryTotals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(original_tokens), 0), COALESCE(SUM(optimized_tokens), 0) FROM history`,
	).Scan(&t.Count, &t.OriginalTokens, &t.OptimizedTokens)
	if err != nil {
		return Totals{}, errors.StoreFailed("history totals", err)
	}
	return t, nil
}

// ClearHistory deletes every record.
func (s *SQLite) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return errors.StoreFailed("clear history", err)
	}
	return nil
}
