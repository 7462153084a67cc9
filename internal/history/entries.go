package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one handled event.
type Entry struct {
	ID            int64     `json:"id"`
	EventID       string    `json:"event_id"`
	ReceivedAt    time.Time `json:"received_at"`
	Title         string    `json:"title,omitempty"`
	MediaType     string    `json:"media_type,omitempty"`
	TargetDir     string    `json:"target_dir,omitempty"`
	Skipped       string    `json:"skipped,omitempty"`
	StrmPath      string    `json:"strm_path,omitempty"`
	StrmError     string    `json:"strm_error,omitempty"`
	Servers       []string  `json:"servers,omitempty"`
	RefreshError  string    `json:"refresh_error,omitempty"`
	ErrorCategory string    `json:"error_category,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
}

// Outcome is a one-word summary for tables.
func (e Entry) Outcome() string {
	switch {
	case e.Skipped != "":
		return "skipped"
	case e.RefreshError != "":
		return "refresh_failed"
	case e.StrmError != "":
		return "strm_failed"
	default:
		return "ok"
	}
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record inserts entry.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	_, err := s.insert(ctx, entry)
	return err
}

func (s *Store) insert(ctx context.Context, entry Entry) (int64, error) {
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now()
	}
	servers, err := json.Marshal(entry.Servers)
	if err != nil {
		return 0, fmt.Errorf("encode servers: %w", err)
	}
	res, err := s.exec(ctx, `INSERT INTO events (
		event_id, received_at, title, media_type, target_dir, skipped,
		strm_path, strm_error, servers, refresh_error, error_category, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EventID,
		entry.ReceivedAt.UTC().Format(timeLayout),
		entry.Title,
		entry.MediaType,
		entry.TargetDir,
		entry.Skipped,
		entry.StrmPath,
		entry.StrmError,
		string(servers),
		entry.RefreshError,
		entry.ErrorCategory,
		entry.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	return res.LastInsertId()
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, event_id, received_at, title, media_type, target_dir, skipped,
		strm_path, strm_error, servers, refresh_error, error_category, duration_ms
		FROM events ORDER BY received_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry      Entry
		receivedAt string
		title      sql.NullString
		mediaType  sql.NullString
		targetDir  sql.NullString
		skipped    sql.NullString
		strmPath   sql.NullString
		strmError  sql.NullString
		servers    sql.NullString
		refreshErr sql.NullString
		category   sql.NullString
	)
	if err := rows.Scan(&entry.ID, &entry.EventID, &receivedAt, &title, &mediaType, &targetDir, &skipped,
		&strmPath, &strmError, &servers, &refreshErr, &category, &entry.DurationMS); err != nil {
		return Entry{}, fmt.Errorf("scan history row: %w", err)
	}
	ts, err := time.Parse(timeLayout, receivedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse received_at %q: %w", receivedAt, err)
	}
	entry.ReceivedAt = ts
	entry.Title = title.String
	entry.MediaType = mediaType.String
	entry.TargetDir = targetDir.String
	entry.Skipped = skipped.String
	entry.StrmPath = strmPath.String
	entry.StrmError = strmError.String
	entry.RefreshError = refreshErr.String
	entry.ErrorCategory = category.String
	if servers.Valid && servers.String != "" && servers.String != "null" {
		if err := json.Unmarshal([]byte(servers.String), &entry.Servers); err != nil {
			return Entry{}, fmt.Errorf("decode servers: %w", err)
		}
	}
	return entry, nil
}

// Prune deletes entries received before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, "DELETE FROM events WHERE received_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes the stored history.
type Stats struct {
	Total   int64 `json:"total"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// Stats counts stored entries by outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(1),
		COALESCE(SUM(CASE WHEN skipped <> '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN refresh_error <> '' OR strm_error <> '' THEN 1 ELSE 0 END), 0)
		FROM events`).Scan(&stats.Total, &stats.Skipped, &stats.Failed)
	if err != nil {
		return Stats{}, fmt.Errorf("history stats: %w", err)
	}
	return stats, nil
}
