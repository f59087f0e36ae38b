package transcriptcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"tradescribe/internal/logging"
	"tradescribe/internal/media"
)

// Entry is one cached transcript with its storage timestamp.
type Entry struct {
	VideoID    string
	Transcript media.Transcript
	StoredAt   time.Time
}

// Store persists transcripts in SQLite, keyed solely by platform video ID.
// WAL mode keeps readers of one key from blocking on writers of another;
// the single-statement upsert makes writes per key atomic and last-writer-wins.
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
	logger     *slog.Logger
}

// Open initializes or connects to the cache database and applies the schema.
// maxEntries of 0 disables capacity eviction.
func Open(path string, maxEntries int, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:         db,
		path:       path,
		maxEntries: maxEntries,
		logger:     logging.NewComponentLogger(logger, "transcriptcache"),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached transcript for a video ID. The boolean reports a
// hit; a non-nil error means the cache itself misbehaved (callers should
// degrade to a miss rather than fail the run).
func (s *Store) Get(ctx context.Context, videoID string) (media.Transcript, bool, error) {
	var (
		url          string
		method       string
		language     string
		segmentsJSON string
		fetchedAt    string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT url, method, language, segments_json, fetched_at
         FROM transcripts WHERE video_id = ?`, videoID)
	if err := row.Scan(&url, &method, &language, &segmentsJSON, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return media.Transcript{}, false, nil
		}
		return media.Transcript{}, false, fmt.Errorf("read cache entry: %w", err)
	}

	var segments []media.Segment
	if err := json.Unmarshal([]byte(segmentsJSON), &segments); err != nil {
		return media.Transcript{}, false, fmt.Errorf("parse cached segments: %w", err)
	}
	fetched, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return media.Transcript{}, false, fmt.Errorf("parse cached timestamp: %w", err)
	}

	return media.Transcript{
		Source:    media.VideoSource{ID: videoID, URL: url},
		Method:    media.Method(method),
		Language:  language,
		Segments:  segments,
		FetchedAt: fetched,
	}, true, nil
}

// Put stores a transcript, overwriting any prior entry for the same video.
// A later successful acquisition (e.g. an upgrade from speech to captions)
// always replaces what was there before.
func (s *Store) Put(ctx context.Context, transcript media.Transcript) error {
	if err := transcript.Validate(); err != nil {
		return fmt.Errorf("refusing to cache invalid transcript: %w", err)
	}

	segmentsJSON, err := json.Marshal(transcript.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcripts (video_id, url, method, language, segments_json, fetched_at, stored_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(video_id) DO UPDATE SET
             url = excluded.url,
             method = excluded.method,
             language = excluded.language,
             segments_json = excluded.segments_json,
             fetched_at = excluded.fetched_at,
             stored_at = excluded.stored_at`,
		transcript.Source.ID,
		transcript.Source.URL,
		string(transcript.Method),
		transcript.Language,
		string(segmentsJSON),
		transcript.FetchedAt.UTC().Format(time.RFC3339Nano),
		now,
	)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	s.logger.Debug("cached transcript",
		logging.String(logging.FieldVideoID, transcript.Source.ID),
		logging.String("method", string(transcript.Method)),
		logging.Int("segments", len(transcript.Segments)))

	if s.maxEntries > 0 {
		if err := s.Prune(ctx, s.maxEntries); err != nil {
			logging.WarnWithContext(s.logger, "cache prune failed", "cache_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "cache may exceed configured capacity"))
		}
	}
	return nil
}

// Remove deletes the entry for a video ID if present.
func (s *Store) Remove(ctx context.Context, videoID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = ?`, videoID)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("video %q not found in cache", videoID)
	}
	return nil
}

// Clear removes every cached transcript.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcripts`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Count returns the number of cached transcripts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

// List returns summaries of all entries, newest stored first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, method, language, segments_json, stored_at
         FROM transcripts ORDER BY stored_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			summary      Summary
			segmentsJSON string
			storedAt     string
		)
		if err := rows.Scan(&summary.VideoID, &summary.Method, &summary.Language, &segmentsJSON, &storedAt); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		var segments []media.Segment
		if err := json.Unmarshal([]byte(segmentsJSON), &segments); err == nil {
			summary.SegmentCount = len(segments)
		}
		if ts, err := time.Parse(time.RFC3339Nano, storedAt); err == nil {
			summary.StoredAt = ts
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Summary is a lightweight view of a cache entry for listings.
type Summary struct {
	VideoID      string
	Method       string
	Language     string
	SegmentCount int
	StoredAt     time.Time
}

// Prune deletes the oldest entries until at most maxEntries remain.
func (s *Store) Prune(ctx context.Context, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM transcripts WHERE video_id IN (
            SELECT video_id FROM transcripts
            ORDER BY stored_at DESC LIMIT -1 OFFSET ?
         )`, maxEntries)
	if err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	return nil
}
