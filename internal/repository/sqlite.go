package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Shodexco/aiproductmanager/internal/adapter/artifact"
	"github.com/Shodexco/aiproductmanager/internal/domain"
)

const defaultCacheSize = 256

// SQLiteStore implements Store using SQLite for run state and an artifact.Store for files.
type SQLiteStore struct {
	db        *sql.DB
	artifacts artifact.Store
	cache     *lru.Cache[string, *domain.Run]
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string, artifacts artifact.Store, cacheSize int) (*SQLiteStore, error) {
	if artifacts == nil {
		return nil, errors.New("artifact store is required")
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *domain.Run](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create run cache: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers from concurrent pipelines, so no
	// run sees "database is locked". In-memory databases also need it to keep
	// one database across goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db, artifacts: artifacts, cache: cache}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			idea TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			completed_at DATETIME,
			user_answers TEXT,
			assumptions TEXT,
			artifacts TEXT,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status_updated ON runs(status, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			step INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			metadata TEXT,
			PRIMARY KEY (run_id, message_id),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_run_seq ON messages(run_id, seq)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Columns added after the first schema (SQLite has limited ALTER TABLE support).
	if err := s.ensureColumn("runs", "metadata", "ALTER TABLE runs ADD COLUMN metadata TEXT"); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun creates a pending run and registers its artifact slots.
func (s *SQLiteStore) CreateRun(ctx context.Context, idea string) (*domain.Run, error) {
	run := domain.NewRun(idea)
	for _, t := range domain.ArtifactTypes {
		if err := run.SetArtifact(t, s.artifacts.Location(run.ID, t)); err != nil {
			return nil, err
		}
	}
	if err := s.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run.Clone(), nil
}

// GetRun retrieves a run with its messages. It returns nil, nil when the run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	if cached, ok := s.cache.Get(runID); ok {
		return cached.Clone(), nil
	}

	run, err := s.loadRun(ctx, runID)
	if err != nil || run == nil {
		return nil, err
	}
	s.cache.Add(runID, run.Clone())
	return run, nil
}

const runColumns = `run_id, idea, status, created_at, updated_at, completed_at, user_answers, assumptions, artifacts, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	run := domain.Run{}
	var completedAt sql.NullTime
	var answers, assumptions, artifacts, metadata sql.NullString
	if err := row.Scan(&run.ID, &run.Idea, &run.Status, &run.CreatedAt, &run.UpdatedAt, &completedAt,
		&answers, &assumptions, &artifacts, &metadata); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}

	run.UserAnswers = map[string]string{}
	run.Assumptions = []string{}
	run.Artifacts = map[string]string{}
	run.Metadata = map[string]any{}
	run.Messages = []domain.Message{}
	for _, col := range []struct {
		raw  sql.NullString
		dest any
	}{
		{answers, &run.UserAnswers},
		{assumptions, &run.Assumptions},
		{artifacts, &run.Artifacts},
		{metadata, &run.Metadata},
	} {
		if !col.raw.Valid || col.raw.String == "" || col.raw.String == "null" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw.String), col.dest); err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

func (s *SQLiteStore) loadRun(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, role, content, step, created_at, metadata FROM messages WHERE run_id = ? ORDER BY seq ASC`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg domain.Message
		var metadata sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.Step, &msg.Timestamp, &metadata); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode message %s: %w", msg.ID, err)
			}
		}
		run.Messages = append(run.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return run, nil
}

// UpdateRun upserts the run row and inserts messages that are not stored yet.
// Persisting an unchanged run is a no-op for the message history.
func (s *SQLiteStore) UpdateRun(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return errors.New("run id is required")
	}
	answers, _ := json.Marshal(run.UserAnswers)
	assumptions, _ := json.Marshal(run.Assumptions)
	artifacts, _ := json.Marshal(run.Artifacts)
	metadata, err := json.Marshal(run.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode run metadata: %w", err)
	}
	var completedAt sql.NullTime
	if run.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *run.CompletedAt, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at,
			user_answers = excluded.user_answers,
			assumptions = excluded.assumptions,
			artifacts = excluded.artifacts,
			metadata = excluded.metadata`,
		run.ID, run.Idea, run.Status, run.CreatedAt, run.UpdatedAt, completedAt,
		string(answers), string(assumptions), string(artifacts), string(metadata))
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}

	for i, msg := range run.Messages {
		meta, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode message metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, run_id, seq, role, content, step, created_at, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(run_id, seq) DO NOTHING`,
			msg.ID, run.ID, i, msg.Role, msg.Content, msg.Step, msg.Timestamp, string(meta))
		if err != nil {
			return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.cache.Add(run.ID, run.Clone())
	return nil
}

// ListRuns lists runs newest first. Messages are not loaded.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListStaleRuns lists running runs whose last update is older than olderThan, oldest first.
// Messages are not loaded.
func (s *SQLiteStore) ListStaleRuns(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE status = ?
		  AND completed_at IS NULL
		  AND ((julianday('now') - julianday(updated_at)) * 86400000.0) >= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`, domain.RunStatusRunning, olderThan.Milliseconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) artifactLocation(ctx context.Context, runID, artifactType string) (string, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	if run == nil {
		return "", fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}
	location := run.ArtifactLocation(artifactType)
	if location == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownArtifact, artifactType)
	}
	return location, nil
}

// SaveArtifact writes content into the run's slot for artifactType. JSON slots holding
// valid JSON are stored as a 2-space indented re-serialization; everything else verbatim.
func (s *SQLiteStore) SaveArtifact(ctx context.Context, runID, artifactType string, content []byte) error {
	location, err := s.artifactLocation(ctx, runID, artifactType)
	if err != nil {
		return err
	}
	if domain.IsJSONArtifact(artifactType) {
		if canonical, ok := CanonicalJSON(content); ok {
			content = canonical
		}
	}
	if err := s.artifacts.Write(ctx, location, content); err != nil {
		return fmt.Errorf("failed to save %s: %w", artifactType, err)
	}
	return nil
}

// ReadArtifact returns the stored bytes of the run's artifact.
func (s *SQLiteStore) ReadArtifact(ctx context.Context, runID, artifactType string) ([]byte, error) {
	location, err := s.artifactLocation(ctx, runID, artifactType)
	if err != nil {
		return nil, err
	}
	return s.artifacts.Read(ctx, location)
}

// ListArtifacts returns the artifact types that have content, in slot order.
func (s *SQLiteStore) ListArtifacts(ctx context.Context, runID string) ([]string, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}
	stored, err := s.artifacts.List(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var out []string
	for _, t := range domain.ArtifactTypes {
		if loc := run.ArtifactLocation(t); loc != "" && slices.Contains(stored, loc) {
			out = append(out, t)
		}
	}
	return out, nil
}

// CanonicalJSON re-indents data with 2 spaces, keeping key order and number
// literals. It reports false when data is not a single valid JSON document.
func CanonicalJSON(data []byte) ([]byte, bool) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, false
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.RunID, event.Ts, event.Type, payload)
	return err
}

// GetEvents retrieves events for a run.
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, run_id, ts, type, payload FROM events WHERE run_id = ?`
	args := []interface{}{runID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.RunID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
