// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// SQLiteDriver implements storage.Driver over a single SQLite database.
type SQLiteDriver struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteDriver opens or creates the database at dbPath and migrates
// the schema. The dbPath can be a file path or ":memory:".
func NewSQLiteDriver(dbPath string, logger *zap.Logger) (*SQLiteDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if dbPath == ":memory:" {
		// A :memory: database exists per connection; cap the pool so
		// every query sees the same one.
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	d, err := NewWithDB(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite storage driver initialized", zap.String("db_path", dbPath))
	return d, nil
}

// NewWithDB wraps an already-open database handle and migrates the
// schema. The libsql backend reuses the full driver through this.
func NewWithDB(db *sql.DB, logger *zap.Logger) (*SQLiteDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &SQLiteDriver{db: db, logger: logger}
	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return d, nil
}

// migrate creates the tables if they don't exist.
func (d *SQLiteDriver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		status TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		message_watermark INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		hook_type TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		content TEXT NOT NULL,
		tool_name TEXT NOT NULL DEFAULT '',
		tool_input TEXT NOT NULL DEFAULT '',
		tool_output TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);

	CREATE TABLE IF NOT EXISTS memory_units (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		store TEXT NOT NULL,
		classification TEXT NOT NULL,
		summary TEXT NOT NULL,
		source_event_ids TEXT NOT NULL DEFAULT '[]',
		project_scope TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		last_accessed_at TIMESTAMP NOT NULL,
		recency REAL NOT NULL DEFAULT 0,
		frequency REAL NOT NULL DEFAULT 0,
		importance REAL NOT NULL DEFAULT 0,
		utility REAL NOT NULL DEFAULT 0,
		novelty REAL NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0,
		interference REAL NOT NULL DEFAULT 0,
		strength REAL NOT NULL DEFAULT 0,
		decay_rate REAL NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		embedding BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_units_status_strength ON memory_units(status, strength);
	CREATE INDEX IF NOT EXISTS idx_units_scope ON memory_units(project_scope);
	CREATE INDEX IF NOT EXISTS idx_units_classification ON memory_units(classification);

	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		memory_id TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_memory ON feedback(memory_id);

	CREATE TABLE IF NOT EXISTS retrieval_logs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		memory_id TEXT NOT NULL,
		query TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL,
		was_used INTEGER NOT NULL DEFAULT 0,
		user_feedback TEXT NOT NULL DEFAULT '',
		relevance_score REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_retrieval_memory ON retrieval_logs(memory_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// CreateSession persists a new session.
func (d *SQLiteDriver) CreateSession(ctx context.Context, session memory.Session) error {
	metadata, err := json.Marshal(orEmptyMap(session.Metadata))
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	query := `INSERT INTO sessions (id, project, started_at, ended_at, status, metadata, message_watermark)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = d.db.ExecContext(ctx, query,
		session.ID, session.Project, session.StartedAt, nullableTime(session.EndedAt),
		string(session.Status), string(metadata), session.MessageWatermark)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// EndSession transitions a session to a terminal status.
func (d *SQLiteDriver) EndSession(ctx context.Context, id string, status memory.SessionStatus, endedAt time.Time) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?`,
		string(status), endedAt, id)
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	return requireHit(res, "session", id)
}

// GetSession retrieves a session by id.
func (d *SQLiteDriver) GetSession(ctx context.Context, id string) (memory.Session, error) {
	query := `SELECT id, project, started_at, ended_at, status, metadata, message_watermark
		FROM sessions WHERE id = ?`

	var s memory.Session
	var endedAt sql.NullTime
	var metadata string

	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Project, &s.StartedAt, &endedAt, &s.Status, &metadata, &s.MessageWatermark)
	if err == sql.ErrNoRows {
		return memory.Session{}, storage.NotFoundError{Kind: "session", ID: id}
	}
	if err != nil {
		return memory.Session{}, fmt.Errorf("scanning session: %w", err)
	}

	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(metadata), &s.Metadata); err != nil {
		return memory.Session{}, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return s, nil
}

// TouchWatermark advances the extraction watermark, never backwards.
func (d *SQLiteDriver) TouchWatermark(ctx context.Context, id string, watermark int) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE sessions SET message_watermark = ? WHERE id = ? AND message_watermark < ?`,
		watermark, id, watermark)
	if err != nil {
		return fmt.Errorf("touching watermark: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// No row moved: either the watermark was already ahead or the
	// session doesn't exist. Only the latter is an error.
	var exists int
	err = d.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return storage.NotFoundError{Kind: "session", ID: id}
	}
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	return nil
}

// PutEvents appends events inside one transaction; existing ids are
// skipped.
func (d *SQLiteDriver) PutEvents(ctx context.Context, events []memory.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT OR IGNORE INTO events
		(id, session_id, hook_type, timestamp, content, tool_name, tool_input, tool_output, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, e := range events {
		metadata, err := json.Marshal(orEmptyMap(e.Metadata))
		if err != nil {
			return fmt.Errorf("marshaling event metadata: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query,
			e.ID, e.SessionID, string(e.HookType), e.Timestamp, e.Content,
			e.ToolName, e.ToolInput, e.ToolOutput, string(metadata)); err != nil {
			return fmt.Errorf("inserting event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("stored events", zap.Int("count", len(events)))
	return nil
}

// ListEvents returns a session's events in capture order.
func (d *SQLiteDriver) ListEvents(ctx context.Context, sessionID string) ([]memory.Event, error) {
	query := `SELECT id, session_id, hook_type, timestamp, content, tool_name, tool_input, tool_output, metadata
		FROM events WHERE session_id = ? ORDER BY rowid`

	rows, err := d.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []memory.Event
	for rows.Next() {
		var e memory.Event
		var metadata string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.HookType, &e.Timestamp,
			&e.Content, &e.ToolName, &e.ToolInput, &e.ToolOutput, &metadata); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling event metadata: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// unitColumns is the canonical column order shared by every unit query.
const unitColumns = `id, session_id, store, classification, summary, source_event_ids,
	project_scope, created_at, updated_at, last_accessed_at,
	recency, frequency, importance, utility, novelty, confidence, interference,
	strength, decay_rate, tags, status, version, embedding`

// CreateUnit persists a new memory unit.
func (d *SQLiteDriver) CreateUnit(ctx context.Context, unit memory.Unit) error {
	sourceIDs, tags, err := marshalUnitJSON(unit)
	if err != nil {
		return err
	}

	query := `INSERT INTO memory_units (` + unitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	version := unit.Version
	if version == 0 {
		version = 1
	}

	_, err = d.db.ExecContext(ctx, query,
		unit.ID, unit.SessionID, string(unit.Store), string(unit.Classification),
		unit.Summary, sourceIDs, unit.ProjectScope,
		unit.CreatedAt, unit.UpdatedAt, unit.LastAccessedAt,
		unit.Features.Recency, unit.Features.Frequency, unit.Features.Importance,
		unit.Features.Utility, unit.Features.Novelty, unit.Features.Confidence,
		unit.Features.Interference,
		unit.Strength, unit.DecayRate, tags, string(unit.Status), version,
		serializeFloat32(unit.Embedding))
	if err != nil {
		return fmt.Errorf("inserting unit: %w", err)
	}

	d.logger.Debug("created unit",
		zap.String("id", unit.ID),
		zap.String("classification", string(unit.Classification)),
		zap.String("store", string(unit.Store)))
	return nil
}

// GetUnit retrieves a unit by id.
func (d *SQLiteDriver) GetUnit(ctx context.Context, id string) (memory.Unit, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+unitColumns+` FROM memory_units WHERE id = ?`, id)

	unit, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return memory.Unit{}, storage.NotFoundError{Kind: "unit", ID: id}
	}
	if err != nil {
		return memory.Unit{}, err
	}
	return unit, nil
}

// UpdateUnit overwrites a unit's mutable fields and bumps its version.
func (d *SQLiteDriver) UpdateUnit(ctx context.Context, unit memory.Unit) error {
	sourceIDs, tags, err := marshalUnitJSON(unit)
	if err != nil {
		return err
	}

	query := `UPDATE memory_units SET
		session_id = ?, store = ?, classification = ?, summary = ?, source_event_ids = ?,
		project_scope = ?, updated_at = ?, last_accessed_at = ?,
		recency = ?, frequency = ?, importance = ?, utility = ?, novelty = ?,
		confidence = ?, interference = ?,
		strength = ?, decay_rate = ?, tags = ?, status = ?, version = version + 1,
		embedding = ?
		WHERE id = ?`

	res, err := d.db.ExecContext(ctx, query,
		unit.SessionID, string(unit.Store), string(unit.Classification),
		unit.Summary, sourceIDs, unit.ProjectScope,
		unit.UpdatedAt, unit.LastAccessedAt,
		unit.Features.Recency, unit.Features.Frequency, unit.Features.Importance,
		unit.Features.Utility, unit.Features.Novelty, unit.Features.Confidence,
		unit.Features.Interference,
		unit.Strength, unit.DecayRate, tags, string(unit.Status),
		serializeFloat32(unit.Embedding), unit.ID)
	if err != nil {
		return fmt.Errorf("updating unit: %w", err)
	}
	return requireHit(res, "unit", unit.ID)
}

// DeleteUnit removes a unit permanently.
func (d *SQLiteDriver) DeleteUnit(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM memory_units WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting unit: %w", err)
	}
	return requireHit(res, "unit", id)
}

// ListUnits returns units matching the query.
func (d *SQLiteDriver) ListUnits(ctx context.Context, q storage.UnitQuery) ([]memory.Unit, error) {
	var conds []string
	var args []any

	if q.Project != "" {
		conds = append(conds, `(project_scope = '' OR project_scope = ?)`)
		args = append(args, q.Project)
	}
	if q.Store != "" {
		conds = append(conds, `store = ?`)
		args = append(args, string(q.Store))
	}
	if q.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(q.Status))
	}
	if q.Classification != "" {
		conds = append(conds, `classification = ?`)
		args = append(args, string(q.Classification))
	}
	if q.Tag != "" {
		// Tags are stored as a JSON array of strings.
		conds = append(conds, `tags LIKE ?`)
		args = append(args, `%"`+q.Tag+`"%`)
	}
	if q.Search != "" {
		conds = append(conds, `summary LIKE ? COLLATE NOCASE`)
		args = append(args, "%"+q.Search+"%")
	}

	query := `SELECT ` + unitColumns + ` FROM memory_units`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	if q.OrderByStrength {
		query += ` ORDER BY strength DESC, created_at DESC`
	} else {
		query += ` ORDER BY created_at DESC, id`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, q.Offset)
		}
	}

	return d.queryUnits(ctx, query, args...)
}

// StrongestPool returns active units ordered by strength descending.
func (d *SQLiteDriver) StrongestPool(ctx context.Context, limit int) ([]memory.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM memory_units
		WHERE status = ? ORDER BY strength DESC, created_at DESC LIMIT ?`
	return d.queryUnits(ctx, query, string(memory.StatusActive), limit)
}

// ScopePool returns active user-level units plus units scoped to the
// project, strongest first.
func (d *SQLiteDriver) ScopePool(ctx context.Context, project string, limit int) ([]memory.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM memory_units
		WHERE status = ? AND (project_scope = '' OR project_scope = ?)
		ORDER BY strength DESC, created_at DESC LIMIT ?`
	return d.queryUnits(ctx, query, string(memory.StatusActive), project, limit)
}

// BumpAccess stamps last_accessed_at on the given units.
func (d *SQLiteDriver) BumpAccess(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, at)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`UPDATE memory_units SET last_accessed_at = ? WHERE id IN (%s)`,
		strings.Join(placeholders, ","))

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bumping access: %w", err)
	}
	return nil
}

// BumpFrequency increments a unit's frequency feature.
func (d *SQLiteDriver) BumpFrequency(ctx context.Context, id string, at time.Time) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE memory_units SET frequency = frequency + 1, last_accessed_at = ? WHERE id = ?`,
		at, id)
	if err != nil {
		return fmt.Errorf("bumping frequency: %w", err)
	}
	return requireHit(res, "unit", id)
}

// SetEmbedding attaches an embedding; a missing unit is a no-op.
func (d *SQLiteDriver) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE memory_units SET embedding = ? WHERE id = ?`,
		serializeFloat32(embedding), id)
	if err != nil {
		return fmt.Errorf("setting embedding: %w", err)
	}
	return nil
}

// PutFeedback records a user judgement about a unit.
func (d *SQLiteDriver) PutFeedback(ctx context.Context, fb memory.Feedback) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO feedback (id, memory_id, type, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		fb.ID, fb.MemoryID, string(fb.Type), fb.Content, fb.Timestamp)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

// ListFeedback returns feedback for a unit, oldest first.
func (d *SQLiteDriver) ListFeedback(ctx context.Context, memoryID string) ([]memory.Feedback, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, memory_id, type, content, timestamp FROM feedback
		WHERE memory_id = ? ORDER BY timestamp, rowid`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var out []memory.Feedback
	for rows.Next() {
		var fb memory.Feedback
		if err := rows.Scan(&fb.ID, &fb.MemoryID, &fb.Type, &fb.Content, &fb.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}
	return out, nil
}

// LogRetrieval records the units surfaced by one retrieval call.
func (d *SQLiteDriver) LogRetrieval(ctx context.Context, entries []memory.RetrievalLog) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO retrieval_logs
		(id, session_id, memory_id, query, timestamp, was_used, user_feedback, relevance_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query,
			entry.ID, entry.SessionID, entry.MemoryID, entry.Query, entry.Timestamp,
			entry.WasUsed, entry.UserFeedback, entry.RelevanceScore); err != nil {
			return fmt.Errorf("inserting retrieval log %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// MarkRetrievalUsed flags a logged retrieval as used.
func (d *SQLiteDriver) MarkRetrievalUsed(ctx context.Context, id string, feedback string) error {
	query := `UPDATE retrieval_logs SET was_used = 1 WHERE id = ?`
	args := []any{id}
	if feedback != "" {
		query = `UPDATE retrieval_logs SET was_used = 1, user_feedback = ? WHERE id = ?`
		args = []any{feedback, id}
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("marking retrieval used: %w", err)
	}
	return requireHit(res, "retrieval", id)
}

// Stats summarizes the store contents.
func (d *SQLiteDriver) Stats(ctx context.Context) (storage.StoreStats, error) {
	stats := storage.StoreStats{
		ByStore:          make(map[memory.StoreClass]int),
		ByStatus:         make(map[memory.Status]int),
		ByClassification: make(map[memory.Classification]int),
	}

	var avg sql.NullFloat64
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(strength) FROM memory_units`).Scan(&stats.Units, &avg)
	if err != nil {
		return stats, fmt.Errorf("counting units: %w", err)
	}
	stats.AvgStrength = avg.Float64

	if err := d.countGroup(ctx, `SELECT store, COUNT(*) FROM memory_units GROUP BY store`,
		func(key string, n int) { stats.ByStore[memory.StoreClass(key)] = n }); err != nil {
		return stats, err
	}
	if err := d.countGroup(ctx, `SELECT status, COUNT(*) FROM memory_units GROUP BY status`,
		func(key string, n int) { stats.ByStatus[memory.Status(key)] = n }); err != nil {
		return stats, err
	}
	if err := d.countGroup(ctx, `SELECT classification, COUNT(*) FROM memory_units GROUP BY classification`,
		func(key string, n int) { stats.ByClassification[memory.Classification(key)] = n }); err != nil {
		return stats, err
	}

	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&stats.Sessions); err != nil {
		return stats, fmt.Errorf("counting sessions: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&stats.Events); err != nil {
		return stats, fmt.Errorf("counting events: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&stats.Feedback); err != nil {
		return stats, fmt.Errorf("counting feedback: %w", err)
	}

	return stats, nil
}

// Close closes the database handle.
func (d *SQLiteDriver) Close() error {
	return d.db.Close()
}

func (d *SQLiteDriver) countGroup(ctx context.Context, query string, assign func(string, int)) error {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning count: %w", err)
		}
		assign(key, n)
	}
	return rows.Err()
}

func (d *SQLiteDriver) queryUnits(ctx context.Context, query string, args ...any) ([]memory.Unit, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []memory.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating units: %w", err)
	}
	return units, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(sc scanner) (memory.Unit, error) {
	var u memory.Unit
	var sourceIDs, tags string
	var embedding []byte

	err := sc.Scan(
		&u.ID, &u.SessionID, &u.Store, &u.Classification, &u.Summary, &sourceIDs,
		&u.ProjectScope, &u.CreatedAt, &u.UpdatedAt, &u.LastAccessedAt,
		&u.Features.Recency, &u.Features.Frequency, &u.Features.Importance,
		&u.Features.Utility, &u.Features.Novelty, &u.Features.Confidence,
		&u.Features.Interference,
		&u.Strength, &u.DecayRate, &tags, &u.Status, &u.Version, &embedding)
	if err == sql.ErrNoRows {
		return memory.Unit{}, err
	}
	if err != nil {
		return memory.Unit{}, fmt.Errorf("scanning unit: %w", err)
	}

	if err := json.Unmarshal([]byte(sourceIDs), &u.SourceEventIDs); err != nil {
		return memory.Unit{}, fmt.Errorf("unmarshaling source event ids: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &u.Tags); err != nil {
		return memory.Unit{}, fmt.Errorf("unmarshaling tags: %w", err)
	}

	if len(embedding) > 0 {
		vec, err := deserializeFloat32(embedding)
		if err != nil {
			return memory.Unit{}, fmt.Errorf("decoding embedding: %w", err)
		}
		u.Embedding = vec
	}
	return u, nil
}

func marshalUnitJSON(unit memory.Unit) (sourceIDs, tags string, err error) {
	sids, err := json.Marshal(orEmptySlice(unit.SourceEventIDs))
	if err != nil {
		return "", "", fmt.Errorf("marshaling source event ids: %w", err)
	}
	tgs, err := json.Marshal(orEmptySlice(unit.Tags))
	if err != nil {
		return "", "", fmt.Errorf("marshaling tags: %w", err)
	}
	return string(sids), string(tgs), nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB
// layout shared with the sqlite-vec tables. Nil in, nil out.
func serializeFloat32(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}

	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to floats.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}

	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func requireHit(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
