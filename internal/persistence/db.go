// Package persistence provides SQLite-backed durability: a per-tick world
// snapshot plus append-only journals for events, cash movements, and
// idempotency results.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/blockrow/internal/engine"
)

// DB wraps a SQLite connection. It implements engine.Recorder.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS world (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		seed TEXT NOT NULL,
		tick INTEGER NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		tick INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		type TEXT NOT NULL,
		agent_id TEXT NOT NULL DEFAULT '',
		zone_id TEXT NOT NULL DEFAULT '',
		entity_id TEXT NOT NULL DEFAULT '',
		payload_json TEXT NOT NULL DEFAULT '{}',
		request_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		agent_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reason TEXT NOT NULL,
		balance INTEGER NOT NULL,
		ref_event_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS idempotency (
		agent_id TEXT NOT NULL,
		request_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		result_json TEXT NOT NULL,
		PRIMARY KEY (agent_id, request_id)
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_agent ON ledger(agent_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// AppendCommand journals the effects of one command: its events, its
// ledger legs, and the idempotency row, all in one transaction.
func (db *DB) AppendCommand(events []engine.Event, ledger []engine.LedgerEntry, idem engine.IdempotencyRecord) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertEvents(tx, events); err != nil {
		return err
	}
	if err := insertLedger(tx, ledger); err != nil {
		return err
	}
	if idem.RequestID != "" {
		resultJSON, _ := json.Marshal(idem.Result)
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO idempotency (agent_id, request_id, tick, result_json)
			 VALUES (?, ?, ?, ?)`,
			idem.AgentID, idem.RequestID, idem.Tick, string(resultJSON),
		)
		if err != nil {
			return fmt.Errorf("insert idempotency %s: %w", idem.RequestID, err)
		}
	}

	return tx.Commit()
}

// AppendTick journals one processed tick: the pass events and ledger legs
// plus the full post-tick snapshot, committed atomically so a crash never
// leaves a snapshot out of step with its journal.
func (db *DB) AppendTick(w *engine.World, events []engine.Event, ledger []engine.LedgerEntry) error {
	stateJSON, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal world: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertEvents(tx, events); err != nil {
		return err
	}
	if err := insertLedger(tx, ledger); err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT OR REPLACE INTO world (id, seed, tick, state_json) VALUES (1, ?, ?, ?)`,
		w.Seed, w.Tick, string(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return tx.Commit()
}

func insertEvents(tx *sqlx.Tx, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.Preparex(`INSERT INTO events
		(id, tick, timestamp, type, agent_id, zone_id, entity_id, payload_json, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		payloadJSON, _ := json.Marshal(ev.Payload)
		_, err := stmt.Exec(
			ev.ID, ev.Tick, ev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			ev.Type, ev.AgentID, ev.ZoneID, ev.EntityID,
			string(payloadJSON), ev.RequestID,
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	return nil
}

func insertLedger(tx *sqlx.Tx, ledger []engine.LedgerEntry) error {
	for _, le := range ledger {
		_, err := tx.Exec(
			`INSERT INTO ledger (tick, agent_id, type, amount, reason, balance, ref_event_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			le.Tick, le.AgentID, le.Type, le.Amount, le.Reason, le.Balance, le.RefEventID,
		)
		if err != nil {
			return fmt.Errorf("insert ledger row: %w", err)
		}
	}
	return nil
}

// LoadWorld restores the last snapshot. Returns (nil, nil) when the
// database holds no world yet.
func (db *DB) LoadWorld() (*engine.World, error) {
	var stateJSON string
	err := db.conn.Get(&stateJSON, "SELECT state_json FROM world WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var w engine.World
	if err := json.Unmarshal([]byte(stateJSON), &w); err != nil {
		return nil, fmt.Errorf("unmarshal world: %w", err)
	}

	slog.Info("world restored", "seed", w.Seed, "tick", w.Tick, "agents", len(w.Agents))
	return &w, nil
}

// LoadIdempotency returns all journaled idempotency rows for restoring
// the resolver's replay table.
func (db *DB) LoadIdempotency() ([]engine.IdempotencyRecord, error) {
	rows, err := db.conn.Queryx("SELECT agent_id, request_id, tick, result_json FROM idempotency")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []engine.IdempotencyRecord
	for rows.Next() {
		var rec engine.IdempotencyRecord
		var resultJSON string
		if err := rows.Scan(&rec.AgentID, &rec.RequestID, &rec.Tick, &resultJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result for %s: %w", rec.RequestID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// eventRow is the flat scan target for the events table.
type eventRow struct {
	ID          string `db:"id"`
	Tick        uint64 `db:"tick"`
	Timestamp   string `db:"timestamp"`
	Type        string `db:"type"`
	AgentID     string `db:"agent_id"`
	ZoneID      string `db:"zone_id"`
	EntityID    string `db:"entity_id"`
	PayloadJSON string `db:"payload_json"`
	RequestID   string `db:"request_id"`
}

func (r eventRow) toEvent() engine.Event {
	ev := engine.Event{
		ID:        r.ID,
		Tick:      r.Tick,
		Type:      r.Type,
		AgentID:   r.AgentID,
		ZoneID:    r.ZoneID,
		EntityID:  r.EntityID,
		RequestID: r.RequestID,
	}
	json.Unmarshal([]byte(r.PayloadJSON), &ev.Payload)
	return ev
}

// AgentEvents returns the most recent events involving one agent, newest
// first.
func (db *DB) AgentEvents(agentID string, limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		`SELECT id, tick, timestamp, type, agent_id, zone_id, entity_id, payload_json, request_id
		 FROM events WHERE agent_id = ? ORDER BY tick DESC, id DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]engine.Event, len(rows))
	for i, r := range rows {
		events[i] = r.toEvent()
	}
	return events, nil
}

// AgentLedger returns the most recent cash movements for one agent,
// newest first.
func (db *DB) AgentLedger(agentID string, limit int) ([]engine.LedgerEntry, error) {
	var entries []engine.LedgerEntry
	err := db.conn.Select(&entries,
		`SELECT tick, agent_id, type, amount, reason, balance, ref_event_id
		 FROM ledger WHERE agent_id = ? ORDER BY id DESC LIMIT ?`,
		agentID, limit,
	)
	return entries, err
}

// EventsSince returns events at or after the given tick, oldest first.
func (db *DB) EventsSince(tick uint64, limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		`SELECT id, tick, timestamp, type, agent_id, zone_id, entity_id, payload_json, request_id
		 FROM events WHERE tick >= ? ORDER BY tick ASC, id ASC LIMIT ?`,
		tick, limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]engine.Event, len(rows))
	for i, r := range rows {
		events[i] = r.toEvent()
	}
	return events, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
