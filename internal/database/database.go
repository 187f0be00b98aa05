package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vincentbai/accounts-metrics/internal/models"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// ErrInvalidPayload wraps every validation failure of InsertPayload.
var ErrInvalidPayload = errors.New("invalid payload")

type Database struct {
	db *sql.DB
}

// StoredFlush is the summary row kept for every accepted payload.
type StoredFlush struct {
	ID         string
	ReceivedAt time.Time
	Context    string
	Service    string
	Campaign   string
	Entrypoint string
	Events     int
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS flushes(
	  id           TEXT    PRIMARY KEY,
	  received_at  INTEGER NOT NULL,
	  context      TEXT    NOT NULL,
	  service      TEXT    NOT NULL,
	  campaign     TEXT    NOT NULL,
	  entrypoint   TEXT    NOT NULL,
	  lang         TEXT    NOT NULL,
	  broker       TEXT    NOT NULL,
	  referrer     TEXT,
	  duration_ms  INTEGER NOT NULL,
	  payload_json TEXT    NOT NULL CHECK (json_valid(payload_json))
	);
	CREATE TABLE IF NOT EXISTS events(
	  id        INTEGER PRIMARY KEY,
	  flush_id  TEXT    NOT NULL REFERENCES flushes(id),
	  position  INTEGER NOT NULL,
	  type      TEXT    NOT NULL,
	  offset_ms INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS timers(
	  id         INTEGER PRIMARY KEY,
	  flush_id   TEXT    NOT NULL REFERENCES flushes(id),
	  name       TEXT    NOT NULL,
	  start_ms   INTEGER NOT NULL,
	  stop_ms    INTEGER NOT NULL,
	  elapsed_ms INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS marketing(
	  id          INTEGER PRIMARY KEY,
	  flush_id    TEXT    NOT NULL REFERENCES flushes(id),
	  campaign_id TEXT    NOT NULL,
	  url         TEXT    NOT NULL,
	  clicked     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_flushes_received ON flushes(received_at);
	CREATE INDEX IF NOT EXISTS idx_events_flush     ON events(flush_id);
	CREATE INDEX IF NOT EXISTS idx_events_type      ON events(type);
	CREATE INDEX IF NOT EXISTS idx_timers_name      ON timers(name);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) ValidatePayload(payload models.Payload) error {
	if payload.Context == "" {
		return fmt.Errorf("context cannot be empty")
	}
	if payload.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	for i, event := range payload.Events {
		if event.Type == "" {
			return fmt.Errorf("event %d has an empty type", i)
		}
	}
	for name, timers := range payload.Timers {
		if name == "" {
			return fmt.Errorf("timer name cannot be empty")
		}
		for _, timer := range timers {
			if timer.Elapsed < 0 {
				return fmt.Errorf("timer %s has a negative elapsed time", name)
			}
		}
	}
	for _, impression := range payload.Marketing {
		if impression.CampaignID == "" || impression.URL == "" {
			return fmt.Errorf("marketing impression needs a campaign id and url")
		}
	}
	return nil
}

// InsertPayload validates and stores one flush in a single transaction
// and returns the id it was stored under.
func (d *Database) InsertPayload(payload models.Payload, receivedAt time.Time) (string, error) {
	if err := d.ValidatePayload(payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	transaction, err := d.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}

	flushID := uuid.NewString()
	_, err = transaction.Exec(`INSERT INTO flushes(id, received_at, context, service, campaign, entrypoint, lang, broker, referrer, duration_ms, payload_json)
		VALUES(?,?,?,?,?,?,?,?,?,?,json(?))`,
		flushID, receivedAt.UnixMilli(), payload.Context, payload.Service, payload.Campaign, payload.Entrypoint,
		payload.Lang, payload.Broker, nullable(payload.Referrer), payload.Duration, string(jsonData))
	if err != nil {
		_ = transaction.Rollback()
		return "", fmt.Errorf("failed to insert flush: %w", err)
	}

	if err := insertEvents(transaction, flushID, payload.Events); err != nil {
		_ = transaction.Rollback()
		return "", err
	}
	if err := insertTimers(transaction, flushID, payload.Timers); err != nil {
		_ = transaction.Rollback()
		return "", err
	}
	if err := insertMarketing(transaction, flushID, payload.Marketing); err != nil {
		_ = transaction.Rollback()
		return "", err
	}

	if err := transaction.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return flushID, nil
}

func insertEvents(transaction *sql.Tx, flushID string, events []models.EventRecord) error {
	statement, err := transaction.Prepare(`INSERT INTO events(flush_id, position, type, offset_ms) VALUES(?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statement.Close()

	for position, event := range events {
		if _, err := statement.Exec(flushID, position, event.Type, event.Offset); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	return nil
}

func insertTimers(transaction *sql.Tx, flushID string, timers map[string][]models.TimerRecord) error {
	statement, err := transaction.Prepare(`INSERT INTO timers(flush_id, name, start_ms, stop_ms, elapsed_ms) VALUES(?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statement.Close()

	for name, records := range timers {
		for _, timer := range records {
			if _, err := statement.Exec(flushID, name, timer.Start, timer.Stop, timer.Elapsed); err != nil {
				return fmt.Errorf("failed to insert timer: %w", err)
			}
		}
	}
	return nil
}

func insertMarketing(transaction *sql.Tx, flushID string, impressions []models.MarketingImpression) error {
	statement, err := transaction.Prepare(`INSERT INTO marketing(flush_id, campaign_id, url, clicked) VALUES(?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statement.Close()

	for _, impression := range impressions {
		if _, err := statement.Exec(flushID, impression.CampaignID, impression.URL, impression.Clicked); err != nil {
			return fmt.Errorf("failed to insert marketing impression: %w", err)
		}
	}
	return nil
}

func (d *Database) CountFlushes() (int, error) {
	var count int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM flushes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count flushes: %w", err)
	}
	return count, nil
}

// EventsForFlush returns the stored events of one flush in the order the
// client logged them.
func (d *Database) EventsForFlush(flushID string) ([]models.EventRecord, error) {
	rows, err := d.db.Query(`SELECT type, offset_ms FROM events WHERE flush_id = ? ORDER BY position`, flushID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.EventRecord
	for rows.Next() {
		var event models.EventRecord
		if err := rows.Scan(&event.Type, &event.Offset); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// RecentFlushes returns up to limit flushes, newest first.
func (d *Database) RecentFlushes(limit int) ([]StoredFlush, error) {
	rows, err := d.db.Query(`
	SELECT f.id, f.received_at, f.context, f.service, f.campaign, f.entrypoint,
	       (SELECT COUNT(*) FROM events e WHERE e.flush_id = f.id)
	FROM flushes f
	ORDER BY f.received_at DESC, f.rowid DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query flushes: %w", err)
	}
	defer rows.Close()

	var flushes []StoredFlush
	for rows.Next() {
		var flush StoredFlush
		var receivedAt int64
		if err := rows.Scan(&flush.ID, &receivedAt, &flush.Context, &flush.Service, &flush.Campaign, &flush.Entrypoint, &flush.Events); err != nil {
			return nil, fmt.Errorf("failed to scan flush: %w", err)
		}
		flush.ReceivedAt = time.UnixMilli(receivedAt).UTC()
		flushes = append(flushes, flush)
	}
	return flushes, rows.Err()
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
