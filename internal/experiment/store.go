// Package experiment books experiment configurations and stores their
// results in a shared sqlite database. Booking is optimistic: the
// unique key over the normalized configuration decides who runs an
// experiment, and an expired booking can be stolen by another worker.
package experiment

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
	ticket       TEXT PRIMARY KEY,
	config_key   TEXT NOT NULL UNIQUE,
	config_json  TEXT NOT NULL,
	status       TEXT NOT NULL,
	booked_at    TEXT NOT NULL,
	results_json TEXT
);

CREATE TABLE IF NOT EXISTS run_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ticket      TEXT NOT NULL,
	event       TEXT NOT NULL,
	detail      TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (ticket) REFERENCES experiments(ticket)
);
`

// Experiment lifecycle states.
const (
	StatusBooked = "booked"
	StatusSolved = "solved"
)

// #endregion schema

// #region types

// Config is one experiment configuration.
type Config map[string]any

// Record is one stored experiment row.
type Record struct {
	Ticket    string
	ConfigKey string
	Config    Config
	Status    string
	BookedAt  time.Time
	Results   map[string]any
}

// #endregion types

// #region store

// Store manages experiment bookings and results in sqlite.
type Store struct {
	db         *sql.DB
	bookingFor time.Duration
}

// NewStore opens the experiments database and runs migrations.
// bookingFor is how long a booking protects an experiment before
// another worker may steal it.
func NewStore(path string, bookingFor time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open experiments db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, bookingFor: bookingFor}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region config-key

// ConfigKey derives the unique key of a configuration: canonical JSON
// (object keys sorted) hashed with md5. Identical configurations map
// to the same key regardless of field order.
func ConfigKey(config Config) (string, error) {
	serialized, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("serialize config: %w", err)
	}
	sum := md5.Sum(serialized)
	return hex.EncodeToString(sum[:]), nil
}

// #endregion config-key

// #region booking

// BookIfAvailable books the configuration and returns the booking
// ticket. It returns ok=false when the experiment is already solved
// or booked recently by someone else; a booking older than the
// booking duration is stolen, keeping its original ticket so a late
// result store from the previous holder and ours race on one row.
func (s *Store) BookIfAvailable(config Config) (ticket string, ok bool, err error) {
	key, err := ConfigKey(config)
	if err != nil {
		return "", false, err
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return "", false, fmt.Errorf("serialize config: %w", err)
	}
	now := time.Now().UTC()
	ticket = uuid.New().String()

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO experiments (ticket, config_key, config_json, status, booked_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ticket, key, string(configJSON), StatusBooked, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", false, fmt.Errorf("book %s: %w", key, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("book %s: %w", key, err)
	}
	if inserted == 1 {
		return ticket, true, nil
	}

	// Already registered. Steal the booking if it expired unsolved.
	cutoff := now.Add(-s.bookingFor)
	res, err = s.db.Exec(
		`UPDATE experiments SET booked_at = ?
		 WHERE config_key = ? AND status = ? AND booked_at <= ?`,
		now.Format(time.RFC3339Nano), key, StatusBooked, cutoff.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", false, fmt.Errorf("steal booking %s: %w", key, err)
	}
	stolen, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("steal booking %s: %w", key, err)
	}
	if stolen == 0 {
		return "", false, nil
	}
	err = s.db.QueryRow(
		`SELECT ticket FROM experiments WHERE config_key = ?`, key,
	).Scan(&ticket)
	if err != nil {
		return "", false, fmt.Errorf("steal booking %s: %w", key, err)
	}
	return ticket, true, nil
}

// StoreResults marks the booked experiment solved and attaches its
// results. Storing requires a ticket from a successful booking;
// stored reports whether the experiment was still waiting for
// results.
func (s *Store) StoreResults(ticket string, results map[string]any) (stored bool, err error) {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return false, fmt.Errorf("serialize results: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE experiments SET status = ?, results_json = ?
		 WHERE ticket = ? AND status = ?`,
		StatusSolved, string(resultsJSON), ticket, StatusBooked,
	)
	if err != nil {
		return false, fmt.Errorf("store results %s: %w", ticket, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store results %s: %w", ticket, err)
	}
	return n == 1, nil
}

// #endregion booking

// #region queries

// Results returns every solved experiment.
func (s *Store) Results() ([]Record, error) {
	return s.query(`SELECT ticket, config_key, config_json, status, booked_at, results_json
		FROM experiments WHERE status = ? ORDER BY booked_at`, StatusSolved)
}

// List returns the most recently booked experiments, any status.
func (s *Store) List(limit int) ([]Record, error) {
	return s.query(`SELECT ticket, config_key, config_json, status, booked_at, results_json
		FROM experiments ORDER BY booked_at DESC LIMIT ?`, limit)
}

func (s *Store) query(q string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var configJSON, bookedStr string
		var resultsJSON sql.NullString
		if err := rows.Scan(&rec.Ticket, &rec.ConfigKey, &configJSON, &rec.Status, &bookedStr, &resultsJSON); err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		if err := json.Unmarshal([]byte(configJSON), &rec.Config); err != nil {
			return nil, fmt.Errorf("parse config for %s: %w", rec.Ticket, err)
		}
		rec.BookedAt, _ = time.Parse(time.RFC3339Nano, bookedStr)
		if resultsJSON.Valid {
			if err := json.Unmarshal([]byte(resultsJSON.String), &rec.Results); err != nil {
				return nil, fmt.Errorf("parse results for %s: %w", rec.Ticket, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion queries

// #region run-log

// LogEvent appends one run-log entry for a ticket.
func (s *Store) LogEvent(ticket, event, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO run_log (ticket, event, detail, created_at) VALUES (?, ?, ?, ?)`,
		ticket, event, nullIfEmpty(detail), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// Events returns the run-log entries for a ticket, oldest first.
func (s *Store) Events(ticket string) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT event, detail, created_at FROM run_log WHERE ticket = ? ORDER BY id`, ticket,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var detail sql.NullString
		var createdStr string
		if err := rows.Scan(&e.Event, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Event is one run-log entry.
type Event struct {
	Event     string
	Detail    string
	CreatedAt time.Time
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion run-log
