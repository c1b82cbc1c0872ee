// Package store handles SQLite persistence of session records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/entrylab/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			participant_id TEXT NOT NULL UNIQUE,
			entry_type TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trials (
			session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			trial_index INTEGER NOT NULL,
			phrase_index INTEGER NOT NULL,
			target_phrase TEXT NOT NULL,
			final_text TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			PRIMARY KEY (session_id, trial_index)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			session_id INTEGER NOT NULL,
			trial_index INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			character TEXT NOT NULL,
			cursor_before INTEGER NOT NULL,
			cursor_after INTEGER NOT NULL,
			PRIMARY KEY (session_id, trial_index, seq),
			FOREIGN KEY (session_id, trial_index) REFERENCES trials(session_id, trial_index) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores a finished session with its trials and events.
func (s *Store) Record(ctx context.Context, session model.Session) error {
	_, err := s.InsertSession(ctx, session)
	return err
}

// InsertSession stores a session in one transaction and returns its row id.
func (s *Store) InsertSession(ctx context.Context, session model.Session) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (participant_id, entry_type, started_at, ended_at)
		 VALUES (?, ?, ?, ?)`,
		session.ParticipantID,
		session.EntryType.String(),
		formatTime(session.StartedAt),
		formatTime(session.EndedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, fmt.Errorf("%s: %w", session.ParticipantID, ErrAlreadyExists)
		}
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	trialStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trials (session_id, trial_index, phrase_index, target_phrase, final_text, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer closeStmt(trialStmt)
	eventStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (session_id, trial_index, seq, at, kind, character, cursor_before, cursor_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer closeStmt(eventStmt)

	for i, trial := range session.Trials {
		if _, err = trialStmt.ExecContext(ctx, id, i, trial.PhraseIndex, trial.TargetPhrase, trial.FinalText,
			formatTime(trial.StartedAt), formatTime(trial.EndedAt)); err != nil {
			return 0, err
		}
		for seq, ev := range trial.Events {
			if _, err = eventStmt.ExecContext(ctx, id, i, seq, formatTime(ev.Time), ev.Kind.String(),
				ev.Character, ev.CursorBefore, ev.CursorAfter); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns summaries of stored sessions, newest first. A
// non-positive limit returns every session.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT s.participant_id, s.entry_type, s.started_at, s.ended_at,
			(SELECT COUNT(*) FROM trials t WHERE t.session_id = s.id),
			(SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
		FROM sessions s
		ORDER BY s.ended_at DESC, s.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		var entryType, startedAt, endedAt string
		if err := rows.Scan(&sum.ParticipantID, &entryType, &startedAt, &endedAt, &sum.Trials, &sum.Events); err != nil {
			return nil, err
		}
		if sum.EntryType, err = model.ParseEntryType(entryType); err != nil {
			return nil, err
		}
		if sum.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if sum.EndedAt, err = parseTime(endedAt); err != nil {
			return nil, err
		}
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadSession returns the full record of one participant's session.
func (s *Store) LoadSession(ctx context.Context, participant string) (model.Session, error) {
	var session model.Session
	var id int64
	var entryType, startedAt, endedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, participant_id, entry_type, started_at, ended_at FROM sessions WHERE participant_id = ?`,
		participant,
	).Scan(&id, &session.ParticipantID, &entryType, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, &NotFoundError{Participant: participant}
	}
	if err != nil {
		return model.Session{}, err
	}
	if session.EntryType, err = model.ParseEntryType(entryType); err != nil {
		return model.Session{}, err
	}
	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return model.Session{}, err
	}
	if session.EndedAt, err = parseTime(endedAt); err != nil {
		return model.Session{}, err
	}

	if session.Trials, err = s.loadTrials(ctx, id); err != nil {
		return model.Session{}, err
	}
	if err := s.loadEvents(ctx, id, session.Trials); err != nil {
		return model.Session{}, err
	}
	return session, nil
}

func (s *Store) loadTrials(ctx context.Context, id int64) ([]model.Trial, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phrase_index, target_phrase, final_text, started_at, ended_at
		 FROM trials WHERE session_id = ? ORDER BY trial_index`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	trials := []model.Trial{}
	for rows.Next() {
		var trial model.Trial
		var startedAt, endedAt string
		if err := rows.Scan(&trial.PhraseIndex, &trial.TargetPhrase, &trial.FinalText, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		if trial.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if trial.EndedAt, err = parseTime(endedAt); err != nil {
			return nil, err
		}
		trial.Events = []model.InputEvent{}
		trials = append(trials, trial)
	}
	return trials, rows.Err()
}

func (s *Store) loadEvents(ctx context.Context, id int64, trials []model.Trial) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trial_index, at, kind, character, cursor_before, cursor_after
		 FROM events WHERE session_id = ? ORDER BY trial_index, seq`, id)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var idx int
		var at, kind string
		var ev model.InputEvent
		if err := rows.Scan(&idx, &at, &kind, &ev.Character, &ev.CursorBefore, &ev.CursorAfter); err != nil {
			return err
		}
		if idx < 0 || idx >= len(trials) {
			return fmt.Errorf("event references unknown trial %d", idx)
		}
		if ev.Time, err = parseTime(at); err != nil {
			return err
		}
		if err := ev.Kind.UnmarshalText([]byte(kind)); err != nil {
			return err
		}
		trials[idx].Events = append(trials[idx].Events, ev)
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func closeStmt(stmt *sql.Stmt) {
	if cerr := stmt.Close(); cerr != nil {
		// Best-effort statement close.
		_ = cerr
	}
}
