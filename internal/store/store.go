// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/flashread/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored UTC timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

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
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			total_words INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			duration_ms INTEGER NOT NULL,
			exposure_ms INTEGER NOT NULL,
			interval_ms INTEGER NOT NULL,
			variability_ms INTEGER NOT NULL,
			mask_enabled INTEGER NOT NULL,
			mask_ms INTEGER NOT NULL,
			text_case TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_missed_words (
			session_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			word TEXT NOT NULL,
			PRIMARY KEY (session_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS session_phase_metrics (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			word_index INTEGER NOT NULL,
			phase TEXT NOT NULL,
			target_us INTEGER NOT NULL,
			actual_us INTEGER NOT NULL,
			error_us INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_missed_words_word ON session_missed_words(word);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a completed session with its missed words and phase
// metrics.
func (s *Store) InsertSession(ctx context.Context, res model.Result, metrics []model.PhaseMetric) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	st := res.Settings
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, total_words, correct, incorrect, accuracy, duration_ms,
			exposure_ms, interval_ms, variability_ms, mask_enabled, mask_ms, text_case)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.SessionID,
		formatTime(res.StartedAt),
		formatTime(res.EndedAt),
		res.TotalWords,
		res.Correct,
		res.Incorrect,
		res.Accuracy,
		res.Duration.Milliseconds(),
		st.Exposure.Milliseconds(),
		st.IntervalBase.Milliseconds(),
		st.IntervalVariability.Milliseconds(),
		st.MaskEnabled,
		st.MaskDuration.Milliseconds(),
		string(st.TextCase),
	)
	if err != nil {
		return err
	}

	if len(res.MissedWords) > 0 {
		if err = execEach(ctx, tx,
			`INSERT INTO session_missed_words (session_id, position, word) VALUES (?, ?, ?)`,
			len(res.MissedWords),
			func(i int) []any { return []any{res.SessionID, i, res.MissedWords[i]} },
		); err != nil {
			return err
		}
	}
	if len(metrics) > 0 {
		if err = execEach(ctx, tx,
			`INSERT INTO session_phase_metrics (session_id, seq, word_index, phase, target_us, actual_us, error_us)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			len(metrics),
			func(i int) []any {
				m := metrics[i]
				return []any{res.SessionID, i, m.WordIndex, m.Phase, m.Target.Microseconds(), m.Actual.Microseconds(), m.Error.Microseconds()}
			},
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func execEach(ctx context.Context, tx *sql.Tx, query string, n int, args func(int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}

// ListSessions returns session aggregates filtered by stats config, oldest
// first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, total_words, correct, incorrect, duration_ms, exposure_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &endedAt, &agg.TotalWords, &agg.Correct, &agg.Incorrect, &agg.DurationMs, &agg.ExposureMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// TopMissedWords returns the most frequently missed words across the given
// sessions, most missed first.
func (s *Store) TopMissedWords(ctx context.Context, sessionIDs []string, n int) ([]model.MissedWordAggregate, error) {
	if len(sessionIDs) == 0 || n <= 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, 0, len(sessionIDs)+1)
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, n)
	query := fmt.Sprintf(`SELECT word, COUNT(*) AS misses
		FROM session_missed_words
		WHERE session_id IN (%s)
		GROUP BY word
		ORDER BY misses DESC, word ASC
		LIMIT ?`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.MissedWordAggregate
	for rows.Next() {
		var agg model.MissedWordAggregate
		if err := rows.Scan(&agg.Word, &agg.Misses); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// PhaseDrift aggregates timer error per phase for one session, in the order
// the phases first ran.
func (s *Store) PhaseDrift(ctx context.Context, sessionID string) ([]model.PhaseDrift, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phase, COUNT(*), AVG(error_us), MAX(ABS(error_us))
		 FROM session_phase_metrics
		 WHERE session_id = ?
		 GROUP BY phase
		 ORDER BY MIN(seq) ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.PhaseDrift
	for rows.Next() {
		var d model.PhaseDrift
		var meanUs, maxUs float64
		if err := rows.Scan(&d.Phase, &d.Count, &meanUs, &maxUs); err != nil {
			return nil, err
		}
		d.MeanErrorMs = meanUs / 1000
		d.MaxErrorMs = maxUs / 1000
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
