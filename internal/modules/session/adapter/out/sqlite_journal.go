package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"raterc/internal/modules/session/domain"
	sessionout "raterc/internal/modules/session/port/out"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteJournal struct {
	db *sql.DB
}

var _ sessionout.Journal = (*SQLiteJournal)(nil)

// OpenSQLiteJournal opens or creates the run journal at dbPath. Callers own
// Close.
func OpenSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	journal := &SQLiteJournal{db: db}
	if err := journal.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}

func (s *SQLiteJournal) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  experiment_id TEXT NOT NULL,
  participant_id TEXT NOT NULL,
  study_id TEXT,
  session_id TEXT,
  rater_id TEXT,
  experiment_name TEXT,
  started_at TEXT,
  ends_at TEXT,
  outcome TEXT NOT NULL,
  progress INTEGER NOT NULL,
  message TEXT,
  finished_at TEXT
);
CREATE TABLE IF NOT EXISTS ratings (
  run_id TEXT NOT NULL,
  presentation_seq INTEGER NOT NULL,
  question_id INTEGER NOT NULL,
  external_id TEXT,
  answer TEXT NOT NULL,
  confidence INTEGER NOT NULL,
  presented_at TEXT NOT NULL,
  submission_id TEXT,
  recorded_at TEXT NOT NULL,
  PRIMARY KEY (run_id, presentation_seq)
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create journal tables: %w", err)
	}
	return nil
}

func (s *SQLiteJournal) RecordStart(ctx context.Context, run domain.RunRecord) error {
	if err := s.upsert(ctx, run); err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

func (s *SQLiteJournal) RecordOutcome(ctx context.Context, run domain.RunRecord) error {
	if err := s.upsert(ctx, run); err != nil {
		return fmt.Errorf("record run outcome: %w", err)
	}
	return nil
}

func (s *SQLiteJournal) upsert(ctx context.Context, run domain.RunRecord) error {
	const stmt = `
INSERT INTO runs (run_id, experiment_id, participant_id, study_id, session_id, rater_id, experiment_name, started_at, ends_at, outcome, progress, message, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  rater_id=COALESCE(NULLIF(excluded.rater_id, ''), runs.rater_id),
  experiment_name=COALESCE(NULLIF(excluded.experiment_name, ''), runs.experiment_name),
  started_at=COALESCE(NULLIF(excluded.started_at, ''), runs.started_at),
  ends_at=COALESCE(NULLIF(excluded.ends_at, ''), runs.ends_at),
  outcome=excluded.outcome,
  progress=excluded.progress,
  message=excluded.message,
  finished_at=excluded.finished_at;
`
	_, err := s.db.ExecContext(ctx, stmt,
		run.RunID,
		run.ExperimentID,
		run.ParticipantID,
		run.StudyID,
		run.SessionID,
		run.RaterID,
		run.ExperimentName,
		formatTime(run.StartedAt),
		formatTime(run.EndsAt),
		string(run.Outcome),
		run.Progress,
		run.Message,
		formatTime(run.FinishedAt),
	)
	return err
}

func (s *SQLiteJournal) RecordRating(ctx context.Context, runID string, rating domain.Rating, ack domain.Ack, recordedAt time.Time) error {
	const stmt = `
INSERT OR REPLACE INTO ratings (run_id, presentation_seq, question_id, external_id, answer, confidence, presented_at, submission_id, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		runID,
		int64(rating.PresentationSeq),
		rating.QuestionID,
		rating.ExternalID,
		rating.Answer,
		rating.Confidence,
		formatTime(rating.PresentedAt),
		ack.SubmissionID,
		formatTime(recordedAt),
	)
	if err != nil {
		return fmt.Errorf("record rating: %w", err)
	}
	return nil
}

// List returns the most recent runs first.
func (s *SQLiteJournal) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	const query = `
SELECT run_id, experiment_id, participant_id, COALESCE(study_id, ''), COALESCE(session_id, ''),
  COALESCE(rater_id, ''), COALESCE(experiment_name, ''), COALESCE(started_at, ''), COALESCE(ends_at, ''),
  outcome, progress, COALESCE(message, ''), COALESCE(finished_at, '')
FROM runs
ORDER BY rowid DESC
LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.RunRecord{}
	for rows.Next() {
		var (
			run                           domain.RunRecord
			outcome                       string
			startedAt, endsAt, finishedAt string
		)
		if err := rows.Scan(
			&run.RunID,
			&run.ExperimentID,
			&run.ParticipantID,
			&run.StudyID,
			&run.SessionID,
			&run.RaterID,
			&run.ExperimentName,
			&startedAt,
			&endsAt,
			&outcome,
			&run.Progress,
			&run.Message,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Outcome = domain.Outcome(outcome)
		run.StartedAt = parseTime(startedAt)
		run.EndsAt = parseTime(endsAt)
		run.FinishedAt = parseTime(finishedAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// CountRatings returns how many accepted ratings a run has on record.
func (s *SQLiteJournal) CountRatings(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
