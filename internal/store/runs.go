package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded validation.
type Run struct {
	ID          string
	Seq         int64
	Model       string
	Fingerprint string
	InputHash   string
	Valid       bool
	Violations  int
	Errors      string
	Source      string
	RecordedAt  time.Time
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Model string
	Valid *bool
	Limit int
}

// RecordRun appends a run. ID, Seq and RecordedAt are assigned by the store
// and the completed run is returned.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	if run.Model == "" {
		return Run{}, fmt.Errorf("record run: model is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "validation_runs")
	if err != nil {
		return Run{}, err
	}

	run.ID = uuid.NewString()
	run.Seq = seq
	run.RecordedAt = s.now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO validation_runs
		(id, seq, model, fingerprint, input_hash, valid, violations, errors, source, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Model,
		run.Fingerprint,
		run.InputHash,
		boolToInt(run.Valid),
		run.Violations,
		run.Errors,
		run.Source,
		run.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, model, fingerprint, input_hash, valid, violations, errors, source, recorded_at
		FROM validation_runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns matching runs, newest first.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.Model != "" {
		where = append(where, "model = ?")
		args = append(args, f.Model)
	}
	if f.Valid != nil {
		where = append(where, "valid = ?")
		args = append(args, boolToInt(*f.Valid))
	}

	query := `
		SELECT id, seq, model, fingerprint, input_hash, valid, violations, errors, source, recorded_at
		FROM validation_runs`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY seq DESC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		valid      int
		recordedAt string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Model,
		&run.Fingerprint,
		&run.InputHash,
		&valid,
		&run.Violations,
		&run.Errors,
		&run.Source,
		&recordedAt,
	)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Valid = valid == 1
	run.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
