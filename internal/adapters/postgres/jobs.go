package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"secapi/internal/domain"
	"secapi/internal/ports"
)

const jobColumns = `id, user_id, tier, scan_type, target, options, fingerprint,
	status, created_at, started_at, completed_at, results, error_message`

func (db *DB) Create(ctx context.Context, job *domain.Job) error {
	opts, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO scan_jobs (id, user_id, tier, scan_type, target, options, fingerprint, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, job.ID, job.UserID, job.Tier, job.ScanType, job.Target, opts, job.Fingerprint, job.State, job.CreatedAt)
	return err
}

// ClaimNext locks the oldest pending job and flips it to running inside one
// transaction. SKIP LOCKED makes concurrent claims pick distinct rows.
func (db *DB) ClaimNext(ctx context.Context) (job *domain.Job, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`)
	job, err = scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	if _, err = tx.Exec(ctx, `
		UPDATE scan_jobs SET status='running', started_at=$2 WHERE id=$1
	`, job.ID, now); err != nil {
		return nil, false, err
	}
	job.State = domain.JobRunning
	job.StartedAt = &now
	return job, true, nil
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string, raw []byte, result *domain.ScanResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs
		SET status='completed', completed_at=now(), raw_output=$2, results=$3
		WHERE id=$1 AND status='running'
	`, jobID, raw, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.transitionConflict(ctx, jobID, "complete")
	}
	return nil
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs
		SET status='failed', completed_at=now(), error_message=$2
		WHERE id=$1 AND status='running'
	`, jobID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.transitionConflict(ctx, jobID, "fail")
	}
	return nil
}

func (db *DB) Get(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs WHERE id=$1 AND user_id=$2
	`, jobID, userID)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

func (db *DB) List(ctx context.Context, userID string, f ports.JobFilter) (ports.JobPage, error) {
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	out := ports.JobPage{Page: page, PageSize: size}

	where := `user_id=$1 AND ($2='' OR status=$2) AND ($3='' OR scan_type=$3)`
	args := []any{userID, string(f.State), string(f.ScanType)}

	if err := db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM scan_jobs WHERE `+where, args...,
	).Scan(&out.Total); err != nil {
		return out, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE `+where+`
		ORDER BY created_at DESC
		OFFSET $4 LIMIT $5
	`, append(args, (page-1)*size, size)...)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return out, err
		}
		out.Jobs = append(out.Jobs, *job)
	}
	return out, rows.Err()
}

func (db *DB) Delete(ctx context.Context, jobID, userID string) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var state domain.JobState
	err = tx.QueryRow(ctx, `
		SELECT status FROM scan_jobs WHERE id=$1 AND user_id=$2 FOR UPDATE
	`, jobID, userID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	switch {
	case state == domain.JobPending:
		_, err = tx.Exec(ctx, `
			UPDATE scan_jobs SET status='canceled', completed_at=now() WHERE id=$1
		`, jobID)
	case state.Terminal():
		_, err = tx.Exec(ctx, `DELETE FROM scan_jobs WHERE id=$1`, jobID)
	default:
		return &domain.InvalidTransitionError{From: state, Event: "delete"}
	}
	return err
}

func (db *DB) CountPending(ctx context.Context) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM scan_jobs WHERE status='pending'`).Scan(&n)
	return n, err
}

// transitionConflict distinguishes a missing job from a terminal-state write
// after a guarded UPDATE matched nothing.
func (db *DB) transitionConflict(ctx context.Context, jobID, event string) error {
	var state domain.JobState
	err := db.Pool.QueryRow(ctx, `SELECT status FROM scan_jobs WHERE id=$1`, jobID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return &domain.InvalidTransitionError{From: state, Event: event}
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job     domain.Job
		opts    []byte
		results []byte
		errMsg  *string
	)
	err := row.Scan(&job.ID, &job.UserID, &job.Tier, &job.ScanType, &job.Target, &opts,
		&job.Fingerprint, &job.State, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
		&results, &errMsg)
	if err != nil {
		return nil, err
	}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &job.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	if len(results) > 0 {
		var res domain.ScanResult
		if err := json.Unmarshal(results, &res); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
		job.Result = &res
	}
	if errMsg != nil {
		job.Error = *errMsg
	}
	return &job, nil
}
