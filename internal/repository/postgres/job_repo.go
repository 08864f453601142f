package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/repository"
)

// Ensure pgJobRepo implements repository.JobRepository.
var _ repository.JobRepository = (*pgJobRepo)(nil)

const jobColumns = `id, kind, user_id, status, message, result_ref, finetune, faq, created_at, updated_at`

type pgJobRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresJobRepository creates a new PostgreSQL-backed job repository.
func NewPostgresJobRepository(pool *pgxpool.Pool) repository.JobRepository {
	return &pgJobRepo{pool: pool}
}

func (r *pgJobRepo) Create(ctx context.Context, job *domain.Job, content string) error {
	finetune, faq, err := encodeSpecs(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (id, kind, user_id, status, message, finetune, faq, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, query,
		job.ID, job.Kind, job.UserID, job.Status, job.Message,
		finetune, faq, content, now, now,
	)
	if err != nil {
		return fmt.Errorf("postgres: create job: %w", err)
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (r *pgJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get job by id: %w", err)
	}
	return job, nil
}

func (r *pgJobRepo) List(ctx context.Context, userID string, status domain.Status) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("postgres: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *pgJobRepo) Transition(ctx context.Context, id string, status domain.Status, message string) (*domain.Job, error) {
	query := `
		UPDATE jobs SET status = $1, message = $2, updated_at = $3
		WHERE id = $4 AND status = ANY($5)
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query, status, message, time.Now().UTC(), id, sourcesOf(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, status)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: transition job: %w", err)
	}
	return job, nil
}

func (r *pgJobRepo) Complete(ctx context.Context, id string, message string, artifact *domain.Artifact) (*domain.Job, error) {
	entries, err := json.Marshal(artifact.Entries)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode entries: %w", err)
	}

	query := `
		UPDATE jobs SET status = $1, message = $2, result_ref = $3, entries = $4, updated_at = $5
		WHERE id = $6 AND status = ANY($7)
		RETURNING ` + jobColumns

	job, err := scanJob(r.pool.QueryRow(ctx, query,
		domain.StatusCompleted, message, artifact.Ref, entries, time.Now().UTC(), id,
		sourcesOf(domain.StatusCompleted),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionError(ctx, id, domain.StatusCompleted)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: complete job: %w", err)
	}
	return job, nil
}

func (r *pgJobRepo) GetResult(ctx context.Context, id string) (*domain.Artifact, error) {
	query := `SELECT kind, status, result_ref, entries FROM jobs WHERE id = $1`

	var (
		art     = &domain.Artifact{JobID: id}
		status  domain.Status
		entries []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&art.Kind, &status, &art.Ref, &entries)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get result: %w", err)
	}
	if status != domain.StatusCompleted {
		return nil, domain.ErrResultNotReady
	}
	if len(entries) > 0 {
		if err := json.Unmarshal(entries, &art.Entries); err != nil {
			return nil, fmt.Errorf("postgres: decode entries: %w", err)
		}
	}
	return art, nil
}

func (r *pgJobRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// transitionError explains why a guarded UPDATE matched no row.
func (r *pgJobRepo) transitionError(ctx context.Context, id string, to domain.Status) error {
	var current domain.Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: load status: %w", err)
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, current, to)
}

// sourcesOf lists the statuses that may move to target.
func sourcesOf(target domain.Status) []string {
	var out []string
	for _, s := range domain.AllStatuses {
		if s.CanTransitionTo(target) {
			out = append(out, string(s))
		}
	}
	return out
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job           domain.Job
		finetune, faq []byte
	)
	err := row.Scan(
		&job.ID, &job.Kind, &job.UserID, &job.Status, &job.Message, &job.ResultRef,
		&finetune, &faq, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(finetune) > 0 {
		if err := json.Unmarshal(finetune, &job.Finetune); err != nil {
			return nil, fmt.Errorf("decode finetune spec: %w", err)
		}
	}
	if len(faq) > 0 {
		if err := json.Unmarshal(faq, &job.FAQ); err != nil {
			return nil, fmt.Errorf("decode faq spec: %w", err)
		}
	}
	return &job, nil
}

func encodeSpecs(job *domain.Job) (finetune, faq []byte, err error) {
	if job.Finetune != nil {
		if finetune, err = json.Marshal(job.Finetune); err != nil {
			return nil, nil, fmt.Errorf("postgres: encode finetune spec: %w", err)
		}
	}
	if job.FAQ != nil {
		if faq, err = json.Marshal(job.FAQ); err != nil {
			return nil, nil, fmt.Errorf("postgres: encode faq spec: %w", err)
		}
	}
	return finetune, faq, nil
}
