package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hireloop/hireloop-api/internal/models"
)

type JobRepository interface {
	// List runs the filter engine against the store and returns one page
	// plus the total match count for pagination.
	List(ctx context.Context, filter JobFilter) ([]models.Job, int, error)
	// ListByRun is the synchronizer's authoritative full fetch for one run.
	ListByRun(ctx context.Context, runID string) ([]models.Job, error)
	GetJob(ctx context.Context, jobID string) (models.Job, error)
	// UpsertJob is the producer write path, keyed by job_id. The freshness
	// guard keeps an older snapshot from overwriting a newer row.
	UpsertJob(ctx context.Context, job models.Job) error
}

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) JobRepository {
	return &jobRepository{db: db}
}

const jobColumns = `
	j.job_id, j.title, j.company_name, j.company_id, j.location, j.salary,
	j.posted_at, j.source, j.source_type, j.link, j.function, j.schedule_type,
	j.tags, j.relevance_score, j.run_id, j.created_at, j.updated_at, j.scraped_at
`

// Job ordering: newest postings first, postings without a date last, ties
// broken by insertion time so the order is stable across identical queries.
const jobOrder = `ORDER BY j.posted_at DESC NULLS LAST, j.created_at DESC`

func (r *jobRepository) List(ctx context.Context, filter JobFilter) ([]models.Job, int, error) {
	where, args := BuildJobQuery(filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM jobs j %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitArg := len(args) + 1
	offsetArg := len(args) + 2
	query := fmt.Sprintf(
		"SELECT %s FROM jobs j %s %s LIMIT $%d OFFSET $%d",
		jobColumns, where, jobOrder, limitArg, offsetArg,
	)
	pageArgs := append(append([]interface{}{}, args...), filter.PageSize, filter.Offset())

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (r *jobRepository) ListByRun(ctx context.Context, runID string) ([]models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs j WHERE j.run_id = $1 %s", jobColumns, jobOrder)
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *jobRepository) GetJob(ctx context.Context, jobID string) (models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs j WHERE j.job_id = $1", jobColumns)
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return models.Job{}, err
	}
	defer rows.Close()
	jobs, err := scanJobs(rows)
	if err != nil {
		return models.Job{}, err
	}
	if len(jobs) == 0 {
		return models.Job{}, ErrNotFound
	}
	return jobs[0], nil
}

func (r *jobRepository) UpsertJob(ctx context.Context, job models.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, title, company_name, company_id, location, salary,
			posted_at, source, source_type, link, function, schedule_type,
			tags, relevance_score, run_id, updated_at, scraped_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), $16)
		ON CONFLICT (job_id) DO UPDATE SET
			title           = EXCLUDED.title,
			company_name    = EXCLUDED.company_name,
			company_id      = COALESCE(EXCLUDED.company_id, jobs.company_id),
			location        = COALESCE(EXCLUDED.location, jobs.location),
			salary          = COALESCE(EXCLUDED.salary, jobs.salary),
			posted_at       = COALESCE(EXCLUDED.posted_at, jobs.posted_at),
			source          = COALESCE(EXCLUDED.source, jobs.source),
			source_type     = COALESCE(EXCLUDED.source_type, jobs.source_type),
			link            = COALESCE(EXCLUDED.link, jobs.link),
			function        = COALESCE(EXCLUDED.function, jobs.function),
			schedule_type   = COALESCE(EXCLUDED.schedule_type, jobs.schedule_type),
			tags            = COALESCE(EXCLUDED.tags, jobs.tags),
			relevance_score = COALESCE(EXCLUDED.relevance_score, jobs.relevance_score),
			updated_at      = NOW()
		WHERE jobs.updated_at IS NULL OR EXCLUDED.scraped_at >= jobs.scraped_at
	`
	var tags interface{}
	if len(job.Tags) > 0 {
		tags = pq.Array(job.Tags)
	}
	_, err := r.db.ExecContext(ctx, query,
		job.JobID,
		job.Title,
		job.CompanyName,
		job.CompanyID,
		job.Location,
		job.Salary,
		job.PostedAt,
		job.Source,
		job.SourceType,
		job.Link,
		job.Function,
		job.ScheduleType,
		tags,
		job.RelevanceScore,
		job.RunID,
		job.ScrapedAt,
	)
	return err
}

func scanJobs(rows *sql.Rows) ([]models.Job, error) {
	jobs := []models.Job{}
	for rows.Next() {
		var (
			j          models.Job
			companyID  sql.NullString
			location   sql.NullString
			salary     sql.NullString
			postedAt   sql.NullTime
			source     sql.NullString
			sourceType sql.NullString
			link       sql.NullString
			function   sql.NullString
			schedule   sql.NullString
			tags       pq.StringArray
			relevance  sql.NullFloat64
			runID      sql.NullString
			updatedAt  sql.NullTime
		)
		if err := rows.Scan(
			&j.JobID,
			&j.Title,
			&j.CompanyName,
			&companyID,
			&location,
			&salary,
			&postedAt,
			&source,
			&sourceType,
			&link,
			&function,
			&schedule,
			&tags,
			&relevance,
			&runID,
			&j.CreatedAt,
			&updatedAt,
			&j.ScrapedAt,
		); err != nil {
			return nil, err
		}
		if companyID.Valid {
			j.CompanyID = &companyID.String
		}
		if location.Valid {
			j.Location = &location.String
		}
		if salary.Valid {
			j.Salary = &salary.String
		}
		if postedAt.Valid {
			t := postedAt.Time
			j.PostedAt = &t
		}
		if source.Valid {
			j.Source = &source.String
		}
		if sourceType.Valid {
			j.SourceType = &sourceType.String
		}
		if link.Valid {
			j.Link = &link.String
		}
		if function.Valid {
			j.Function = &function.String
		}
		if schedule.Valid {
			j.ScheduleType = &schedule.String
		}
		if len(tags) > 0 {
			j.Tags = []string(tags)
		}
		if relevance.Valid {
			j.RelevanceScore = &relevance.Float64
		}
		if runID.Valid {
			j.RunID = &runID.String
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			j.UpdatedAt = &t
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}
