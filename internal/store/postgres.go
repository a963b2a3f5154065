// Package store persists jobs, skills and failure state in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"job-skill-pipeline/internal/models"
)

// Store wraps pgxpool for Postgres persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Init creates the schema if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SkillEntry is one normalized skill ready for persistence.
type SkillEntry struct {
	Name     string
	Category string
}

// SaveJobParams collects everything persisted for one posting.
type SaveJobParams struct {
	Title    string
	Company  string
	URL      string
	Category string
	Payload  models.JobPayload
	Skills   []SkillEntry
}

// SaveJob upserts the job row (unique on url), upserts each skill (unique on
// lower(name), first-observed casing wins) and links them, all in one
// transaction. Re-submitting a URL updates the row in place and never creates
// a second one. The link set is deduplicated per job.
func (s *Store) SaveJob(ctx context.Context, p SaveJobParams) error {
	payloadJSON, err := json.Marshal(p.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	var jobID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO jobs (title, company, url, raw_skills_data, category)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO UPDATE
			SET title = EXCLUDED.title,
			    company = EXCLUDED.company,
			    raw_skills_data = EXCLUDED.raw_skills_data,
			    category = EXCLUDED.category
		RETURNING id
	`, p.Title, p.Company, p.URL, payloadJSON, p.Category).Scan(&jobID)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", p.URL, err)
	}

	seen := make(map[int64]struct{}, len(p.Skills))
	for _, skill := range p.Skills {
		var skillID int64
		// DO UPDATE instead of DO NOTHING so RETURNING always yields the id.
		err = tx.QueryRow(ctx, `
			INSERT INTO skills (name, category)
			VALUES ($1, $2)
			ON CONFLICT (lower(name)) DO UPDATE SET name = skills.name
			RETURNING id
		`, skill.Name, skill.Category).Scan(&skillID)
		if err != nil {
			return fmt.Errorf("upsert skill %q: %w", skill.Name, err)
		}

		if _, dup := seen[skillID]; dup {
			continue
		}
		seen[skillID] = struct{}{}

		if _, err := tx.Exec(ctx, `
			INSERT INTO job_skills (job_id, skill_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, jobID, skillID); err != nil {
			return fmt.Errorf("link job %d skill %d: %w", jobID, skillID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit job %s: %w", p.URL, err)
	}
	return nil
}

// ProcessedURLs returns the set of URLs already persisted as jobs.
func (s *Store) ProcessedURLs(ctx context.Context) (map[string]struct{}, error) {
	return s.urlSet(ctx, `SELECT url FROM jobs WHERE url IS NOT NULL`)
}

// FailedURLs returns the set of URLs with failure history.
func (s *Store) FailedURLs(ctx context.Context) (map[string]struct{}, error) {
	return s.urlSet(ctx, `SELECT url FROM failed_urls`)
}

func (s *Store) urlSet(ctx context.Context, query string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query url set: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		set[u] = struct{}{}
	}
	return set, rows.Err()
}

// RecordFailure upserts a failed_urls row: a first failure starts at one
// attempt, repeats increment the counter and refresh error and timestamp.
func (s *Store) RecordFailure(ctx context.Context, url, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO failed_urls (url, error)
		VALUES ($1, $2)
		ON CONFLICT (url) DO UPDATE
			SET attempts = failed_urls.attempts + 1,
			    error = EXCLUDED.error,
			    last_attempt = CURRENT_TIMESTAMP
	`, url, errMsg)
	if err != nil {
		return fmt.Errorf("record failure for %s: %w", url, err)
	}
	return nil
}

// ClearFailures removes all failure history and returns the row count.
func (s *Store) ClearFailures(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM failed_urls`)
	if err != nil {
		return 0, fmt.Errorf("clear failed urls: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountFailures returns the number of failed_urls rows.
func (s *Store) CountFailures(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM failed_urls`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed urls: %w", err)
	}
	return n, nil
}

// ListFailures returns failure rows ordered by most recent attempt.
func (s *Store) ListFailures(ctx context.Context, limit int) ([]models.FailedEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT url, error, attempts, created_at, last_attempt
		FROM failed_urls
		ORDER BY last_attempt DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed urls: %w", err)
	}
	defer rows.Close()

	var entries []models.FailedEntry
	for rows.Next() {
		var e models.FailedEntry
		if err := rows.Scan(&e.URL, &e.Error, &e.Attempts, &e.CreatedAt, &e.LastAttempt); err != nil {
			return nil, fmt.Errorf("scan failed url: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
