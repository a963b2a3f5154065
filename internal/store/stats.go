package store

import (
	"context"
	"fmt"

	"job-skill-pipeline/internal/models"
)

const (
	topCompaniesLimit = 10
	topSkillsLimit    = 15
)

// Stats aggregates the reporting view: totals, today's intake, top companies
// and top skills by job frequency, plus jobs per category.
func (s *Store) Stats(ctx context.Context) (models.JobStats, error) {
	var stats models.JobStats

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&stats.TotalJobs); err != nil {
		return stats, fmt.Errorf("count jobs: %w", err)
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE created_at >= CURRENT_DATE`,
	).Scan(&stats.JobsToday); err != nil {
		return stats, fmt.Errorf("count jobs today: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM skills`).Scan(&stats.TotalSkills); err != nil {
		return stats, fmt.Errorf("count skills: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT company, COUNT(*) AS count
		FROM jobs
		WHERE company IS NOT NULL
		GROUP BY company
		ORDER BY count DESC
		LIMIT $1
	`, topCompaniesLimit)
	if err != nil {
		return stats, fmt.Errorf("top companies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c models.CompanyCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return stats, fmt.Errorf("scan company: %w", err)
		}
		stats.TopCompanies = append(stats.TopCompanies, c)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	skillRows, err := s.pool.Query(ctx, `
		SELECT s.name, s.category, COUNT(js.job_id) AS job_count
		FROM skills s
		JOIN job_skills js ON s.id = js.skill_id
		GROUP BY s.id, s.name, s.category
		ORDER BY job_count DESC
		LIMIT $1
	`, topSkillsLimit)
	if err != nil {
		return stats, fmt.Errorf("top skills: %w", err)
	}
	defer skillRows.Close()
	for skillRows.Next() {
		var sc models.SkillCount
		if err := skillRows.Scan(&sc.Name, &sc.Category, &sc.JobCount); err != nil {
			return stats, fmt.Errorf("scan skill: %w", err)
		}
		stats.TopSkills = append(stats.TopSkills, sc)
	}
	if err := skillRows.Err(); err != nil {
		return stats, err
	}

	catRows, err := s.pool.Query(ctx, `
		SELECT category, COUNT(*) AS count
		FROM jobs
		WHERE category IS NOT NULL
		GROUP BY category
		ORDER BY count DESC
	`)
	if err != nil {
		return stats, fmt.Errorf("job categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var cc models.CategoryCount
		if err := catRows.Scan(&cc.Category, &cc.Count); err != nil {
			return stats, fmt.Errorf("scan category: %w", err)
		}
		stats.Categories = append(stats.Categories, cc)
	}
	return stats, catRows.Err()
}
