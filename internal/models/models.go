package models

import "time"

// Candidate is a posting discovered in the listing source. It is ephemeral:
// only the persisted JobRecord survives a run.
type Candidate struct {
	Company  string `json:"company"`
	Role     string `json:"role"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

// ExtractionResult is the structured output of the extraction service for a
// single posting: a job title, a company, and raw skill strings grouped by
// skill category (languages, frameworks, databases, tools, concepts).
type ExtractionResult struct {
	JobTitle string              `json:"job_title"`
	Company  string              `json:"company"`
	Skills   map[string][]string `json:"skills"`
}

// JobPayload is the full document persisted alongside each job row as JSONB.
type JobPayload struct {
	JobTitle string              `json:"job_title"`
	Company  string              `json:"company"`
	URL      string              `json:"url"`
	Location string              `json:"location"`
	Skills   map[string][]string `json:"skills"`
}

// ProcessResult is the terminal outcome of one candidate's pipeline.
// Skipped marks a posting that was fetched and extracted but discarded as
// non-technical: it is neither persisted nor recorded as failed.
type ProcessResult struct {
	Candidate  Candidate
	Success    bool
	Skipped    bool
	Error      string
	Extraction *ExtractionResult
}

// RunStats aggregates one scheduler run.
type RunStats struct {
	RunID     string        `json:"run_id"`
	Success   bool          `json:"success"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Elapsed   time.Duration `json:"elapsed"`
	StartedAt time.Time     `json:"started_at"`
	Error     string        `json:"error,omitempty"`
}

// FailedEntry mirrors a failed_urls row.
type FailedEntry struct {
	URL         string    `json:"url"`
	Error       string    `json:"error"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"created_at"`
	LastAttempt time.Time `json:"last_attempt"`
}

// CompanyCount is a jobs-per-company aggregate.
type CompanyCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SkillCount is a jobs-per-skill aggregate.
type SkillCount struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	JobCount int    `json:"job_count"`
}

// CategoryCount is a jobs-per-job-category aggregate.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// JobStats is the aggregate reporting view over the store.
type JobStats struct {
	TotalJobs    int             `json:"total_jobs"`
	JobsToday    int             `json:"jobs_today"`
	TotalSkills  int             `json:"total_skills"`
	TopCompanies []CompanyCount  `json:"top_companies"`
	TopSkills    []SkillCount    `json:"top_skills"`
	Categories   []CategoryCount `json:"categories"`
}
