package store

// schema creates the four tables the pipeline depends on. jobs and skills
// are upsert targets; job_skills cascades on deletion of either side;
// failed_urls increments its attempt counter on conflict.
//
// The unique index on lower(name) makes skill lookups case-insensitive while
// keeping the first-observed canonical casing in the name column.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id SERIAL PRIMARY KEY,
    title TEXT,
    company TEXT,
    url TEXT UNIQUE,
    category TEXT,
    raw_skills_data JSONB,
    created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS skills (
    id SERIAL PRIMARY KEY,
    name TEXT,
    category TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_skills_name_lower ON skills (lower(name));

CREATE TABLE IF NOT EXISTS job_skills (
    job_id INTEGER REFERENCES jobs(id) ON DELETE CASCADE,
    skill_id INTEGER REFERENCES skills(id) ON DELETE CASCADE,
    PRIMARY KEY (job_id, skill_id)
);

CREATE TABLE IF NOT EXISTS failed_urls (
    id SERIAL PRIMARY KEY,
    url TEXT UNIQUE,
    error TEXT,
    attempts INTEGER DEFAULT 1,
    created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
    last_attempt TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_jobs_skills_gin ON jobs USING GIN (raw_skills_data);
`
