package sqlite

import (
	"github.com/ai-judge/ai-judge/internal/storage/sql/shared"
)

const TABLES_SCHEMA = `
CREATE TABLE IF NOT EXISTS judges (
    id VARCHAR(36) NOT NULL,
    name VARCHAR(255) NOT NULL,
    system_prompt TEXT NOT NULL DEFAULT '',
    provider VARCHAR(50) NOT NULL,
    model VARCHAR(255) NOT NULL,
    active BOOLEAN NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS submissions (
    id VARCHAR(255) NOT NULL,
    queue_id VARCHAR(255) NOT NULL,
    labeling_task_id VARCHAR(255) NOT NULL DEFAULT '',
    created_at_ms INTEGER NOT NULL,
    raw TEXT,
    PRIMARY KEY (id)
);

CREATE INDEX IF NOT EXISTS idx_submissions_queue ON submissions (queue_id, created_at_ms, id);

CREATE TABLE IF NOT EXISTS questions (
    submission_id VARCHAR(255) NOT NULL REFERENCES submissions (id) ON DELETE CASCADE,
    template_id VARCHAR(255) NOT NULL,
    rev INTEGER NOT NULL DEFAULT 1,
    question_type VARCHAR(50) NOT NULL DEFAULT '',
    question_text TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (submission_id, template_id, rev)
);

CREATE TABLE IF NOT EXISTS answers (
    submission_id VARCHAR(255) NOT NULL REFERENCES submissions (id) ON DELETE CASCADE,
    template_id VARCHAR(255) NOT NULL,
    choice TEXT NOT NULL DEFAULT '',
    reasoning TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (submission_id, template_id)
);

CREATE TABLE IF NOT EXISTS judge_assignments (
    queue_id VARCHAR(255) NOT NULL,
    template_id VARCHAR(255) NOT NULL,
    judge_id VARCHAR(36) NOT NULL REFERENCES judges (id) ON DELETE CASCADE,
    PRIMARY KEY (queue_id, template_id, judge_id)
);

CREATE TABLE IF NOT EXISTS runs (
    id VARCHAR(36) NOT NULL,
    queue_id VARCHAR(255) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'running',
    planned_count INTEGER NOT NULL,
    completed_count INTEGER NOT NULL DEFAULT 0,
    failed_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP,
    PRIMARY KEY (id),
    CHECK (completed_count + failed_count <= planned_count)
);

CREATE INDEX IF NOT EXISTS idx_runs_queue ON runs (queue_id, created_at);

CREATE TABLE IF NOT EXISTS evaluations (
    id VARCHAR(36) NOT NULL,
    run_id VARCHAR(36) NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    submission_id VARCHAR(255) NOT NULL,
    template_id VARCHAR(255) NOT NULL,
    judge_id VARCHAR(36) NOT NULL,
    verdict VARCHAR(20) NOT NULL,
    reasoning TEXT NOT NULL DEFAULT '',
    provider VARCHAR(50) NOT NULL DEFAULT '',
    model VARCHAR(255) NOT NULL DEFAULT '',
    latency_ms INTEGER,
    error TEXT NOT NULL DEFAULT '',
    parse_strategy VARCHAR(50) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id),
    UNIQUE (run_id, submission_id, template_id, judge_id)
);
`

type sqliteStatementsFactory struct {
}

func NewStatementsFactory() shared.SQLStatementsFactory {
	return &sqliteStatementsFactory{}
}

func (s *sqliteStatementsFactory) GetTablesSchema() string {
	return TABLES_SCHEMA
}

func (s *sqliteStatementsFactory) Rebind(query string) string {
	return query
}
