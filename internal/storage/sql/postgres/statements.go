package postgres

import (
	"strconv"
	"strings"

	"github.com/ai-judge/ai-judge/internal/storage/sql/shared"
)

const TABLES_SCHEMA = `
CREATE TABLE IF NOT EXISTS judges (
    id VARCHAR(36) NOT NULL,
    name VARCHAR(255) NOT NULL,
    system_prompt TEXT NOT NULL DEFAULT '',
    provider VARCHAR(50) NOT NULL,
    model VARCHAR(255) NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS submissions (
    id VARCHAR(255) NOT NULL,
    queue_id VARCHAR(255) NOT NULL,
    labeling_task_id VARCHAR(255) NOT NULL DEFAULT '',
    created_at_ms BIGINT NOT NULL,
    raw JSONB,
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
    created_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
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
    latency_ms BIGINT,
    error TEXT NOT NULL DEFAULT '',
    parse_strategy VARCHAR(50) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (id),
    UNIQUE (run_id, submission_id, template_id, judge_id)
);
`

type postgresStatementsFactory struct {
}

func NewStatementsFactory() shared.SQLStatementsFactory {
	return &postgresStatementsFactory{}
}

func (s *postgresStatementsFactory) GetTablesSchema() string {
	return TABLES_SCHEMA
}

// Rebind replaces every ? placeholder with its $n form. The statements never
// contain a literal question mark.
func (s *postgresStatementsFactory) Rebind(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
