package sql

import (
	"database/sql"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/storage/sql/shared"
	"github.com/ai-judge/ai-judge/pkg/api"
)

var evaluationFilterColumns = []string{"judge_id", "verdict", "submission_id", "template_id"}

func (s *SQLStorage) CreateEvaluation(evaluation *api.Evaluation) (bool, error) {
	var latency any
	if evaluation.LatencyMs != nil {
		latency = *evaluation.LatencyMs
	}
	result, err := s.executor(nil).Exec(INSERT_EVALUATION_STATEMENT,
		evaluation.ID,
		evaluation.RunID,
		evaluation.SubmissionID,
		evaluation.TemplateID,
		evaluation.JudgeID,
		evaluation.Verdict.String(),
		evaluation.Reasoning,
		evaluation.Provider,
		evaluation.Model,
		latency,
		evaluation.Error,
		evaluation.ParseStrategy,
		evaluation.CreatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("Failed to create evaluation", "error", err, "id", evaluation.ID, "run_id", evaluation.RunID)
		return false, databaseError("create evaluation", evaluation.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, databaseError("create evaluation", evaluation.ID, err)
	}
	return n == 1, nil
}

func scanEvaluation(row rowScanner) (*api.Evaluation, error) {
	var evaluation api.Evaluation
	var verdict string
	var latency sql.NullInt64
	err := row.Scan(
		&evaluation.ID,
		&evaluation.RunID,
		&evaluation.SubmissionID,
		&evaluation.TemplateID,
		&evaluation.JudgeID,
		&verdict,
		&evaluation.Reasoning,
		&evaluation.Provider,
		&evaluation.Model,
		&latency,
		&evaluation.Error,
		&evaluation.ParseStrategy,
		&evaluation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v, err := api.GetVerdict(verdict)
	if err != nil {
		return nil, err
	}
	evaluation.Verdict = v
	evaluation.CreatedAt = evaluation.CreatedAt.UTC()
	if latency.Valid {
		evaluation.LatencyMs = &latency.Int64
	}
	return &evaluation, nil
}

func (s *SQLStorage) GetEvaluations(runID string, filter abstractions.QueryFilter) (*abstractions.QueryResults[api.Evaluation], error) {
	params := shared.ExtractQueryParams(&filter)
	if err := shared.ValidateFilter(keys(params.Params), evaluationFilterColumns); err != nil {
		return nil, err
	}

	e := s.executor(nil)
	where, whereArgs := shared.CreateWhereClause(params.Params, "run_id = ?")
	whereArgs = append([]any{runID}, whereArgs...)

	var total int
	if err := e.QueryRow(`SELECT COUNT(*) FROM evaluations`+where+`;`, whereArgs...).Scan(&total); err != nil {
		return nil, databaseError("count evaluations", runID, err)
	}

	page, pageArgs := shared.CreatePageClause(params.Limit, params.Offset)
	rows, err := e.Query(`SELECT `+EVALUATION_COLUMNS+` FROM evaluations`+where+` ORDER BY submission_id, template_id, judge_id`+page+`;`, append(whereArgs, pageArgs...)...)
	if err != nil {
		return nil, databaseError("list evaluations", runID, err)
	}
	defer rows.Close()

	items := make([]api.Evaluation, 0)
	for rows.Next() {
		evaluation, err := scanEvaluation(rows)
		if err != nil {
			return nil, databaseError("list evaluations", runID, err)
		}
		items = append(items, *evaluation)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("list evaluations", runID, err)
	}

	return &abstractions.QueryResults[api.Evaluation]{
		Items:       items,
		TotalStored: total,
	}, nil
}
