package sql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/internal/storage/sql/shared"
	"github.com/ai-judge/ai-judge/pkg/api"
)

var judgeFilterColumns = []string{"provider", "active"}

func (s *SQLStorage) CreateJudge(judge *api.Judge) error {
	now := time.Now().UTC()
	_, err := s.executor(nil).Exec(INSERT_JUDGE_STATEMENT, judge.ID, judge.Name, judge.SystemPrompt, judge.Provider, judge.Model, judge.Active, now, now)
	if err != nil {
		if _, getErr := s.getJudge(nil, judge.ID); getErr == nil {
			return serviceerrors.NewServiceError(messages.ResourceAlreadyExists, "Type", "judge", "ResourceId", judge.ID)
		}
		s.logger.Error("Failed to create judge", "error", err, "id", judge.ID)
		return databaseError("create judge", judge.ID, err)
	}
	return nil
}

func (s *SQLStorage) GetJudge(id string) (*api.Judge, error) {
	return s.getJudge(nil, id)
}

func (s *SQLStorage) getJudge(txn *sql.Tx, id string) (*api.Judge, error) {
	var judge api.Judge
	err := s.executor(txn).QueryRow(SELECT_JUDGE_STATEMENT, id).Scan(&judge.ID, &judge.Name, &judge.SystemPrompt, &judge.Provider, &judge.Model, &judge.Active)
	if err != nil {
		return nil, queryError("judge", id, err)
	}
	return &judge, nil
}

func (s *SQLStorage) GetJudges(filter abstractions.QueryFilter) (*abstractions.QueryResults[api.Judge], error) {
	params := shared.ExtractQueryParams(&filter)
	if err := shared.ValidateFilter(keys(params.Params), judgeFilterColumns); err != nil {
		return nil, err
	}

	e := s.executor(nil)
	where, whereArgs := shared.CreateWhereClause(params.Params)

	var total int
	if err := e.QueryRow(`SELECT COUNT(*) FROM judges`+where+`;`, whereArgs...).Scan(&total); err != nil {
		return nil, databaseError("count judges", "", err)
	}

	page, pageArgs := shared.CreatePageClause(params.Limit, params.Offset)
	rows, err := e.Query(`SELECT `+JUDGE_COLUMNS+` FROM judges`+where+` ORDER BY name, id`+page+`;`, append(whereArgs, pageArgs...)...)
	if err != nil {
		return nil, databaseError("list judges", "", err)
	}
	defer rows.Close()

	items := make([]api.Judge, 0)
	for rows.Next() {
		var judge api.Judge
		if err := rows.Scan(&judge.ID, &judge.Name, &judge.SystemPrompt, &judge.Provider, &judge.Model, &judge.Active); err != nil {
			return nil, databaseError("list judges", "", err)
		}
		items = append(items, judge)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("list judges", "", err)
	}

	return &abstractions.QueryResults[api.Judge]{
		Items:       items,
		TotalStored: total,
	}, nil
}

func (s *SQLStorage) UpdateJudge(judge *api.Judge) error {
	return s.updateJudge(nil, judge)
}

func (s *SQLStorage) updateJudge(txn *sql.Tx, judge *api.Judge) error {
	result, err := s.executor(txn).Exec(UPDATE_JUDGE_STATEMENT, judge.Name, judge.SystemPrompt, judge.Provider, judge.Model, judge.Active, time.Now().UTC(), judge.ID)
	if err != nil {
		return databaseError("update judge", judge.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return notFoundError("judge", judge.ID)
	}
	return nil
}

// PatchJudge applies the JSON patch to the stored judge. The id can not be
// changed by a patch.
func (s *SQLStorage) PatchJudge(id string, patches *api.Patch) (*api.Judge, error) {
	var patched *api.Judge
	err := WithTransaction(s.pool, s.ctx, s.logger, "patch judge", id, func(txn *sql.Tx) error {
		judge, err := s.getJudge(txn, id)
		if err != nil {
			return err
		}
		judgeJSON, err := json.Marshal(judge)
		if err != nil {
			return serviceerrors.NewServiceError(messages.InternalServerError, "Error", err.Error()).WithRollback()
		}
		patchedJSON, err := ApplyPatches(string(judgeJSON), patches)
		if err != nil {
			return serviceerrors.NewServiceError(messages.InvalidJSONRequest, "Error", fmt.Sprintf("invalid patch: %s", err.Error())).WithRollback()
		}
		var result api.Judge
		if err := json.Unmarshal(patchedJSON, &result); err != nil {
			return serviceerrors.NewServiceError(messages.InvalidJSONRequest, "Error", err.Error()).WithRollback()
		}
		result.ID = id
		if result.Name == "" || result.Provider == "" || result.Model == "" {
			return serviceerrors.NewServiceError(messages.RequestValidationFailed, "Error", "name, provider and model are required").WithRollback()
		}
		if err := s.updateJudge(txn, &result); err != nil {
			return err
		}
		patched = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patched, nil
}

func keys(m map[string]any) []string {
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	return result
}
