package sql

import (
	"database/sql"
	"time"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/storage/sql/shared"
	"github.com/ai-judge/ai-judge/pkg/api"
)

var runFilterColumns = []string{"queue_id", "status"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*api.Run, error) {
	var run api.Run
	var status string
	var completedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.QueueID, &status, &run.PlannedCount, &run.CompletedCount, &run.FailedCount, &run.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	runStatus, err := api.GetRunStatus(status)
	if err != nil {
		return nil, err
	}
	run.Status = runStatus
	run.CreatedAt = run.CreatedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		run.CompletedAt = &t
	}
	return &run, nil
}

func (s *SQLStorage) CreateRun(run *api.Run) error {
	_, err := s.executor(nil).Exec(INSERT_RUN_STATEMENT, run.ID, run.QueueID, string(run.Status), run.PlannedCount, run.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to create run", "error", err, "id", run.ID)
		return databaseError("create run", run.ID, err)
	}
	return nil
}

func (s *SQLStorage) GetRun(id string) (*api.Run, error) {
	return s.getRun(nil, id)
}

func (s *SQLStorage) getRun(txn *sql.Tx, id string) (*api.Run, error) {
	run, err := scanRun(s.executor(txn).QueryRow(SELECT_RUN_STATEMENT, id))
	if err != nil {
		return nil, queryError("run", id, err)
	}
	return run, nil
}

func (s *SQLStorage) GetRuns(filter abstractions.QueryFilter) (*abstractions.QueryResults[api.Run], error) {
	params := shared.ExtractQueryParams(&filter)
	if err := shared.ValidateFilter(keys(params.Params), runFilterColumns); err != nil {
		return nil, err
	}

	e := s.executor(nil)
	where, whereArgs := shared.CreateWhereClause(params.Params)

	var total int
	if err := e.QueryRow(`SELECT COUNT(*) FROM runs`+where+`;`, whereArgs...).Scan(&total); err != nil {
		return nil, databaseError("count runs", "", err)
	}

	page, pageArgs := shared.CreatePageClause(params.Limit, params.Offset)
	rows, err := e.Query(`SELECT `+RUN_COLUMNS+` FROM runs`+where+` ORDER BY created_at DESC, id`+page+`;`, append(whereArgs, pageArgs...)...)
	if err != nil {
		return nil, databaseError("list runs", "", err)
	}
	defer rows.Close()

	items := make([]api.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, databaseError("list runs", "", err)
		}
		items = append(items, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError("list runs", "", err)
	}

	return &abstractions.QueryResults[api.Run]{
		Items:       items,
		TotalStored: total,
	}, nil
}

func (s *SQLStorage) IncrementRunCounter(id string, succeeded bool) (bool, error) {
	statement := INCREMENT_RUN_FAILED_STATEMENT
	if succeeded {
		statement = INCREMENT_RUN_COMPLETED_STATEMENT
	}
	result, err := s.executor(nil).Exec(statement, id)
	if err != nil {
		return false, databaseError("increment run counter", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, databaseError("increment run counter", id, err)
	}
	return n == 1, nil
}

func (s *SQLStorage) FinalizeRun(id string, completedAt time.Time) (*api.Run, bool, error) {
	var run *api.Run
	finalized := false
	err := WithTransaction(s.pool, s.ctx, s.logger, "finalize run", id, func(txn *sql.Tx) error {
		result, err := s.executor(txn).Exec(FINALIZE_RUN_STATEMENT, completedAt.UTC(), id)
		if err != nil {
			return databaseError("finalize run", id, err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 1 {
			finalized = true
		}
		run, err = s.getRun(txn, id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return run, finalized, nil
}
