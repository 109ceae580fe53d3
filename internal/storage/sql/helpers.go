package sql

// The code in this file must be unware of the database implementation.

import (
	"context"
	db "database/sql"
	"encoding/json"
	"errors"

	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/internal/storage/sql/shared"
	"github.com/ai-judge/ai-judge/pkg/api"
	jsonpatch "gopkg.in/evanphx/json-patch.v4"
)

// SQLExecutor runs statements in the transaction when there is one, else on
// the pool. Statements are rebound for the database before they run.
type SQLExecutor struct {
	Db         *db.DB
	Txn        *db.Tx
	Ctx        context.Context
	Statements shared.SQLStatementsFactory
}

func (s *SQLExecutor) rebind(query string) string {
	if s.Statements == nil {
		return query
	}
	return s.Statements.Rebind(query)
}

func (s *SQLExecutor) Exec(query string, args ...any) (db.Result, error) {
	if s.Txn != nil {
		return s.Txn.ExecContext(s.Ctx, s.rebind(query), args...)
	} else {
		return s.Db.ExecContext(s.Ctx, s.rebind(query), args...)
	}
}

func (s *SQLExecutor) Query(query string, args ...any) (*db.Rows, error) {
	if s.Txn != nil {
		return s.Txn.QueryContext(s.Ctx, s.rebind(query), args...)
	} else {
		return s.Db.QueryContext(s.Ctx, s.rebind(query), args...)
	}
}

func (s *SQLExecutor) QueryRow(query string, args ...any) *db.Row {
	if s.Txn != nil {
		return s.Txn.QueryRowContext(s.Ctx, s.rebind(query), args...)
	} else {
		return s.Db.QueryRowContext(s.Ctx, s.rebind(query), args...)
	}
}

func ApplyPatches(s string, patches *api.Patch) ([]byte, error) {
	if patches == nil || len(*patches) == 0 {
		return []byte(s), nil
	}
	patchesJSON, err := json.Marshal(patches)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.DecodePatch(patchesJSON)
	if err != nil {
		return nil, err
	}
	return patch.Apply([]byte(s))
}

func databaseError(operation string, resourceID string, err error) error {
	return serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", operation, "ResourceId", resourceID, "Error", err.Error())
}

func notFoundError(resourceType string, resourceID string) error {
	return serviceerrors.NewServiceError(messages.ResourceNotFound, "Type", resourceType, "ResourceId", resourceID)
}

// queryError maps sql.ErrNoRows to a not found error.
func queryError(resourceType string, resourceID string, err error) error {
	if errors.Is(err, db.ErrNoRows) {
		return notFoundError(resourceType, resourceID)
	}
	return databaseError("get "+resourceType, resourceID, err)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
