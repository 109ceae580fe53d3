package sql

// The code in this file must be unware of the database implementation.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
)

type TransactionFunction func(*sql.Tx) error

// WithTransaction runs fn in a transaction. The transaction is committed
// unless fn fails with an error that is not a service error or with a
// service error marked for rollback.
func WithTransaction(db *sql.DB, ctx context.Context, logger *slog.Logger, name string, resourceID string, fn TransactionFunction) error {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("Failed to begin transaction", "name", fmt.Sprintf("begin transaction %s", name), "resource_id", resourceID, "error", err.Error())
		return serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", fmt.Sprintf("begin transaction %s", name), "ResourceId", resourceID, "Error", err.Error())
	}
	serviceError := fn(txn)
	commit := true
	if serviceError != nil {
		if se, ok := serviceError.(abstractions.ServiceError); ok {
			if se.ShouldRollback() {
				commit = false
			}
		} else {
			commit = false
		}
	}
	if commit {
		if txnErr := txn.Commit(); txnErr != nil {
			logger.Error("Failed to commit transaction", "name", fmt.Sprintf("commit transaction %s", name), "resource_id", resourceID, "error", txnErr.Error())
			return serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", fmt.Sprintf("commit transaction %s", name), "ResourceId", resourceID, "Error", txnErr.Error())
		}
	} else {
		if txnErr := txn.Rollback(); txnErr != nil {
			logger.Error("Failed to rollback transaction", "name", fmt.Sprintf("rollback transaction %s", name), "resource_id", resourceID, "error", txnErr.Error())
			return serviceerrors.NewServiceError(messages.DatabaseOperationFailed, "Type", fmt.Sprintf("rollback transaction %s", name), "ResourceId", resourceID, "Error", txnErr.Error())
		}
	}
	// this is the error from the code function
	return serviceError
}
