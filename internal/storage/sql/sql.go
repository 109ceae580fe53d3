package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/storage/sql/postgres"
	"github.com/ai-judge/ai-judge/internal/storage/sql/shared"
	"github.com/ai-judge/ai-judge/internal/storage/sql/sqlite"
	"github.com/go-viper/mapstructure/v2"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

const (
	// These are the only drivers currently supported
	SQLITE_DRIVER   = sqlite.SQLITE_DRIVER
	POSTGRES_DRIVER = postgres.POSTGRES_DRIVER

	TABLE_JUDGES            = "judges"
	TABLE_SUBMISSIONS       = "submissions"
	TABLE_QUESTIONS         = "questions"
	TABLE_ANSWERS           = "answers"
	TABLE_JUDGE_ASSIGNMENTS = "judge_assignments"
	TABLE_RUNS              = "runs"
	TABLE_EVALUATIONS       = "evaluations"
)

type setupFunction func(pool *sql.DB, config *shared.SQLDatabaseConfig) (shared.SQLStatementsFactory, error)

type SQLStorage struct {
	sqlConfig  *shared.SQLDatabaseConfig
	pool       *sql.DB
	statements shared.SQLStatementsFactory
	logger     *slog.Logger
	ctx        context.Context
}

func NewStorage(config map[string]any, otelEnabled bool, logger *slog.Logger) (abstractions.Storage, error) {
	var sqlConfig shared.SQLDatabaseConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &sqlConfig,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	var setup setupFunction
	var dbSystem attribute.KeyValue
	switch sqlConfig.Driver {
	case SQLITE_DRIVER:
		setup = sqlite.Setup
		dbSystem = semconv.DBSystemSqlite
	case POSTGRES_DRIVER:
		setup = postgres.Setup
		dbSystem = semconv.DBSystemPostgreSQL
	default:
		return nil, getUnsupportedDriverError(sqlConfig.Driver)
	}

	databaseName := sqlConfig.GetDatabaseName()
	logger = logger.With("driver", sqlConfig.GetDriverName(), "database", databaseName)

	logger.Info("Creating SQL storage")

	dsn := sqlConfig.GetDSN()
	if sqlConfig.Driver == POSTGRES_DRIVER {
		if err := postgres.EnsureDatabaseExists(context.Background(), logger, dsn); err != nil {
			return nil, err
		}
	}

	var pool *sql.DB
	if otelEnabled {
		attrs := []attribute.KeyValue{dbSystem}
		if databaseName != "" {
			attrs = append(attrs, semconv.DBNameKey.String(databaseName))
		}
		pool, err = otelsql.Open(sqlConfig.Driver, dsn, otelsql.WithAttributes(attrs...))
	} else {
		pool, err = sql.Open(sqlConfig.Driver, dsn)
	}
	if err != nil {
		return nil, err
	}

	success := false
	defer func() {
		if !success {
			pool.Close()
		}
	}()

	if sqlConfig.ConnMaxLifetime != nil {
		pool.SetConnMaxLifetime(*sqlConfig.ConnMaxLifetime)
	}
	if sqlConfig.MaxIdleConns != nil {
		pool.SetMaxIdleConns(*sqlConfig.MaxIdleConns)
	}
	if sqlConfig.MaxOpenConns != nil {
		pool.SetMaxOpenConns(*sqlConfig.MaxOpenConns)
	}

	statements, err := setup(pool, &sqlConfig)
	if err != nil {
		return nil, err
	}

	s := newSQLStorage(pool, statements, &sqlConfig, logger)

	// ping the database to verify the DSN provided by the user is valid and the server is accessible
	logger.Info("Pinging SQL storage")
	if err := s.Ping(1 * time.Second); err != nil {
		return nil, err
	}

	// ensure the schemas are created
	logger.Info("Ensuring schemas are created")
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}

	success = true
	return s, nil
}

func newSQLStorage(pool *sql.DB, statements shared.SQLStatementsFactory, sqlConfig *shared.SQLDatabaseConfig, logger *slog.Logger) *SQLStorage {
	return &SQLStorage{
		sqlConfig:  sqlConfig,
		pool:       pool,
		statements: statements,
		logger:     logger,
		ctx:        context.Background(),
	}
}

func getUnsupportedDriverError(driver string) error {
	return fmt.Errorf("unsupported driver: %s", driver)
}

// Ping the database to verify DSN provided by the user is valid and the
// server accessible. If the ping fails exit the program with an error.
func (s *SQLStorage) Ping(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.pool.PingContext(ctx)
}

func (s *SQLStorage) GetDriverName() string {
	return s.sqlConfig.GetDriverName()
}

func (s *SQLStorage) executor(txn *sql.Tx) *SQLExecutor {
	return &SQLExecutor{
		Db:         s.pool,
		Txn:        txn,
		Ctx:        s.ctx,
		Statements: s.statements,
	}
}

func (s *SQLStorage) ensureSchema() error {
	if _, err := s.executor(nil).Exec(s.statements.GetTablesSchema()); err != nil {
		return err
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return s.pool.Close()
}

func (s *SQLStorage) WithLogger(logger *slog.Logger) abstractions.Storage {
	return &SQLStorage{
		sqlConfig:  s.sqlConfig,
		pool:       s.pool,
		statements: s.statements,
		logger:     logger,
		ctx:        s.ctx,
	}
}

func (s *SQLStorage) WithContext(ctx context.Context) abstractions.Storage {
	return &SQLStorage{
		sqlConfig:  s.sqlConfig,
		pool:       s.pool,
		statements: s.statements,
		logger:     s.logger,
		ctx:        ctx,
	}
}
