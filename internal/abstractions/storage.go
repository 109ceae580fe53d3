package abstractions

import (
	"context"
	"log/slog"
	"time"

	"github.com/ai-judge/ai-judge/pkg/api"
)

type QueryResults[T any] struct {
	Items       []T
	TotalStored int
	Errors      []string
}

type QueryFilter struct {
	Limit  int
	Offset int
	Params map[string]any
}

type Storage interface {
	WithLogger(logger *slog.Logger) Storage
	WithContext(ctx context.Context) Storage

	Ping(timeout time.Duration) error
	GetDriverName() string

	// Judge operations
	CreateJudge(judge *api.Judge) error
	GetJudge(id string) (*api.Judge, error)
	GetJudges(filter QueryFilter) (*QueryResults[api.Judge], error)
	UpdateJudge(judge *api.Judge) error
	PatchJudge(id string, patches *api.Patch) (*api.Judge, error)

	// Queue operations, submissions and their questions and answers are
	// written by the labelling side and only read while planning a run.
	CreateSubmission(submission *api.Submission) error
	CreateQuestion(question *api.Question) error
	CreateAnswer(answer *api.Answer) error
	CreateJudgeAssignment(assignment *api.JudgeAssignment) error
	GetSubmissions(queueID string) ([]api.Submission, error)
	// GetQuestions returns the latest revision of every question of the queue
	GetQuestions(queueID string) ([]api.Question, error)
	GetJudgeAssignments(queueID string) ([]api.JudgeAssignment, error)
	GetQuestion(submissionID string, templateID string) (*api.Question, error)
	GetAnswer(submissionID string, templateID string) (*api.Answer, error)

	// Run operations
	CreateRun(run *api.Run) error
	GetRun(id string) (*api.Run, error)
	GetRuns(filter QueryFilter) (*QueryResults[api.Run], error)
	// IncrementRunCounter adds one to the completed or failed counter of a
	// run. It returns false when the counters already reached the planned
	// count and nothing was updated.
	IncrementRunCounter(id string, succeeded bool) (bool, error)
	// FinalizeRun moves a running run to its terminal status and returns
	// the stored run. A terminal run is returned unchanged.
	FinalizeRun(id string, completedAt time.Time) (*api.Run, bool, error)

	// Evaluation operations
	// CreateEvaluation returns false when the evaluation of the same task
	// was already stored for the run.
	CreateEvaluation(evaluation *api.Evaluation) (bool, error)
	GetEvaluations(runID string, filter QueryFilter) (*QueryResults[api.Evaluation], error)

	// Close the storage connection
	Close() error
}

// ServiceError is implemented by errors that decide whether an enclosing
// transaction is rolled back.
type ServiceError interface {
	error
	ShouldRollback() bool
}

// This interface must be decoupled from the service HTTP layer.
// Do not pass ExecutionContext, Request or Response wrappers either.
