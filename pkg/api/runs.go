package api

import (
	"fmt"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

func GetRunStatus(value string) (RunStatus, error) {
	switch RunStatus(value) {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return RunStatus(value), nil
	default:
		return "", fmt.Errorf("invalid run status: %q", value)
	}
}

// Run is one batch execution of all evaluation tasks of a queue.
type Run struct {
	ID             string     `json:"id"`
	QueueID        string     `json:"queueId"`
	Status         RunStatus  `json:"status"`
	PlannedCount   int        `json:"plannedCount"`
	CompletedCount int        `json:"completedCount"`
	FailedCount    int        `json:"failedCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Settled returns the number of tasks that have been counted so far.
func (r *Run) Settled() int {
	return r.CompletedCount + r.FailedCount
}

// RunEvaluationsRequest represents the body of POST /run-evaluations
type RunEvaluationsRequest struct {
	QueueID     string `json:"queueId" validate:"required"`
	Concurrency *int   `json:"concurrency,omitempty" validate:"omitempty,min=1,max=10"`
}

type VerdictBreakdown struct {
	Pass         int `json:"pass"`
	Fail         int `json:"fail"`
	Inconclusive int `json:"inconclusive"`
}

func (b *VerdictBreakdown) Add(v Verdict) {
	switch v {
	case VerdictPass:
		b.Pass++
	case VerdictFail:
		b.Fail++
	default:
		b.Inconclusive++
	}
}

type JudgePerformance struct {
	JudgeID        string  `json:"judgeId"`
	JudgeName      string  `json:"judgeName"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	AverageLatency float64 `json:"averageLatency"`
}

// RunSummary is the aggregate returned at the end of a run. Latencies and
// durations are in milliseconds, the success rate is a percentage.
type RunSummary struct {
	TotalEvaluations      int                `json:"totalEvaluations"`
	SuccessfulEvaluations int                `json:"successfulEvaluations"`
	FailedEvaluations     int                `json:"failedEvaluations"`
	SuccessRate           float64            `json:"successRate"`
	AverageLatency        float64            `json:"averageLatency"`
	TotalDuration         int64              `json:"totalDuration"`
	VerdictBreakdown      VerdictBreakdown   `json:"verdictBreakdown"`
	JudgePerformance      []JudgePerformance `json:"judgePerformance"`
	Errors                []string           `json:"errors"`
}

// RunEvaluationsResponse represents the response of POST /run-evaluations
type RunEvaluationsResponse struct {
	Success bool        `json:"success"`
	Run     *Run        `json:"run"`
	Summary *RunSummary `json:"summary"`
}

// RunList represents list of runs with pagination
type RunList struct {
	Page
	Items []Run `json:"items"`
}
