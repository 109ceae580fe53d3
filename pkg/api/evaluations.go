package api

import (
	"fmt"
	"strings"
	"time"
)

type Verdict string

const (
	VerdictPass         Verdict = "pass"
	VerdictFail         Verdict = "fail"
	VerdictInconclusive Verdict = "inconclusive"
)

func (v Verdict) String() string {
	return string(v)
}

// Verdicts returns the verdict values in their canonical order.
func Verdicts() []Verdict {
	return []Verdict{VerdictPass, VerdictFail, VerdictInconclusive}
}

// GetVerdict converts a string to a Verdict, ignoring case and surrounding whitespace.
func GetVerdict(value string) (Verdict, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, verdict := range Verdicts() {
		if v == string(verdict) {
			return verdict, nil
		}
	}
	return "", fmt.Errorf("invalid verdict: %q", value)
}

// EvaluationTask is one planned unit of work. It is never persisted.
type EvaluationTask struct {
	SubmissionID string `json:"submissionId" validate:"required"`
	TemplateID   string `json:"templateId" validate:"required"`
	JudgeID      string `json:"judgeId" validate:"required"`
}

func (t EvaluationTask) String() string {
	return fmt.Sprintf("%s/%s/%s", t.SubmissionID, t.TemplateID, t.JudgeID)
}

// Evaluation is the settled result of one evaluation task.
type Evaluation struct {
	ID            string    `json:"id"`
	RunID         string    `json:"runId,omitempty"`
	SubmissionID  string    `json:"submissionId"`
	TemplateID    string    `json:"templateId"`
	JudgeID       string    `json:"judgeId"`
	Verdict       Verdict   `json:"verdict"`
	Reasoning     string    `json:"reasoning"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	LatencyMs     *int64    `json:"latencyMs,omitempty"`
	Error         string    `json:"error,omitempty"`
	ParseStrategy string    `json:"parseStrategy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Succeeded reports whether the evaluation produced a verdict without error.
func (e *Evaluation) Succeeded() bool {
	return e.Error == ""
}

func (e *Evaluation) Task() EvaluationTask {
	return EvaluationTask{
		SubmissionID: e.SubmissionID,
		TemplateID:   e.TemplateID,
		JudgeID:      e.JudgeID,
	}
}

// EvaluateRequest represents the body of POST /evaluate
type EvaluateRequest = EvaluationTask

// EvaluateResponse represents the response of POST /evaluate
type EvaluateResponse struct {
	Success    bool        `json:"success"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// EvaluationList represents the evaluations of a run with pagination
type EvaluationList struct {
	Page
	Items []Evaluation `json:"items"`
}
