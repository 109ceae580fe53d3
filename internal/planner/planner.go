// Package planner expands a queue into the evaluation tasks of a run.
package planner

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/pkg/api"
)

// ErrEmptyPlan means the queue has no submissions, no judge assignments, or
// no submission with a question matching an assigned template.
var ErrEmptyPlan = errors.New("no evaluation tasks planned for the queue")

// BuildPlan returns one task per assignment, submission and matching
// question template. Assignments keep their order, submissions are ordered
// by creation time then id, and a template is planned once per submission
// whatever the number of question revisions.
func BuildPlan(submissions []api.Submission, questions []api.Question, assignments []api.JudgeAssignment) ([]api.EvaluationTask, error) {
	if len(submissions) == 0 || len(assignments) == 0 {
		return nil, ErrEmptyPlan
	}

	ordered := slices.Clone(submissions)
	slices.SortStableFunc(ordered, func(a, b api.Submission) int {
		return cmp.Or(cmp.Compare(a.CreatedAtMs, b.CreatedAtMs), cmp.Compare(a.ID, b.ID))
	})

	templates := make(map[string]map[string]struct{}, len(ordered))
	for _, question := range questions {
		if templates[question.SubmissionID] == nil {
			templates[question.SubmissionID] = map[string]struct{}{}
		}
		templates[question.SubmissionID][question.TemplateID] = struct{}{}
	}

	var tasks []api.EvaluationTask
	seen := make(map[api.EvaluationTask]struct{})
	for _, assignment := range assignments {
		for _, submission := range ordered {
			if _, ok := templates[submission.ID][assignment.TemplateID]; !ok {
				continue
			}
			task := api.EvaluationTask{
				SubmissionID: submission.ID,
				TemplateID:   assignment.TemplateID,
				JudgeID:      assignment.JudgeID,
			}
			if _, dup := seen[task]; dup {
				continue
			}
			seen[task] = struct{}{}
			tasks = append(tasks, task)
		}
	}

	if len(tasks) == 0 {
		return nil, ErrEmptyPlan
	}
	return tasks, nil
}

type Planner struct {
	storage abstractions.Storage
	logger  *slog.Logger
}

func New(storage abstractions.Storage, logger *slog.Logger) *Planner {
	return &Planner{storage: storage, logger: logger}
}

// Plan loads the submissions, questions and judge assignments of the queue
// and builds its plan.
func (p *Planner) Plan(ctx context.Context, queueID string) ([]api.EvaluationTask, error) {
	store := p.storage.WithContext(ctx).WithLogger(p.logger)

	submissions, err := store.GetSubmissions(queueID)
	if err != nil {
		return nil, err
	}
	questions, err := store.GetQuestions(queueID)
	if err != nil {
		return nil, err
	}
	assignments, err := store.GetJudgeAssignments(queueID)
	if err != nil {
		return nil, err
	}

	tasks, err := BuildPlan(submissions, questions, assignments)
	if err != nil {
		p.logger.Info("Empty plan", "queue_id", queueID, "submissions", len(submissions), "questions", len(questions), "assignments", len(assignments))
		return nil, err
	}
	p.logger.Info("Plan built", "queue_id", queueID, "tasks", len(tasks))
	return tasks, nil
}
