package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/pkg/api"
	"github.com/google/go-cmp/cmp"
)

func TestBuildPlan(t *testing.T) {
	t.Run("plan size is submissions times judges for a shared template", func(t *testing.T) {
		for _, size := range []struct{ submissions, judges int }{{1, 1}, {2, 2}, {5, 3}, {7, 1}} {
			var submissions []api.Submission
			var questions []api.Question
			var assignments []api.JudgeAssignment
			for i := range size.submissions {
				id := fmt.Sprintf("s%d", i)
				submissions = append(submissions, api.Submission{ID: id, CreatedAtMs: int64(i)})
				questions = append(questions, api.Question{SubmissionID: id, TemplateID: "t1", Rev: 1})
			}
			for j := range size.judges {
				assignments = append(assignments, api.JudgeAssignment{TemplateID: "t1", JudgeID: fmt.Sprintf("j%d", j)})
			}
			tasks, err := BuildPlan(submissions, questions, assignments)
			if err != nil {
				t.Fatalf("BuildPlan() failed: %v", err)
			}
			if len(tasks) != size.submissions*size.judges {
				t.Fatalf("expected %d tasks, got %d", size.submissions*size.judges, len(tasks))
			}
		}
	})

	t.Run("order follows assignments then submission creation", func(t *testing.T) {
		submissions := []api.Submission{
			{ID: "b", CreatedAtMs: 2},
			{ID: "c", CreatedAtMs: 1},
			{ID: "a", CreatedAtMs: 2},
		}
		questions := []api.Question{
			{SubmissionID: "a", TemplateID: "t1", Rev: 1},
			{SubmissionID: "a", TemplateID: "t1", Rev: 2},
			{SubmissionID: "b", TemplateID: "t1", Rev: 1},
			{SubmissionID: "c", TemplateID: "t1", Rev: 1},
			{SubmissionID: "c", TemplateID: "t2", Rev: 1},
		}
		assignments := []api.JudgeAssignment{
			{TemplateID: "t1", JudgeID: "j1"},
			{TemplateID: "t2", JudgeID: "j2"},
		}
		tasks, err := BuildPlan(submissions, questions, assignments)
		if err != nil {
			t.Fatalf("BuildPlan() failed: %v", err)
		}
		want := []api.EvaluationTask{
			{SubmissionID: "c", TemplateID: "t1", JudgeID: "j1"},
			{SubmissionID: "a", TemplateID: "t1", JudgeID: "j1"},
			{SubmissionID: "b", TemplateID: "t1", JudgeID: "j1"},
			{SubmissionID: "c", TemplateID: "t2", JudgeID: "j2"},
		}
		if diff := cmp.Diff(want, tasks); diff != "" {
			t.Fatalf("unexpected plan (-want +got):\n%s", diff)
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		submissions := []api.Submission{{ID: "s1"}}
		questions := []api.Question{{SubmissionID: "s1", TemplateID: "t1"}}
		assignments := []api.JudgeAssignment{{TemplateID: "t1", JudgeID: "j1"}}
		unmatched := []api.JudgeAssignment{{TemplateID: "t9", JudgeID: "j1"}}

		cases := map[string]func() ([]api.EvaluationTask, error){
			"no submissions": func() ([]api.EvaluationTask, error) { return BuildPlan(nil, questions, assignments) },
			"no assignments": func() ([]api.EvaluationTask, error) { return BuildPlan(submissions, questions, nil) },
			"no questions":   func() ([]api.EvaluationTask, error) { return BuildPlan(submissions, nil, assignments) },
			"empty join":     func() ([]api.EvaluationTask, error) { return BuildPlan(submissions, questions, unmatched) },
		}
		for name, build := range cases {
			t.Run(name, func(t *testing.T) {
				tasks, err := build()
				if !errors.Is(err, ErrEmptyPlan) || len(tasks) != 0 {
					t.Fatalf("expected ErrEmptyPlan, got %v, %v", tasks, err)
				}
			})
		}
	})
}

type fakeStorage struct {
	abstractions.Storage
	submissions []api.Submission
	questions   []api.Question
	assignments []api.JudgeAssignment
	err         error
}

func (f *fakeStorage) WithContext(_ context.Context) abstractions.Storage { return f }
func (f *fakeStorage) WithLogger(_ *slog.Logger) abstractions.Storage   { return f }
func (f *fakeStorage) GetSubmissions(_ string) ([]api.Submission, error) {
	return f.submissions, f.err
}
func (f *fakeStorage) GetQuestions(_ string) ([]api.Question, error) { return f.questions, nil }
func (f *fakeStorage) GetJudgeAssignments(_ string) ([]api.JudgeAssignment, error) {
	return f.assignments, nil
}

func TestPlan(t *testing.T) {
	store := &fakeStorage{
		submissions: []api.Submission{{ID: "s1"}},
		questions:   []api.Question{{SubmissionID: "s1", TemplateID: "t1"}},
		assignments: []api.JudgeAssignment{{TemplateID: "t1", JudgeID: "j1"}},
	}
	tasks, err := New(store, logging.FallbackLogger()).Plan(context.Background(), "q1")
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].String() != "s1/t1/j1" {
		t.Fatalf("unexpected plan %v", tasks)
	}

	store.err = errors.New("database down")
	if _, err := New(store, logging.FallbackLogger()).Plan(context.Background(), "q1"); err == nil || errors.Is(err, ErrEmptyPlan) {
		t.Fatalf("expected the storage error, got %v", err)
	}
}
