package storage_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/common"
	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/internal/storage"
	"github.com/ai-judge/ai-judge/pkg/api"
	"github.com/google/go-cmp/cmp"
)

func newTestStorage(t *testing.T) abstractions.Storage {
	t.Helper()
	databaseConfig := map[string]any{
		"driver": "sqlite",
		"url":    fmt.Sprintf("file:%s?mode=memory&cache=shared", common.GUID()),
	}
	store, err := storage.NewStorage(&config.Config{Database: &databaseConfig}, false, logging.FallbackLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func seedQueue(t *testing.T, store abstractions.Storage) {
	t.Helper()
	for _, judge := range []api.Judge{
		{ID: "j1", JudgeConfig: api.JudgeConfig{Name: "Strict", Provider: "openai", Model: "gpt-4o-mini", Active: true}},
		{ID: "j2", JudgeConfig: api.JudgeConfig{Name: "Lenient", Provider: "anthropic", Model: "claude", Active: true}},
	} {
		if err := store.CreateJudge(&judge); err != nil {
			t.Fatalf("Failed to create judge: %v", err)
		}
	}
	for i, id := range []string{"s2", "s1"} {
		submission := &api.Submission{ID: id, QueueID: "q1", LabelingTaskID: "task", CreatedAtMs: int64(100 - i), Raw: json.RawMessage(`{"source":"test"}`)}
		if err := store.CreateSubmission(submission); err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
	}
	if err := store.CreateSubmission(&api.Submission{ID: "other", QueueID: "q2", CreatedAtMs: 1}); err != nil {
		t.Fatalf("Failed to create submission: %v", err)
	}
	questions := []api.Question{
		{SubmissionID: "s1", TemplateID: "t1", Rev: 1, QuestionType: "single_choice", QuestionText: "old"},
		{SubmissionID: "s1", TemplateID: "t1", Rev: 2, QuestionType: "single_choice", QuestionText: "new"},
		{SubmissionID: "s2", TemplateID: "t1", Rev: 1, QuestionType: "single_choice", QuestionText: "q"},
		{SubmissionID: "other", TemplateID: "t1", Rev: 1, QuestionText: "elsewhere"},
	}
	for _, question := range questions {
		if err := store.CreateQuestion(&question); err != nil {
			t.Fatalf("Failed to create question: %v", err)
		}
	}
	if err := store.CreateAnswer(&api.Answer{SubmissionID: "s1", TemplateID: "t1", Choice: "yes", Reasoning: "because"}); err != nil {
		t.Fatalf("Failed to create answer: %v", err)
	}
	for _, judgeID := range []string{"j2", "j1", "j1"} {
		if err := store.CreateJudgeAssignment(&api.JudgeAssignment{QueueID: "q1", TemplateID: "t1", JudgeID: judgeID}); err != nil {
			t.Fatalf("Failed to create judge assignment: %v", err)
		}
	}
}

func TestJudges(t *testing.T) {
	store := newTestStorage(t)
	seedQueue(t, store)

	t.Run("GetJudge returns the judge", func(t *testing.T) {
		judge, err := store.GetJudge("j1")
		if err != nil {
			t.Fatalf("Failed to get judge: %v", err)
		}
		want := &api.Judge{ID: "j1", JudgeConfig: api.JudgeConfig{Name: "Strict", Provider: "openai", Model: "gpt-4o-mini", Active: true}}
		if diff := cmp.Diff(want, judge); diff != "" {
			t.Fatalf("unexpected judge (-want +got):\n%s", diff)
		}
	})

	t.Run("GetJudge reports a missing judge", func(t *testing.T) {
		_, err := store.GetJudge("missing")
		if !errors.Is(err, serviceerrors.NewServiceError(messages.ResourceNotFound)) {
			t.Fatalf("expected a not found error, got %v", err)
		}
	})

	t.Run("CreateJudge rejects a duplicate id", func(t *testing.T) {
		judge := &api.Judge{ID: "j1", JudgeConfig: api.JudgeConfig{Name: "Again", Provider: "openai", Model: "m"}}
		err := store.CreateJudge(judge)
		if !errors.Is(err, serviceerrors.NewServiceError(messages.ResourceAlreadyExists)) {
			t.Fatalf("expected an already exists error, got %v", err)
		}
	})

	t.Run("GetJudges orders by name and filters", func(t *testing.T) {
		results, err := store.GetJudges(abstractions.QueryFilter{Limit: 10})
		if err != nil {
			t.Fatalf("Failed to list judges: %v", err)
		}
		if results.TotalStored != 2 || len(results.Items) != 2 || results.Items[0].Name != "Lenient" {
			t.Fatalf("unexpected judges %+v", results)
		}
		results, err = store.GetJudges(abstractions.QueryFilter{Limit: 10, Params: map[string]any{"provider": "openai"}})
		if err != nil {
			t.Fatalf("Failed to list judges: %v", err)
		}
		if results.TotalStored != 1 || results.Items[0].ID != "j1" {
			t.Fatalf("unexpected filtered judges %+v", results)
		}
		if _, err := store.GetJudges(abstractions.QueryFilter{Params: map[string]any{"model": "x"}}); err == nil {
			t.Fatalf("expected a bad filter to fail")
		}
	})

	t.Run("PatchJudge applies the patch", func(t *testing.T) {
		patch := api.Patch{
			{Op: api.PatchOpReplace, Path: "/model", Value: "gpt-4o"},
			{Op: api.PatchOpReplace, Path: "/active", Value: false},
			{Op: api.PatchOpReplace, Path: "/id", Value: "hijacked"},
		}
		judge, err := store.PatchJudge("j1", &patch)
		if err != nil {
			t.Fatalf("Failed to patch judge: %v", err)
		}
		if judge.ID != "j1" || judge.Model != "gpt-4o" || judge.Active {
			t.Fatalf("unexpected patched judge %+v", judge)
		}
		stored, err := store.GetJudge("j1")
		if err != nil {
			t.Fatalf("Failed to get judge: %v", err)
		}
		if diff := cmp.Diff(judge, stored); diff != "" {
			t.Fatalf("stored judge differs (-patched +stored):\n%s", diff)
		}
	})

	t.Run("PatchJudge rejects a patch removing a required field", func(t *testing.T) {
		patch := api.Patch{{Op: api.PatchOpReplace, Path: "/name", Value: ""}}
		if _, err := store.PatchJudge("j2", &patch); err == nil {
			t.Fatalf("expected the patch to fail")
		}
		judge, err := store.GetJudge("j2")
		if err != nil || judge.Name != "Lenient" {
			t.Fatalf("expected the judge to be unchanged, got %+v, %v", judge, err)
		}
	})

	t.Run("PatchJudge reports a missing judge", func(t *testing.T) {
		patch := api.Patch{{Op: api.PatchOpReplace, Path: "/model", Value: "m"}}
		_, err := store.PatchJudge("missing", &patch)
		if !errors.Is(err, serviceerrors.NewServiceError(messages.ResourceNotFound)) {
			t.Fatalf("expected a not found error, got %v", err)
		}
	})
}

func TestQueues(t *testing.T) {
	store := newTestStorage(t)
	seedQueue(t, store)

	t.Run("GetSubmissions orders by creation time", func(t *testing.T) {
		submissions, err := store.GetSubmissions("q1")
		if err != nil {
			t.Fatalf("Failed to get submissions: %v", err)
		}
		if len(submissions) != 2 || submissions[0].ID != "s1" || submissions[1].ID != "s2" {
			t.Fatalf("unexpected submissions %+v", submissions)
		}
		if string(submissions[0].Raw) != `{"source":"test"}` {
			t.Fatalf("unexpected raw submission %s", submissions[0].Raw)
		}
	})

	t.Run("GetQuestions returns the latest revision of the queue", func(t *testing.T) {
		questions, err := store.GetQuestions("q1")
		if err != nil {
			t.Fatalf("Failed to get questions: %v", err)
		}
		want := []api.Question{
			{SubmissionID: "s1", TemplateID: "t1", Rev: 2, QuestionType: "single_choice", QuestionText: "new"},
			{SubmissionID: "s2", TemplateID: "t1", Rev: 1, QuestionType: "single_choice", QuestionText: "q"},
		}
		if diff := cmp.Diff(want, questions); diff != "" {
			t.Fatalf("unexpected questions (-want +got):\n%s", diff)
		}
	})

	t.Run("GetJudgeAssignments ignores duplicates", func(t *testing.T) {
		assignments, err := store.GetJudgeAssignments("q1")
		if err != nil {
			t.Fatalf("Failed to get assignments: %v", err)
		}
		if len(assignments) != 2 || assignments[0].JudgeID != "j1" || assignments[1].JudgeID != "j2" {
			t.Fatalf("unexpected assignments %+v", assignments)
		}
	})

	t.Run("point lookups", func(t *testing.T) {
		question, err := store.GetQuestion("s1", "t1")
		if err != nil || question.Rev != 2 {
			t.Fatalf("expected the latest question revision, got %+v, %v", question, err)
		}
		answer, err := store.GetAnswer("s1", "t1")
		if err != nil || answer.Choice != "yes" || answer.Reasoning != "because" {
			t.Fatalf("unexpected answer %+v, %v", answer, err)
		}
		if _, err := store.GetAnswer("s2", "t1"); !errors.Is(err, serviceerrors.NewServiceError(messages.ResourceNotFound)) {
			t.Fatalf("expected a not found error, got %v", err)
		}
	})
}

func TestRuns(t *testing.T) {
	store := newTestStorage(t)
	seedQueue(t, store)

	run := &api.Run{ID: common.GUID(), QueueID: "q1", Status: api.RunStatusRunning, PlannedCount: 5, CreatedAt: time.Now().UTC()}
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	t.Run("concurrent increments never exceed the planned count", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		applied := 0
		for i := range 12 {
			wg.Go(func() {
				ok, err := store.IncrementRunCounter(run.ID, i%3 != 0)
				if err != nil {
					t.Errorf("Failed to increment counter: %v", err)
					return
				}
				if ok {
					mu.Lock()
					applied++
					mu.Unlock()
				}
			})
		}
		wg.Wait()

		stored, err := store.GetRun(run.ID)
		if err != nil {
			t.Fatalf("Failed to get run: %v", err)
		}
		if applied != 5 || stored.Settled() != 5 {
			t.Fatalf("expected 5 counted tasks, applied %d, stored %+v", applied, stored)
		}
	})

	t.Run("FinalizeRun completes a run whose counters reached the plan", func(t *testing.T) {
		finished, finalized, err := store.FinalizeRun(run.ID, time.Now())
		if err != nil {
			t.Fatalf("Failed to finalize run: %v", err)
		}
		if !finalized || finished.Status != api.RunStatusCompleted || finished.CompletedAt == nil {
			t.Fatalf("unexpected finalized run %+v", finished)
		}
		again, finalized, err := store.FinalizeRun(run.ID, time.Now().Add(time.Hour))
		if err != nil || finalized {
			t.Fatalf("expected finalizing twice to be a no-op, got %v, %v", finalized, err)
		}
		if !again.CompletedAt.Equal(*finished.CompletedAt) {
			t.Fatalf("completedAt changed from %v to %v", finished.CompletedAt, again.CompletedAt)
		}
	})

	t.Run("FinalizeRun fails a run with missing counts", func(t *testing.T) {
		short := &api.Run{ID: common.GUID(), QueueID: "q1", Status: api.RunStatusRunning, PlannedCount: 3, CreatedAt: time.Now().UTC()}
		if err := store.CreateRun(short); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		if _, err := store.IncrementRunCounter(short.ID, true); err != nil {
			t.Fatalf("Failed to increment counter: %v", err)
		}
		finished, _, err := store.FinalizeRun(short.ID, time.Now())
		if err != nil {
			t.Fatalf("Failed to finalize run: %v", err)
		}
		if finished.Status != api.RunStatusFailed || finished.CompletedCount != 1 {
			t.Fatalf("unexpected finalized run %+v", finished)
		}
	})

	t.Run("GetRuns filters by status", func(t *testing.T) {
		results, err := store.GetRuns(abstractions.QueryFilter{Limit: 10, Params: map[string]any{"queue_id": "q1", "status": "failed"}})
		if err != nil {
			t.Fatalf("Failed to list runs: %v", err)
		}
		if results.TotalStored != 1 || results.Items[0].Status != api.RunStatusFailed {
			t.Fatalf("unexpected runs %+v", results)
		}
		results, err = store.GetRuns(abstractions.QueryFilter{Limit: 1, Params: map[string]any{"queue_id": "q1", "status": ""}})
		if err != nil {
			t.Fatalf("Failed to list runs: %v", err)
		}
		if results.TotalStored != 2 || len(results.Items) != 1 {
			t.Fatalf("expected one page of two runs, got %+v", results)
		}
	})

	t.Run("GetRun reports a missing run", func(t *testing.T) {
		if _, err := store.GetRun("missing"); !errors.Is(err, serviceerrors.NewServiceError(messages.ResourceNotFound)) {
			t.Fatalf("expected a not found error, got %v", err)
		}
	})
}

func TestEvaluations(t *testing.T) {
	store := newTestStorage(t)
	seedQueue(t, store)

	run := &api.Run{ID: common.GUID(), QueueID: "q1", Status: api.RunStatusRunning, PlannedCount: 2, CreatedAt: time.Now().UTC()}
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}

	latency := int64(42)
	evaluation := &api.Evaluation{
		ID:            common.GUID(),
		RunID:         run.ID,
		SubmissionID:  "s1",
		TemplateID:    "t1",
		JudgeID:       "j1",
		Verdict:       api.VerdictPass,
		Reasoning:     "fine",
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		LatencyMs:     &latency,
		ParseStrategy: "direct-json",
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}

	t.Run("CreateEvaluation is idempotent per task", func(t *testing.T) {
		inserted, err := store.CreateEvaluation(evaluation)
		if err != nil || !inserted {
			t.Fatalf("expected the evaluation to be inserted, got %v, %v", inserted, err)
		}
		duplicate := *evaluation
		duplicate.ID = common.GUID()
		duplicate.Verdict = api.VerdictFail
		inserted, err = store.CreateEvaluation(&duplicate)
		if err != nil || inserted {
			t.Fatalf("expected the duplicate to be ignored, got %v, %v", inserted, err)
		}
	})

	t.Run("GetEvaluations returns the stored evaluations", func(t *testing.T) {
		failed := &api.Evaluation{
			ID:           common.GUID(),
			RunID:        run.ID,
			SubmissionID: "s2",
			TemplateID:   "t1",
			JudgeID:      "j1",
			Verdict:      api.VerdictInconclusive,
			Error:        "LLM call timed out after 20s",
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := store.CreateEvaluation(failed); err != nil {
			t.Fatalf("Failed to create evaluation: %v", err)
		}

		results, err := store.GetEvaluations(run.ID, abstractions.QueryFilter{Limit: 10})
		if err != nil {
			t.Fatalf("Failed to list evaluations: %v", err)
		}
		if results.TotalStored != 2 || len(results.Items) != 2 {
			t.Fatalf("expected 2 evaluations, got %+v", results)
		}
		first := results.Items[0]
		if diff := cmp.Diff(*evaluation, first, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
			t.Fatalf("unexpected evaluation (-want +got):\n%s", diff)
		}
		if results.Items[1].LatencyMs != nil || results.Items[1].Error == "" {
			t.Fatalf("unexpected failed evaluation %+v", results.Items[1])
		}

		results, err = store.GetEvaluations(run.ID, abstractions.QueryFilter{Params: map[string]any{"verdict": "inconclusive"}})
		if err != nil {
			t.Fatalf("Failed to list evaluations: %v", err)
		}
		if results.TotalStored != 1 {
			t.Fatalf("expected 1 inconclusive evaluation, got %d", results.TotalStored)
		}
	})
}

func TestNewStorageRejectsUnknownDriver(t *testing.T) {
	databaseConfig := map[string]any{"driver": "mysql", "url": "x"}
	if _, err := storage.NewStorage(&config.Config{Database: &databaseConfig}, false, logging.FallbackLogger()); err == nil {
		t.Fatalf("expected an unsupported driver error")
	}
	if _, err := storage.NewStorage(&config.Config{}, false, logging.FallbackLogger()); err == nil {
		t.Fatalf("expected a missing configuration error")
	}
}
