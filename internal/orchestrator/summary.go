package orchestrator

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ai-judge/ai-judge/pkg/api"
)

type judgeStats struct {
	completed    int
	failed       int
	latencyTotal int64
	latencyCount int
}

// aggregator builds the run summary while tasks settle. The totals are
// atomic, everything else is guarded by mu.
type aggregator struct {
	start     time.Time
	maxErrors int

	total      atomic.Int64
	successful atomic.Int64
	failed     atomic.Int64

	mu           sync.Mutex
	verdicts     api.VerdictBreakdown
	latencyTotal int64
	latencyCount int
	judges       map[string]*judgeStats
	errors       []string
	seenErrors   map[string]struct{}
}

func newAggregator(maxErrors int) *aggregator {
	return &aggregator{
		start:      time.Now(),
		maxErrors:  maxErrors,
		judges:     map[string]*judgeStats{},
		seenErrors: map[string]struct{}{},
	}
}

// add records a settled evaluation. An evaluation that could not be stored
// counts as failed whatever its verdict.
func (a *aggregator) add(evaluation *api.Evaluation, storeErr string) {
	a.total.Add(1)
	succeeded := evaluation.Succeeded() && storeErr == ""
	if succeeded {
		a.successful.Add(1)
	} else {
		a.failed.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.verdicts.Add(evaluation.Verdict)
	stats := a.judgeStats(evaluation.JudgeID)
	if succeeded {
		stats.completed++
	} else {
		stats.failed++
	}
	if evaluation.LatencyMs != nil {
		a.latencyTotal += *evaluation.LatencyMs
		a.latencyCount++
		stats.latencyTotal += *evaluation.LatencyMs
		stats.latencyCount++
	}
	a.addError(evaluation.Error)
	a.addError(storeErr)
}

// addUnsettled records a task that never produced an evaluation, such as a
// task cancelled before it started.
func (a *aggregator) addUnsettled(task api.EvaluationTask, message string) {
	a.total.Add(1)
	a.failed.Add(1)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.verdicts.Add(api.VerdictInconclusive)
	a.judgeStats(task.JudgeID).failed++
	a.addError(message)
}

func (a *aggregator) judgeStats(judgeID string) *judgeStats {
	stats, ok := a.judges[judgeID]
	if !ok {
		stats = &judgeStats{}
		a.judges[judgeID] = stats
	}
	return stats
}

func (a *aggregator) addError(message string) {
	if message == "" || len(a.errors) >= a.maxErrors {
		return
	}
	if _, seen := a.seenErrors[message]; seen {
		return
	}
	a.seenErrors[message] = struct{}{}
	a.errors = append(a.errors, message)
}

// summary returns the aggregate, judge names are resolved with names and
// fall back to the judge id.
func (a *aggregator) summary(names map[string]string) *api.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := int(a.total.Load())
	successful := int(a.successful.Load())

	summary := &api.RunSummary{
		TotalEvaluations:      total,
		SuccessfulEvaluations: successful,
		FailedEvaluations:     int(a.failed.Load()),
		SuccessRate:           percentage(successful, total),
		AverageLatency:        average(a.latencyTotal, a.latencyCount),
		TotalDuration:         time.Since(a.start).Milliseconds(),
		VerdictBreakdown:      a.verdicts,
		JudgePerformance:      make([]api.JudgePerformance, 0, len(a.judges)),
		Errors:                append([]string{}, a.errors...),
	}
	for judgeID, stats := range a.judges {
		name := names[judgeID]
		if name == "" {
			name = judgeID
		}
		summary.JudgePerformance = append(summary.JudgePerformance, api.JudgePerformance{
			JudgeID:        judgeID,
			JudgeName:      name,
			Completed:      stats.completed,
			Failed:         stats.failed,
			AverageLatency: average(stats.latencyTotal, stats.latencyCount),
		})
	}
	slices.SortFunc(summary.JudgePerformance, func(x, y api.JudgePerformance) int {
		return cmp.Or(cmp.Compare(x.JudgeName, y.JudgeName), cmp.Compare(x.JudgeID, y.JudgeID))
	})
	return summary
}

// emptySummary is returned for a queue without any planned task.
func emptySummary() *api.RunSummary {
	return &api.RunSummary{
		JudgePerformance: []api.JudgePerformance{},
		Errors:           []string{},
	}
}

func percentage(part int, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(total))
}

func average(sum int64, count int) float64 {
	if count == 0 {
		return 0
	}
	return round2(float64(sum) / float64(count))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
