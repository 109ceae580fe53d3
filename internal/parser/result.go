package parser

import "github.com/ai-judge/ai-judge/pkg/api"

type Strategy string

const (
	StrategyDirectJSON    Strategy = "direct-json"
	StrategyJSONExtract   Strategy = "json-extraction"
	StrategyJSONRepair    Strategy = "json-repair"
	StrategyTextHeuristic Strategy = "text-heuristic"
)

func (s Strategy) String() string {
	return string(s)
}

// Attempt records why a strategy rejected the response.
type Attempt struct {
	Strategy Strategy
	Reason   string
}

// Result is either a Success or a Failure.
type Result interface {
	isResult()
}

type Success struct {
	Verdict   api.Verdict
	Reasoning string
	Strategy  Strategy
	// Attempts are the strategies that were tried and rejected first
	Attempts []Attempt
}

type Failure struct {
	Reason   string
	Attempts []Attempt
}

func (Success) isResult() {}
func (Failure) isResult() {}
