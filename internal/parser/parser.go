// Package parser turns free-form judge responses into a verdict and a
// reasoning. Strategies are tried in a fixed order, from the strictest
// (the response is exactly a JSON object) to a whole-word text heuristic.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/Jeffail/gabs/v2"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/pkg/api"
	"github.com/xeipuuv/gojsonschema"
)

const verdictSchemaJSON = `{
  "type": "object",
  "required": ["verdict", "reasoning"],
  "properties": {
    "verdict": {"type": "string"},
    "reasoning": {"type": "string", "pattern": "\\S"}
  }
}`

var (
	verdictSchema = mustSchema(verdictSchemaJSON)

	trailingCommas = regexp.MustCompile(`,\s*([}\]])`)
	reasoningLabel = regexp.MustCompile(`(?i)\breasoning\s*:`)
	otherLabel     = regexp.MustCompile(`^\s*[A-Za-z][\w ]*:`)
)

func mustSchema(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid verdict schema: %v", err))
	}
	return compiled
}

// Parse runs the strategies in order and returns the first success. Once a
// strategy finds well-formed JSON with the wrong shape the result is a
// Failure and the remaining strategies are not tried.
func Parse(text string) Result {
	var attempts []Attempt
	reject := func(strategy Strategy, reason string) {
		attempts = append(attempts, Attempt{Strategy: strategy, Reason: reason})
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Failure{Reason: "empty response", Attempts: attempts}
	}

	// direct-json
	if json.Valid([]byte(trimmed)) {
		verdict, reasoning, err := validateShape([]byte(trimmed))
		if err != nil {
			return shapeFailure(StrategyDirectJSON, err, attempts)
		}
		return Success{Verdict: verdict, Reasoning: reasoning, Strategy: StrategyDirectJSON}
	}
	reject(StrategyDirectJSON, "response is not a JSON document")

	// json-extraction
	if unfenced := stripFences(trimmed); unfenced != trimmed && json.Valid([]byte(unfenced)) {
		verdict, reasoning, err := validateShape([]byte(unfenced))
		if err != nil {
			return shapeFailure(StrategyJSONExtract, err, attempts)
		}
		return Success{Verdict: verdict, Reasoning: reasoning, Strategy: StrategyJSONExtract, Attempts: attempts}
	}
	if candidate, ok := extractFirstObject(trimmed); ok {
		if !json.Valid([]byte(candidate)) {
			reject(StrategyJSONExtract, "balanced object is not valid JSON")
		} else {
			verdict, reasoning, err := validateShape([]byte(candidate))
			if err != nil {
				return shapeFailure(StrategyJSONExtract, err, attempts)
			}
			return Success{Verdict: verdict, Reasoning: reasoning, Strategy: StrategyJSONExtract, Attempts: attempts}
		}
	} else {
		reject(StrategyJSONExtract, "no balanced JSON object found")
	}

	// json-repair
	repairReason := "no balanced JSON object found after repair"
	for _, repaired := range repairCandidates(trimmed) {
		candidate, ok := extractFirstObject(repaired)
		if !ok {
			continue
		}
		if !json.Valid([]byte(candidate)) {
			repairReason = "repaired object is not valid JSON"
			continue
		}
		verdict, reasoning, err := validateShape([]byte(candidate))
		if err != nil {
			return shapeFailure(StrategyJSONRepair, err, attempts)
		}
		return Success{Verdict: verdict, Reasoning: reasoning, Strategy: StrategyJSONRepair, Attempts: attempts}
	}
	reject(StrategyJSONRepair, repairReason)

	// text-heuristic
	verdict, reasoning, err := heuristic(trimmed)
	if err != nil {
		reject(StrategyTextHeuristic, err.Error())
		return Failure{Reason: err.Error(), Attempts: attempts}
	}
	return Success{Verdict: verdict, Reasoning: reasoning, Strategy: StrategyTextHeuristic, Attempts: attempts}
}

// shapeFailure ends parsing for well-formed JSON that is not a verdict
// object, the text heuristic would only pick up words from inside it.
func shapeFailure(strategy Strategy, err error, attempts []Attempt) Failure {
	reason := fmt.Sprintf("response is JSON but not a verdict object: %s", err.Error())
	return Failure{Reason: reason, Attempts: append(attempts, Attempt{Strategy: strategy, Reason: reason})}
}

// validateShape checks doc against the verdict schema and returns the
// normalized verdict and the trimmed reasoning.
func validateShape(doc []byte) (api.Verdict, string, error) {
	result, err := verdictSchema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return "", "", fmt.Errorf("invalid JSON: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}
		return "", "", fmt.Errorf("%s", strings.Join(details, "; "))
	}

	container, err := gabs.ParseJSON(doc)
	if err != nil {
		return "", "", fmt.Errorf("invalid JSON: %w", err)
	}
	verdictText, _ := container.Path("verdict").Data().(string)
	verdict, err := api.GetVerdict(verdictText)
	if err != nil {
		return "", "", err
	}
	reasoning, _ := container.Path("reasoning").Data().(string)
	return verdict, strings.TrimSpace(reasoning), nil
}

// extractFirstObject returns the first balanced {...} span starting at the
// first '{'. Braces inside double quoted strings are ignored.
func extractFirstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// repairCandidates returns the repaired variants of text in the order they
// should be tried. Quote conversion comes last since it can break
// apostrophes inside otherwise valid strings.
func repairCandidates(text string) []string {
	fixed := trailingCommas.ReplaceAllString(stripFences(text), "$1")
	return []string{fixed, strings.ReplaceAll(fixed, "'", `"`)}
}

// stripFences drops Markdown code fence lines such as ```json and ```.
func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// heuristic looks for verdict words bounded by non-letters on both sides.
// Exactly one distinct verdict word must appear, it may repeat.
func heuristic(text string) (api.Verdict, string, error) {
	var found []api.Verdict
	var remaining strings.Builder
	for _, token := range splitLetterRuns(text) {
		if verdict, err := api.GetVerdict(token); err == nil && isLetterRun(token) {
			if !slices.Contains(found, verdict) {
				found = append(found, verdict)
			}
			remaining.WriteString(" ")
			continue
		}
		remaining.WriteString(token)
	}

	switch len(found) {
	case 0:
		return "", "", fmt.Errorf("no verdict found in response")
	case 1:
	default:
		names := make([]string, 0, len(found))
		for _, verdict := range api.Verdicts() {
			if slices.Contains(found, verdict) {
				names = append(names, verdict.String())
			}
		}
		return "", "", fmt.Errorf("ambiguous verdict, response mentions %s", strings.Join(names, " and "))
	}

	return found[0], heuristicReasoning(text, remaining.String()), nil
}

func heuristicReasoning(text string, withoutVerdicts string) string {
	if labelled := labelledReasoning(text); labelled != "" {
		return labelled
	}
	collapsed := strings.Join(strings.Fields(withoutVerdicts), " ")
	if strings.IndexFunc(collapsed, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
		return collapsed
	}
	return constants.NO_REASONING_PROVIDED
}

// labelledReasoning returns the text after a "reasoning:" label, up to the
// next labelled line such as "Verdict: pass".
func labelledReasoning(text string) string {
	loc := reasoningLabel.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	lines := strings.Split(text[loc[1]:], "\n")
	kept := lines[:1]
	for _, line := range lines[1:] {
		if otherLabel.MatchString(line) {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// splitLetterRuns splits text into alternating runs of letters and
// non-letters. Joining the runs gives back text.
func splitLetterRuns(text string) []string {
	var runs []string
	start := 0
	inLetters := false
	for i, r := range text {
		letter := unicode.IsLetter(r)
		if i > 0 && letter != inLetters {
			runs = append(runs, text[start:i])
			start = i
		}
		inLetters = letter
	}
	if start < len(text) {
		runs = append(runs, text[start:])
	}
	return runs
}

func isLetterRun(token string) bool {
	for _, r := range token {
		return unicode.IsLetter(r)
	}
	return false
}
