package invoker

import (
	"fmt"
	"strings"

	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/pkg/api"
)

const (
	defaultPreamble = "You are an impartial judge reviewing a human labeller's answer to a question."

	responseInstruction = `Respond with a single JSON object and nothing else, using this exact shape:
{"verdict": "pass" | "fail" | "inconclusive", "reasoning": "<a short explanation of the verdict>"}`
)

// verdictKeywords mark a judge prompt that already explains the expected
// output, matched case-insensitively as substrings.
var verdictKeywords = []string{"evaluat", "verdict", "pass", "fail"}

// BuildSystemPrompt returns the judge prompt, followed by the response
// instruction unless the prompt already talks about verdicts.
func BuildSystemPrompt(judgePrompt string) string {
	prompt := strings.TrimSpace(judgePrompt)
	if prompt == "" {
		return defaultPreamble + "\n\n" + responseInstruction
	}
	lower := strings.ToLower(prompt)
	for _, keyword := range verdictKeywords {
		if strings.Contains(lower, keyword) {
			return prompt
		}
	}
	return prompt + "\n\n" + responseInstruction
}

func BuildUserPrompt(question *api.Question, answer *api.Answer) string {
	questionText := ""
	if question != nil {
		questionText = question.QuestionText
	}
	return fmt.Sprintf("Question:\n%s\n\nAnswer:\n%s", questionText, RenderAnswer(answer))
}

// RenderAnswer formats the labeller's choice and reasoning, whichever are set.
func RenderAnswer(answer *api.Answer) string {
	if answer == nil {
		return constants.NO_ANSWER_PROVIDED
	}
	var lines []string
	if choice := strings.TrimSpace(answer.Choice); choice != "" {
		lines = append(lines, "Choice: "+choice)
	}
	if reasoning := strings.TrimSpace(answer.Reasoning); reasoning != "" {
		lines = append(lines, "Reasoning: "+reasoning)
	}
	if len(lines) == 0 {
		return constants.NO_ANSWER_PROVIDED
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to at most limit runes, the last three being "...".
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
