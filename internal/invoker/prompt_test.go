package invoker

import (
	"strings"
	"testing"

	"github.com/ai-judge/ai-judge/pkg/api"
)

func TestBuildSystemPrompt(t *testing.T) {
	t.Run("empty prompt gets the default preamble", func(t *testing.T) {
		prompt := BuildSystemPrompt("  ")
		if !strings.HasPrefix(prompt, defaultPreamble) || !strings.HasSuffix(prompt, responseInstruction) {
			t.Fatalf("unexpected prompt %q", prompt)
		}
	})

	t.Run("instruction appended when verdicts are not mentioned", func(t *testing.T) {
		prompt := BuildSystemPrompt("Check the answer against the style guide.")
		if prompt != "Check the answer against the style guide.\n\n"+responseInstruction {
			t.Fatalf("unexpected prompt %q", prompt)
		}
	})

	for _, judgePrompt := range []string{
		"Evaluate the answer strictly.",
		"Return a VERDICT.",
		"Say pass when correct.",
		"Answers that are off-topic Fail.",
	} {
		t.Run("kept as is: "+judgePrompt, func(t *testing.T) {
			if prompt := BuildSystemPrompt(judgePrompt); prompt != judgePrompt {
				t.Fatalf("expected the prompt unchanged, got %q", prompt)
			}
		})
	}
}

func TestRenderAnswer(t *testing.T) {
	cases := []struct {
		name   string
		answer *api.Answer
		want   string
	}{
		{"nil", nil, "No answer provided"},
		{"empty", &api.Answer{}, "No answer provided"},
		{"blank", &api.Answer{Choice: " ", Reasoning: "\n"}, "No answer provided"},
		{"choice only", &api.Answer{Choice: "B"}, "Choice: B"},
		{"reasoning only", &api.Answer{Reasoning: "because"}, "Reasoning: because"},
		{"both", &api.Answer{Choice: "B", Reasoning: "because"}, "Choice: B\nReasoning: because"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenderAnswer(tc.answer); got != tc.want {
				t.Fatalf("RenderAnswer() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := BuildUserPrompt(&api.Question{QuestionText: "2+2?"}, nil)
	if got != "Question:\n2+2?\n\nAnswer:\nNo answer provided" {
		t.Fatalf("unexpected prompt %q", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"abcdefghij", 8, "abcde..."},
		{"ééééé", 4, "é..."},
		{"abc", 0, "abc"},
		{"abcdef", 2, "ab"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}
