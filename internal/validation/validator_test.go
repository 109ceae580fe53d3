package validation

import (
	"testing"

	"github.com/ai-judge/ai-judge/pkg/api"
)

func TestJudgeConfigValidation(t *testing.T) {
	validate, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() failed: %v", err)
	}

	cases := []struct {
		name    string
		judge   api.JudgeConfig
		wantErr bool
	}{
		{"valid", api.JudgeConfig{Name: "j", Provider: "openai", Model: "gpt-4o"}, false},
		{"provider is case insensitive", api.JudgeConfig{Name: "j", Provider: "Anthropic", Model: "claude"}, false},
		{"unknown provider", api.JudgeConfig{Name: "j", Provider: "mistral", Model: "m"}, true},
		{"missing model", api.JudgeConfig{Name: "j", Provider: "gemini"}, true},
		{"missing name", api.JudgeConfig{Provider: "gemini", Model: "m"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Struct(tc.judge)
			if (err != nil) != tc.wantErr {
				t.Fatalf("validate.Struct() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRunEvaluationsRequestValidation(t *testing.T) {
	validate, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() failed: %v", err)
	}
	n := func(i int) *int { return &i }

	cases := []struct {
		name    string
		req     api.RunEvaluationsRequest
		wantErr bool
	}{
		{"queue only", api.RunEvaluationsRequest{QueueID: "q"}, false},
		{"concurrency in range", api.RunEvaluationsRequest{QueueID: "q", Concurrency: n(10)}, false},
		{"missing queue", api.RunEvaluationsRequest{}, true},
		{"concurrency too high", api.RunEvaluationsRequest{QueueID: "q", Concurrency: n(11)}, true},
		{"concurrency zero", api.RunEvaluationsRequest{QueueID: "q", Concurrency: n(0)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Struct(tc.req)
			if (err != nil) != tc.wantErr {
				t.Fatalf("validate.Struct() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
