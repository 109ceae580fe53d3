package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// IsTransient reports whether err is a provider error worth retrying: a rate
// limit or a server side failure. Timeouts and cancellations never are.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return isTransientStatus(openaiErr.HTTPStatusCode)
	}
	var openaiReqErr *openai.RequestError
	if errors.As(err, &openaiReqErr) {
		return isTransientStatus(openaiReqErr.HTTPStatusCode)
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return isTransientStatus(anthropicErr.StatusCode)
	}
	var geminiErr *genai.APIError
	if errors.As(err, &geminiErr) {
		return isTransientStatus(geminiErr.Code)
	}

	// the Gemini client does not always return a typed error
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "Overloaded")
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
