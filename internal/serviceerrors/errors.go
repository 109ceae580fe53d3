package serviceerrors

import (
	"github.com/ai-judge/ai-judge/internal/messages"
)

type ServiceError struct {
	messageCode   *messages.MessageCode
	messageParams []any
	rollback      bool
}

func NewServiceError(messageCode *messages.MessageCode, messageParams ...any) *ServiceError {
	return &ServiceError{
		messageCode:   messageCode,
		messageParams: messageParams,
	}
}

// WithRollback marks the error so that an enclosing transaction is rolled back.
func (e *ServiceError) WithRollback() *ServiceError {
	e.rollback = true
	return e
}

func (e *ServiceError) Error() string {
	return messages.GetErrorMessage(e.messageCode, e.messageParams...)
}

func (e *ServiceError) MessageCode() *messages.MessageCode {
	return e.messageCode
}

func (e *ServiceError) MessageParams() []any {
	return e.messageParams
}

func (e *ServiceError) StatusCode() int {
	return e.messageCode.GetStatusCode()
}

func (e *ServiceError) ShouldRollback() bool {
	return e.rollback
}

// Is matches service errors by message code so callers can use errors.Is
// with a template error such as NewServiceError(messages.ResourceNotFound).
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.messageCode == e.messageCode
}
