package serialization

import (
	"encoding/json"
	"strings"

	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	validator "github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// Unmarshal decodes the request body into v and validates the result.
func Unmarshal(validate *validator.Validate, executionContext *executioncontext.ExecutionContext, jsonBytes []byte, v any) error {
	err := json.Unmarshal(jsonBytes, v)
	if err != nil {
		return serviceerrors.NewServiceError(messages.InvalidJSONRequest, "Error", err.Error())
	}
	return Validate(validate, executionContext, v)
}

// UnmarshalWithSchema checks the raw body against schema before decoding it,
// this catches unknown or mistyped fields that the struct tags can not.
func UnmarshalWithSchema(validate *validator.Validate, executionContext *executioncontext.ExecutionContext, schema *gojsonschema.Schema, jsonBytes []byte, v any) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonBytes))
	if err != nil {
		return serviceerrors.NewServiceError(messages.InvalidJSONRequest, "Error", err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			executionContext.Logger.Info("Schema validation error", "field", resultError.Field(), "type", resultError.Type(), "value", resultError.Value())
			details = append(details, resultError.String())
		}
		return serviceerrors.NewServiceError(messages.RequestValidationFailed, "Error", strings.Join(details, "; "))
	}
	return Unmarshal(validate, executionContext, jsonBytes, v)
}

// Validate runs the struct validation on an already decoded value.
func Validate(validate *validator.Validate, executionContext *executioncontext.ExecutionContext, v any) error {
	err := validate.StructCtx(executionContext.Ctx, v)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, validationError := range validationErrors {
				executionContext.Logger.Info("Validation error", "field", validationError.Field(), "tag", validationError.Tag(), "value", validationError.Value())
			}
		}
		return serviceerrors.NewServiceError(messages.RequestValidationFailed, "Error", err.Error())
	}
	return nil
}

// MustCompileSchema compiles a JSON schema literal, it panics on an invalid
// schema so that mistakes surface at package initialization.
func MustCompileSchema(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic("invalid JSON schema: " + err.Error())
	}
	return compiled
}
