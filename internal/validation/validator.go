package validation

import (
	"reflect"
	"slices"
	"strings"

	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/pkg/api"
	validator "github.com/go-playground/validator/v10"
)

func NewValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	register(validate)
	if err := registerCustomValidators(validate); err != nil {
		return nil, err
	}
	return validate, nil
}

func register(instance *validator.Validate) {
	// register function to get tag name from json tags
	instance.RegisterTagNameFunc(
		func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		},
	)
}

func registerCustomValidators(instance *validator.Validate) error {
	if err := instance.RegisterValidation("llm_provider", isKnownProvider); err != nil {
		return err
	}
	instance.RegisterStructValidation(judgeConfigProvider, api.JudgeConfig{})
	return nil
}

// KnownProviders lists the provider names a judge may reference.
func KnownProviders() []string {
	return []string{constants.PROVIDER_OPENAI, constants.PROVIDER_ANTHROPIC, constants.PROVIDER_GEMINI}
}

func isKnownProvider(fl validator.FieldLevel) bool {
	return slices.Contains(KnownProviders(), strings.ToLower(fl.Field().String()))
}

// judgeConfigProvider rejects judges bound to a provider this service can not call.
func judgeConfigProvider(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(api.JudgeConfig)
	if cfg.Provider == "" {
		// reported by the required tag
		return
	}
	if !slices.Contains(KnownProviders(), strings.ToLower(cfg.Provider)) {
		sl.ReportError(cfg.Provider, "provider", "Provider", "llm_provider", cfg.Provider)
	}
}
