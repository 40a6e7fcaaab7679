package llm

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/teilomillet/ipometa/config"
)

// validate is the shared validator instance used across the module.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	if err := validate.RegisterValidation("modelid", validateModelID); err != nil {
		panic(fmt.Sprintf("failed to register model id validator: %v", err))
	}
}

// validateModelID accepts identifiers such as "x-ai/grok-4-fast": non-empty,
// no whitespace.
func validateModelID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" {
		return false
	}
	return strings.IndexFunc(id, unicode.IsSpace) < 0
}

// Validate checks s against its `validate` struct tags.
func Validate(s any) error {
	return validate.Struct(s)
}

// RegisterCustomValidation registers an extra validation tag.
func RegisterCustomValidation(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}

// ErrMissingAPIKey is returned by ValidateConfig when no credential is set.
var ErrMissingAPIKey = errors.New("no API key configured: set OPENROUTER_API_KEY or IPO_API_KEY")

// ValidateConfig checks the struct tags of cfg and that a credential is
// present for the provider.
func ValidateConfig(cfg *config.Config) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validate.Var(cfg.Model, "modelid"); err != nil {
		return fmt.Errorf("invalid model %q: %w", cfg.Model, err)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
