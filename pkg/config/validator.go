package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared across Validator instances; go-playground/validator
// caches struct reflection internally so a package-level instance is the
// idiomatic usage.
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	// Report the yaml tag name ("conversation_length") instead of the Go
	// field name in validation errors, so messages match the config file
	// the user actually edited.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error).
func (v *Validator) ValidateAll() error {
	if err := validate.Struct(v.cfg.Runtime); err != nil {
		return fmt.Errorf("runtime validation failed: %w", err)
	}
	if err := validate.Struct(v.cfg.Server); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := validate.Struct(v.cfg.Retention); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	if err := validate.Struct(v.cfg.Tracing); err != nil {
		return fmt.Errorf("tracing validation failed: %w", err)
	}
	if err := v.validateProviders(); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateProviders() error {
	for name, p := range v.cfg.Providers {
		if err := validate.Struct(p); err != nil {
			field := ""
			if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
				field = verrs[0].Field()
			}
			return NewValidationError("provider", name, field, ErrMissingRequiredField)
		}
	}
	return nil
}
