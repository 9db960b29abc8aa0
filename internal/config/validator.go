package config

import (
	"errors"
	"strings"

	"snapfetch/internal/common"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return common.NewError("configuration is nil")
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			return common.NewValidationError(first.Namespace(), first.Value(), "failed rule '"+first.Tag()+"'")
		}
		return common.WrapError(err, "config validation failed")
	}

	return validateSourceNames(cfg.Sources)
}

// validateSourceNames enforces uniqueness of source names. Each source owns a
// directory named after it, so a clash would make two fetchers share a store.
func validateSourceNames(sources []SourceConfig) error {
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			return common.NewValidationError("sources.name", src.Name, "source name must not be blank")
		}
		if strings.ContainsAny(name, `/\`) {
			return common.NewValidationError("sources.name", name, "source name must not contain path separators")
		}
		if _, dup := seen[name]; dup {
			return common.NewValidationError("sources.name", name, "duplicate source name")
		}
		seen[name] = struct{}{}
	}
	return nil
}
