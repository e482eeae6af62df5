package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct-level validate tags
// and a handful of cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()

	if err := v.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			return fmt.Errorf("invalid configuration: %s", formatValidationErrors(errs))
		}
		return err
	}

	// Rules the tags cannot express
	if cfg.API.Port != 0 && cfg.Metrics.Enabled && cfg.API.Port == cfg.Metrics.Port {
		return fmt.Errorf("api and metrics servers cannot share port %d", cfg.API.Port)
	}

	return nil
}

// formatValidationErrors renders validator errors as a readable list of
// field paths and failed rules.
func formatValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
