// Package config provides configuration management for the fleet console.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error with user-friendly message.
type ValidationError struct {
	Field   string      // Field path (e.g., "datasources.victoriametrics.endpoint")
	Tag     string      // Validation tag that failed (e.g., "required", "url")
	Value   interface{} // Actual value that failed validation
	Message string      // User-friendly error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("timezone", validateTimezone)
}

// Validate validates the configuration and returns user-friendly error messages.
func Validate(cfg *Config) error {
	var validationErrors ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors, &ValidationError{
					Field:   formatFieldName(fe.Namespace()),
					Tag:     fe.Tag(),
					Value:   fe.Value(),
					Message: translateError(fe),
				})
			}
		}
	}

	validationErrors = append(validationErrors, validateThresholds(cfg)...)
	validationErrors = append(validationErrors, validateTimezoneConfig(cfg)...)

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

// validateTimezone is a custom validator for timezone strings.
func validateTimezone(fl validator.FieldLevel) bool {
	tz := fl.Field().String()
	if tz == "" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// validateThresholds checks that warning thresholds are below critical ones
// and that both fit the 0..100 percent range.
func validateThresholds(cfg *Config) ValidationErrors {
	var errs ValidationErrors

	thresholdPairs := []struct {
		name     string
		warning  float64
		critical float64
	}{
		{"thresholds.cpu_usage", cfg.Thresholds.CPUUsage.Warning, cfg.Thresholds.CPUUsage.Critical},
		{"thresholds.memory_usage", cfg.Thresholds.MemoryUsage.Warning, cfg.Thresholds.MemoryUsage.Critical},
	}

	for _, tp := range thresholdPairs {
		if tp.warning >= tp.critical {
			errs = append(errs, &ValidationError{
				Field:   tp.name,
				Tag:     "threshold_order",
				Value:   fmt.Sprintf("warning=%v, critical=%v", tp.warning, tp.critical),
				Message: fmt.Sprintf("warning threshold (%.2f) must be less than critical threshold (%.2f)", tp.warning, tp.critical),
			})
		}
		if tp.critical > 100 {
			errs = append(errs, &ValidationError{
				Field:   tp.name + ".critical",
				Tag:     "percent",
				Value:   tp.critical,
				Message: fmt.Sprintf("critical threshold (%.2f) must not exceed 100", tp.critical),
			})
		}
	}

	return errs
}

// validateTimezoneConfig validates the timezone configuration.
func validateTimezoneConfig(cfg *Config) ValidationErrors {
	var errs ValidationErrors

	if cfg.Report.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Report.Timezone); err != nil {
			errs = append(errs, &ValidationError{
				Field:   "report.timezone",
				Tag:     "timezone",
				Value:   cfg.Report.Timezone,
				Message: fmt.Sprintf("invalid timezone: %s", cfg.Report.Timezone),
			})
		}
	}

	return errs
}

// formatFieldName converts the validator field namespace to a user-friendly format.
// Example: "Config.Datasources.VictoriaMetrics.Endpoint" -> "datasources.victoriametrics.endpoint"
func formatFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}

	for i, part := range parts {
		parts[i] = strings.ToLower(part)
	}

	return strings.Join(parts, ".")
}

// translateError converts a validator.FieldError to a user-friendly message.
func translateError(fe validator.FieldError) string {
	field := formatFieldName(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return fmt.Sprintf("invalid URL format: %v", fe.Value())
	case "gte":
		return fmt.Sprintf("value must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("value must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", fe.Param())
	case "startswith":
		return fmt.Sprintf("value must start with %q", fe.Param())
	case "timezone":
		return fmt.Sprintf("invalid timezone: %v", fe.Value())
	default:
		return fmt.Sprintf("validation failed on '%s' tag for field '%s'", fe.Tag(), field)
	}
}
