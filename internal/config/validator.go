package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers the project-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"storage_driver":      validateStorageDriver,
		"unauthorized_policy": validateUnauthorizedPolicy,
		"trace_output":        validateTraceOutput,
		"duration":            validateDuration,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// validateStorageDriver accepts "memory", "file" or "sqlite".
func validateStorageDriver(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case StorageMemory, StorageFile, StorageSQLite:
		return true
	default:
		return false
	}
}

// validateUnauthorizedPolicy accepts "ignore" or "logout" in any case.
func validateUnauthorizedPolicy(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case "ignore", "logout":
		return true
	default:
		return false
	}
}

// validateTraceOutput validates "stdout" or "file://<absolute-path>".
func validateTraceOutput(fl validator.FieldLevel) bool {
	output := fl.Field().String()

	if output == "stdout" {
		return true
	}

	if strings.HasPrefix(output, "file://") {
		path := strings.TrimPrefix(output, "file://")
		return path != "" && filepath.IsAbs(path)
	}

	return false
}

// validateDuration accepts anything time.ParseDuration accepts, non-negative.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d >= 0
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateStoragePath(); err != nil {
		return err
	}

	return nil
}

// validateStoragePath ensures persistent drivers have somewhere to write.
func (c *Config) validateStoragePath() error {
	if c.Storage.Driver == StorageMemory {
		return nil
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "storage_driver":
		return fmt.Sprintf("%s must be one of: memory file sqlite", field)
	case "unauthorized_policy":
		return fmt.Sprintf("%s must be 'ignore' or 'logout'", field)
	case "trace_output":
		return fmt.Sprintf("%s must be 'stdout' or 'file://<absolute-path>'", field)
	case "duration":
		return fmt.Sprintf("%s must be a non-negative duration (e.g. \"10s\")", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
