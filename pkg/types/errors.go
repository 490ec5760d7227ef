package types

import "errors"

// ConfigurationError is an author side problem, like a missing render
// template or a dimension that does not exist in the catalog. Not retried.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Message
}

// ValidationError rejects a request before any query runs.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "validation: " + e.Message + ": " + e.Err.Error()
	}
	return "validation: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
