package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// SourceError represents a Vaultwarden API failure. These are fatal for the
// current evaluation cycle; the scheduler shell decides whether to retry on
// the next tick.
type SourceError struct {
	Op         string // e.g. "token", "list_ciphers", "profile"
	StatusCode int
	Err        error
}

func (e SourceError) Error() string {
	msg := fmt.Sprintf("vaultwarden %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// DeliveryError represents a notification delivery failure after the retry
// budget was exhausted, or a non-retryable provider error.
type DeliveryError struct {
	Recipient string
	Attempts  int
	Err       error
}

func (e DeliveryError) Error() string {
	msg := fmt.Sprintf("notification delivery to %q failed", e.Recipient)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e DeliveryError) Unwrap() error {
	return e.Err
}

// IsSourceError reports whether err is (or wraps) a SourceError.
func IsSourceError(err error) bool {
	var se SourceError
	return errors.As(err, &se)
}

// IsDeliveryError reports whether err is (or wraps) a DeliveryError.
func IsDeliveryError(err error) bool {
	var de DeliveryError
	return errors.As(err, &de)
}
