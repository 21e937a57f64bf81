// Package errors provides typed errors for tokun.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies the type of error.
type ErrorCode string

const (
	ErrAPIKeyMissing          ErrorCode = "API_KEY_MISSING"
	ErrProvider               ErrorCode = "PROVIDER_ERROR"
	ErrInvalidResponseFormat  ErrorCode = "INVALID_RESPONSE_FORMAT"
	ErrProviderNotImplemented ErrorCode = "PROVIDER_NOT_IMPLEMENTED"
	ErrConfigNotFound         ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigInvalid          ErrorCode = "CONFIG_INVALID"
	ErrStoreFailed            ErrorCode = "STORE_FAILED"
)

// DefaultProviderMessage is used when a backend fails without saying why.
const DefaultProviderMessage = "error optimizing prompt"

// TokunError represents a typed error with a user-friendly hint.
type TokunError struct {
	Code    ErrorCode
	Message string
	Hint    string
	Cause   error
}

func (e *TokunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TokunError) Unwrap() error {
	return e.Cause
}

// HintText returns the hint shown under the error in the CLI.
func (e *TokunError) HintText() string {
	return e.Hint
}

// New creates a new TokunError.
func New(code ErrorCode, message, hint string) *TokunError {
	return &TokunError{
		Code:    code,
		Message: message,
		Hint:    hint,
	}
}

// Wrap creates a new TokunError wrapping an existing error.
func Wrap(code ErrorCode, message, hint string, cause error) *TokunError {
	return &TokunError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first TokunError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var te *TokunError
	if stderrors.As(err, &te) {
		return te.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a TokunError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// APIKeyMissing is returned before any network call when the active provider has no key.
func APIKeyMissing(provider string) *TokunError {
	return &TokunError{
		Code:    ErrAPIKeyMissing,
		Message: "API key not set",
		Hint:    fmt.Sprintf("Set your %s API key with `tokun config set-key`", provider),
	}
}

// ProviderFailed returns an error for a backend that answered with an error or could not be reached.
// An empty message falls back to DefaultProviderMessage.
func ProviderFailed(message string, cause error) *TokunError {
	if message == "" {
		message = DefaultProviderMessage
	}
	return &TokunError{
		Code:    ErrProvider,
		Message: message,
		Hint:    "Check your API key and provider settings, or use --fallback for a local rewrite",
		Cause:   cause,
	}
}

// InvalidResponseFormat returns an error for a reachable backend whose reply could not be parsed.
func InvalidResponseFormat(provider string, cause error) *TokunError {
	return &TokunError{
		Code:    ErrInvalidResponseFormat,
		Message: fmt.Sprintf("invalid response format from %s", provider),
		Hint:    "The provider replied, but not with the expected JSON object",
		Cause:   cause,
	}
}

// ProviderNotImplemented returns an error for providers that only have a placeholder adapter.
func ProviderNotImplemented(provider string) *TokunError {
	return &TokunError{
		Code:    ErrProviderNotImplemented,
		Message: fmt.Sprintf("%s integration is not implemented yet", provider),
		Hint:    "Switch providers with `tokun config use openai` or `tokun config use perplexity`",
	}
}

// ConfigNotFound returns an error for missing config file.
func ConfigNotFound(path string) *TokunError {
	return &TokunError{
		Code:    ErrConfigNotFound,
		Message: fmt.Sprintf("config file not found: %s", path),
		Hint:    "Run `tokun config show` to see the defaults in effect",
	}
}

// ConfigInvalid returns an error for invalid config.
func ConfigInvalid(reason string) *TokunError {
	return &TokunError{
		Code:    ErrConfigInvalid,
		Message: fmt.Sprintf("invalid config: %s", reason),
		Hint:    "Check your config file at ~/.config/tokun/config.yaml",
	}
}

// StoreFailed returns an error for settings or history persistence failures.
func StoreFailed(op string, cause error) *TokunError {
	return &TokunError{
		Code:    ErrStoreFailed,
		Message: fmt.Sprintf("store %s failed", op),
		Hint:    "Check permissions on ~/.local/share/tokun",
		Cause:   cause,
	}
}
