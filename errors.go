package fbauth

import (
	"errors"
	"fmt"
)

// ErrorCode represents verifier error categories.
type ErrorCode string

const (
	ErrCodeMalformedToken       ErrorCode = "malformed_token"
	ErrCodeMissingKeyID         ErrorCode = "missing_key_id"
	ErrCodeUnknownSigningKey    ErrorCode = "unknown_signing_key"
	ErrCodeInvalidSignature     ErrorCode = "invalid_signature"
	ErrCodeIssuerMismatch       ErrorCode = "issuer_mismatch"
	ErrCodeAudienceMismatch     ErrorCode = "audience_mismatch"
	ErrCodeTokenExpired         ErrorCode = "token_expired"
	ErrCodeConfigurationMissing ErrorCode = "configuration_missing"
	ErrCodeKeysUnavailable      ErrorCode = "keys_unavailable"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeMalformedToken:       "Malformed token",
	ErrCodeMissingKeyID:         "Token header missing key identifier",
	ErrCodeUnknownSigningKey:    "Unknown signing key",
	ErrCodeInvalidSignature:     "Invalid token signature",
	ErrCodeIssuerMismatch:       "Token issuer mismatch",
	ErrCodeAudienceMismatch:     "Token audience mismatch",
	ErrCodeTokenExpired:         "Token expired",
	ErrCodeConfigurationMissing: "Verification keys are not configured",
	ErrCodeKeysUnavailable:      "Verification keys unavailable",
}

// Error wraps verifier errors with a stable code and message.
// Codes are meant for logs; HTTP boundaries should collapse them into a
// generic authentication failure.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}
