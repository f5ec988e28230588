package zujuansdk

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Error kinds
// ============================================================================

// Each kind calls for a different corrective action: a ParseError means the
// remote markup changed and the code needs updating, an AuthError means the
// delegated login was rejected and should be retried, and a LogoutError means
// the stored session expired and the code must be scanned again.
var (
	ErrParse  = errors.New("zujuan: unexpected page structure")
	ErrAuth   = errors.New("zujuan: authentication rejected")
	ErrLogout = errors.New("zujuan: session logged out")
)

// ParseError is returned when an expected markup region, attribute or query
// field is missing from a remote response.
type ParseError struct {
	// What names the missing piece, e.g. `div.wrp_code img[src]`.
	What string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s not found", e.What)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// AuthError is returned when the remote service rejects the ticket exchange.
type AuthError struct {
	StatusCode int
	Reason     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s (HTTP %d)", e.Reason, e.StatusCode)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// LogoutError is returned when a session no longer authenticates.
type LogoutError struct {
	Reason string
}

func (e *LogoutError) Error() string {
	return "logout error: " + e.Reason
}

func (e *LogoutError) Is(target error) bool { return target == ErrLogout }

// StatusError reports an HTTP status the SDK did not expect. It is neither
// a parse, auth nor logout failure and is passed through to the caller.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected HTTP %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// ============================================================================
// Predefined errors
// ============================================================================

// NewDelegatedLoginError is the AuthError returned by a failed ticket exchange.
func NewDelegatedLoginError(statusCode int) *AuthError {
	return &AuthError{StatusCode: statusCode, Reason: "delegated login failed"}
}

// NewSessionInvalidError is the LogoutError returned when a stored session
// fails validation or a page redirects back to the login form.
func NewSessionInvalidError() *LogoutError {
	return &LogoutError{Reason: "session invalid, re-authentication required"}
}
