package domain

import "errors"

// AuthErrorKind tags the failure class of an authentication or
// authorisation error. The HTTP layer maps kinds to status codes.
type AuthErrorKind string

const (
	KindInvalidCredentials AuthErrorKind = "invalid_credentials"
	KindUnauthenticated    AuthErrorKind = "unauthenticated"
	KindTokenExpired       AuthErrorKind = "token_expired"
	KindTokenInvalid       AuthErrorKind = "token_invalid"
	KindUserInactive       AuthErrorKind = "user_inactive"
	KindForbidden          AuthErrorKind = "forbidden"
	KindTooManyAttempts    AuthErrorKind = "too_many_attempts"
)

var kindMessages = map[AuthErrorKind]string{
	KindInvalidCredentials: "invalid credentials",
	KindUnauthenticated:    "authentication required",
	KindTokenExpired:       "token has expired",
	KindTokenInvalid:       "invalid token",
	KindUserInactive:       "user account is inactive",
	KindForbidden:          "access forbidden",
	KindTooManyAttempts:    "too many login attempts",
}

// AuthError is the single error type produced by the auth core.
// Two AuthErrors match under errors.Is when their kinds are equal, so
// callers compare against the Err* sentinels below.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

// Error returns the client-safe message for the kind. The wrapped cause is
// only reachable through Unwrap.
func (e *AuthError) Error() string {
	if msg, ok := kindMessages[e.Kind]; ok {
		return msg
	}
	return string(e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// NewAuthError wraps cause under kind.
func NewAuthError(kind AuthErrorKind, cause error) *AuthError {
	return &AuthError{Kind: kind, Err: cause}
}

// KindOf returns the kind of err if it is an AuthError.
func KindOf(err error) (AuthErrorKind, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

var (
	ErrInvalidCredentials = &AuthError{Kind: KindInvalidCredentials}
	ErrUnauthenticated    = &AuthError{Kind: KindUnauthenticated}
	ErrTokenExpired       = &AuthError{Kind: KindTokenExpired}
	ErrTokenInvalid       = &AuthError{Kind: KindTokenInvalid}
	ErrUserInactive       = &AuthError{Kind: KindUserInactive}
	ErrForbidden          = &AuthError{Kind: KindForbidden}
	ErrTooManyAttempts    = &AuthError{Kind: KindTooManyAttempts}
)

// Store-level errors.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrPositionNotFound = errors.New("position not found")
)
