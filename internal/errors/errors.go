package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when no user matches the given email or id.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when signup hits the unique email index.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned when a session token fails verification.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUnauthenticated is returned when a protected route has no resolved user.
	ErrUnauthenticated = errors.New("authentication failed")
	// ErrSigningUnavailable is returned when the token signing secret is absent.
	ErrSigningUnavailable = errors.New("token signing secret not configured")
	// ErrMailDelivery is returned when the outbound mail dispatch is rejected.
	ErrMailDelivery = errors.New("mail delivery failed")
	// ErrOAuthExchange is returned when the provider returns no access token.
	ErrOAuthExchange = errors.New("oauth code exchange failed")
	// ErrUpstream is returned when the provider profile fetch fails.
	ErrUpstream = errors.New("upstream provider request failed")
)

// ValidationError carries a user-facing message for malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidation builds a ValidationError with a formatted message.
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
