package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Messages shared by the server handlers and the SDK.
const (
	MsgValidationFailed      = "Validation failed"
	MsgUserExists            = "User already exists"
	MsgPasswordsDoNotMatch   = "Passwords do not match"
	MsgInvalidCredentials    = "Invalid email or password"
	MsgAccountDeactivated    = "User account has been deactivated"
	MsgCurrentPasswordWrong  = "Current password is incorrect"
	MsgServerError           = "Server error"
	MsgLoggedOut             = "Logged out successfully"
	MsgPasswordChanged       = "Password updated successfully"
	MsgNetworkError          = "Network error, please try again"
	MsgUnexpectedServerReply = "Unexpected response from server"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is a failed call to the auth service, decoded from the
// {success:false, message, errors} envelope.
type APIError struct {
	// StatusCode is the HTTP status, or 0 when the request never completed.
	StatusCode int

	Message string
	Errors  []FieldError
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("auth: %d %s", e.StatusCode, e.Message)
	}
	paths := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		paths[i] = fe.Path
	}
	return fmt.Sprintf("auth: %d %s (%s)", e.StatusCode, e.Message, strings.Join(paths, ", "))
}

// IsUnauthorized reports whether the server rejected the session.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// AsAPIError unwraps err into an *APIError. Transport failures become an
// APIError with StatusCode 0.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return &APIError{StatusCode: http.StatusBadRequest, Message: MsgValidationFailed, Errors: verrs}
	}
	return &APIError{Message: MsgNetworkError}
}

// parseErrorResponse decodes a non-2xx response into an *APIError. Bodies
// that are not the JSON envelope fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Errors:     env.Errors,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
