package narrative

import "fmt"

// APIError is a structured error response from the narrative provider.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		if e.Code != "" {
			return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
		}
		return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}

// AuthError indicates an invalid or missing credential (401/403). Fatal, no retry.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// QuotaError indicates billing or quota exhaustion. Fatal, no retry.
type QuotaError struct{ *APIError }

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.APIError.Error())
}

// TransientError indicates a network failure, timeout, rate limit, or provider
// 5xx. Retried once with backoff before being surfaced.
type TransientError struct{ Err error }

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
