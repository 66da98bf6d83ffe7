package muffins

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuthentication      = errors.New("authentication failed")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrRateLimit           = errors.New("rate limit exceeded")
	ErrAPI                 = errors.New("api error")

	ErrRequestFailed = errors.New("request failed")
	ErrRateLimited   = errors.New("request rate limited locally")
	ErrMissingAPIKey = errors.New("api key is required")
	ErrEmptyMessages = errors.New("messages must be a non-empty list")
)

const maxErrorBody = 8 << 10

type ErrorKind int

const (
	KindAPI ErrorKind = iota
	KindAuthentication
	KindCredit
	KindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindCredit:
		return "credit"
	case KindRateLimit:
		return "rate_limit"
	}
	return "api"
}

// APIError is returned for every non-2xx response. errors.Is matches it
// against the sentinel of its kind.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	// CreditsRemaining is only meaningful for KindCredit.
	CreditsRemaining float64
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindAuthentication, KindCredit:
		return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Code)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	switch e.Kind {
	case KindAuthentication:
		return ErrAuthentication
	case KindCredit:
		return ErrInsufficientCredits
	case KindRateLimit:
		return ErrRateLimit
	}
	return ErrAPI
}

type errorBody struct {
	Error            string   `json:"error"`
	Message          string   `json:"message"`
	Code             string   `json:"code"`
	CreditsRemaining *float64 `json:"creditsRemaining"`
}

// MapHTTPError converts a non-2xx response into an *APIError. It is shared by
// every resource so that status handling cannot drift between endpoints.
func MapHTTPError(statusCode int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		eb = errorBody{Message: strings.TrimSpace(string(body))}
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &APIError{
			Kind:       KindAuthentication,
			StatusCode: statusCode,
			Code:       firstNonEmpty(eb.Code, "AUTHENTICATION_ERROR"),
			Message:    firstNonEmpty(eb.Error, "Authentication failed"),
		}
	case http.StatusPaymentRequired:
		apiErr := &APIError{
			Kind:       KindCredit,
			StatusCode: statusCode,
			Code:       firstNonEmpty(eb.Code, "INSUFFICIENT_CREDITS"),
			Message:    firstNonEmpty(eb.Error, "Insufficient credits"),
		}
		if eb.CreditsRemaining != nil {
			apiErr.CreditsRemaining = *eb.CreditsRemaining
		}
		return apiErr
	case http.StatusTooManyRequests:
		return &APIError{
			Kind:       KindRateLimit,
			StatusCode: statusCode,
			Code:       firstNonEmpty(eb.Code, "RATE_LIMITED"),
			Message:    fmt.Sprintf("API Error (%d): %s", statusCode, firstNonEmpty(eb.Error, eb.Message, "Too many requests")),
		}
	default:
		return &APIError{
			Kind:       KindAPI,
			StatusCode: statusCode,
			Code:       eb.Code,
			Message:    fmt.Sprintf("API Error (%d): %s", statusCode, firstNonEmpty(eb.Error, eb.Message, "Unknown error")),
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
