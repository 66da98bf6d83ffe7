package muffins

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantKind     ErrorKind
		wantSentinel error
		wantCode     string
		wantMessage  string
		wantCredits  float64
	}{
		{
			name:         "unauthorized with body",
			status:       http.StatusUnauthorized,
			body:         `{"error":"Invalid API key","code":"INVALID_KEY"}`,
			wantKind:     KindAuthentication,
			wantSentinel: ErrAuthentication,
			wantCode:     "INVALID_KEY",
			wantMessage:  "Invalid API key",
		},
		{
			name:         "forbidden defaults",
			status:       http.StatusForbidden,
			body:         "",
			wantKind:     KindAuthentication,
			wantSentinel: ErrAuthentication,
			wantCode:     "AUTHENTICATION_ERROR",
			wantMessage:  "Authentication failed",
		},
		{
			name:         "payment required with balance",
			status:       http.StatusPaymentRequired,
			body:         `{"error":"Not enough credits","creditsRemaining":3}`,
			wantKind:     KindCredit,
			wantSentinel: ErrInsufficientCredits,
			wantCode:     "INSUFFICIENT_CREDITS",
			wantMessage:  "Not enough credits",
			wantCredits:  3,
		},
		{
			name:         "payment required defaults",
			status:       http.StatusPaymentRequired,
			body:         `{}`,
			wantKind:     KindCredit,
			wantSentinel: ErrInsufficientCredits,
			wantCode:     "INSUFFICIENT_CREDITS",
			wantMessage:  "Insufficient credits",
		},
		{
			name:         "too many requests",
			status:       http.StatusTooManyRequests,
			body:         `{"message":"slow down"}`,
			wantKind:     KindRateLimit,
			wantSentinel: ErrRateLimit,
			wantCode:     "RATE_LIMITED",
			wantMessage:  "API Error (429): slow down",
		},
		{
			name:         "server error prefers error field",
			status:       http.StatusInternalServerError,
			body:         `{"error":"boom","message":"details"}`,
			wantKind:     KindAPI,
			wantSentinel: ErrAPI,
			wantMessage:  "API Error (500): boom",
		},
		{
			name:         "bad request falls back to message",
			status:       http.StatusBadRequest,
			body:         `{"message":"model not found","code":"BAD_MODEL"}`,
			wantKind:     KindAPI,
			wantSentinel: ErrAPI,
			wantCode:     "BAD_MODEL",
			wantMessage:  "API Error (400): model not found",
		},
		{
			name:         "non json body",
			status:       http.StatusBadGateway,
			body:         "upstream unavailable\n",
			wantKind:     KindAPI,
			wantSentinel: ErrAPI,
			wantMessage:  "API Error (502): upstream unavailable",
		},
		{
			name:         "empty body",
			status:       http.StatusNotFound,
			wantKind:     KindAPI,
			wantSentinel: ErrAPI,
			wantMessage:  "API Error (404): Unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(tt.status, []byte(tt.body))

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("MapHTTPError() = %T, want *APIError", err)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", apiErr.Kind, tt.wantKind)
			}
			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantSentinel)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if apiErr.CreditsRemaining != tt.wantCredits {
				t.Errorf("CreditsRemaining = %v, want %v", apiErr.CreditsRemaining, tt.wantCredits)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := MapHTTPError(http.StatusUnauthorized, nil)
	if got := err.Error(); !strings.Contains(got, "401") || !strings.Contains(got, "AUTHENTICATION_ERROR") {
		t.Errorf("Error() = %q, want status and code", got)
	}

	err = MapHTTPError(http.StatusInternalServerError, []byte(`{"error":"boom"}`))
	if got := err.Error(); got != "API Error (500): boom" {
		t.Errorf("Error() = %q", got)
	}
}
