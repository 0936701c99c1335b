package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"wrapped timeout", fmt.Errorf("request timeout: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"invalid API key sentinel", fmt.Errorf("auth: %w", ErrInvalidAPIKey), ErrorCategoryInvalidAPIKey},
		{"401", &StatusError{StatusCode: 401}, ErrorCategoryInvalidAPIKey},
		{"bad location 400", &StatusError{StatusCode: 400, Body: "Bad API Request:Invalid location parameter value."}, ErrorCategoryLocationNotFound},
		{"429", &StatusError{StatusCode: 429}, ErrorCategoryRateLimited},
		{"503", &StatusError{StatusCode: 503}, ErrorCategoryUpstream5xx},
		{"other status", &StatusError{StatusCode: 302}, ErrorCategoryUnknown},
		{"connection refused", errors.New("http request failed: dial tcp: connection refused"), ErrorCategoryNetwork},
		{"parse", errors.New("parse response: invalid character"), ErrorCategoryParsing},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusError_Is(t *testing.T) {
	err := fmt.Errorf("fetch: %w", &StatusError{StatusCode: 403, Body: "forbidden"})
	if !errors.Is(err, ErrInvalidAPIKey) || !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("403 should match ErrInvalidAPIKey and ErrUnexpectedStatus")
	}
	if errors.Is(&StatusError{StatusCode: 500}, ErrInvalidAPIKey) {
		t.Errorf("500 should not match ErrInvalidAPIKey")
	}
}
