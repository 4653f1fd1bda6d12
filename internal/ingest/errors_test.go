package ingest

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/sony/gobreaker"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransientClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &APIError{StatusCode: 429}, true},
		{"internal server error", &APIError{StatusCode: 500}, true},
		{"bad gateway", &APIError{StatusCode: 502}, true},
		{"service unavailable", &APIError{StatusCode: 503}, true},
		{"gateway timeout", &APIError{StatusCode: 504}, true},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"forbidden", &APIError{StatusCode: 403}, false},
		{"not found", &APIError{StatusCode: 404}, false},
		{"teapot", &APIError{StatusCode: 418}, false},
		{"structural failure", &APIError{Message: "response missing 'hourly' key"}, false},
		{"wrapped api error", fmt.Errorf("fetch accra: %w", &APIError{StatusCode: 503}), true},
		{"network timeout", timeoutErr{}, true},
		{"url error", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"circuit open", gobreaker.ErrOpenState, false},
		{"circuit half-open limit", gobreaker.ErrTooManyRequests, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
