package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusOfNil(t *testing.T) {
	t.Parallel()
	if got := StatusOf(nil); got != 0 {
		t.Errorf("StatusOf(nil) = %d, want 0", got)
	}
}

func TestStatusOfAPIError(t *testing.T) {
	t.Parallel()

	err := &APIError{Status: 429, Message: "slow down"}
	if got := StatusOf(err); got != 429 {
		t.Errorf("StatusOf = %d, want 429", got)
	}

	wrapped := fmt.Errorf("complete: %w", err)
	if got := StatusOf(wrapped); got != 429 {
		t.Errorf("StatusOf(wrapped) = %d, want 429", got)
	}
}

func TestStatusOfTextScan(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"numeric 401", errors.New("request failed with status 401"), 401},
		{"unauthorized", errors.New("Unauthorized: invalid token"), 401},
		{"invalid api key", errors.New("invalid API key provided"), 401},
		{"forbidden", errors.New("403 Forbidden"), 403},
		{"numeric 429", errors.New("got 429 from upstream"), 429},
		{"rate limit", errors.New("rate limit exceeded, retry later"), 429},
		{"quota", errors.New("you have exceeded your quota"), 429},
		{"unclassified", errors.New("connection reset by peer"), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := StatusOf(tc.err); got != tc.want {
				t.Errorf("StatusOf(%q) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestAPIErrorString(t *testing.T) {
	t.Parallel()

	withStatus := &APIError{Status: 401, Message: "bad key"}
	if got := withStatus.Error(); got != "llm: status 401: bad key" {
		t.Errorf("Error() = %q", got)
	}

	noStatus := &APIError{Message: "unreachable"}
	if got := noStatus.Error(); got != "llm: unreachable" {
		t.Errorf("Error() = %q", got)
	}
}
