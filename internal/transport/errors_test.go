package transport

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSent},
		{"gone sentinel", fmt.Errorf("send: %w", ErrDestinationGone), OutcomeGone},
		{"forbidden sentinel", fmt.Errorf("send: %w", ErrForbidden), OutcomeForbidden},
		{"rate limit typed", fmt.Errorf("send: %w", &RateLimitError{RetryAfter: time.Second}), OutcomeRateLimited},
		{"kicked text", errors.New("telegram: Forbidden: bot was kicked from the group chat (403)"), OutcomeGone},
		{"blocked text", errors.New("Forbidden: BOT WAS BLOCKED by the user"), OutcomeGone},
		{"chat not found", errors.New("Bad Request: chat not found"), OutcomeGone},
		{"no rights", errors.New("Bad Request: have no rights to send a message"), OutcomeForbidden},
		{"too many requests", errors.New("Too Many Requests: retry after 7"), OutcomeRateLimited},
		{"other", errors.New("connection reset by peer"), OutcomeFailed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v)=%q want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrap: %w", &RateLimitError{RetryAfter: 5 * time.Second})
	if got := RetryAfter(err); got != 5*time.Second {
		t.Fatalf("RetryAfter=%v want 5s", got)
	}
	if got := RetryAfter(errors.New("x")); got != 0 {
		t.Fatalf("RetryAfter=%v want 0", got)
	}
}
