package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrDestinationGone means the chat will never accept messages again
	// (bot kicked or blocked, chat deleted, user deactivated).
	ErrDestinationGone = errors.New("destination gone")
	// ErrForbidden means the bot is still a member but may not post.
	ErrForbidden = errors.New("forbidden")
)

// RateLimitError is returned when the platform asks the caller to back off.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeGone        Outcome = "gone"
	OutcomeForbidden   Outcome = "forbidden"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)

var gonePhrases = []string{
	"bot was kicked",
	"bot was blocked",
	"chat not found",
	"user is deactivated",
	"bot is not a member",
	"group chat was upgraded",
	"bot can't initiate conversation",
	"peer_id_invalid",
}

var forbiddenPhrases = []string{
	"not enough rights",
	"have no rights",
	"need administrator rights",
	"chat_write_forbidden",
}

var rateLimitPhrases = []string{
	"too many requests",
	"retry after",
	"flood",
}

// Classify maps a send error to a delivery outcome. Typed errors win; the
// message text is matched case-insensitively as a fallback so errors from
// adapters that do not map their failures still classify.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSent
	}
	var rl *RateLimitError
	switch {
	case errors.As(err, &rl):
		return OutcomeRateLimited
	case errors.Is(err, ErrDestinationGone):
		return OutcomeGone
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	}

	msg := strings.ToLower(err.Error())
	for _, p := range gonePhrases {
		if strings.Contains(msg, p) {
			return OutcomeGone
		}
	}
	for _, p := range forbiddenPhrases {
		if strings.Contains(msg, p) {
			return OutcomeForbidden
		}
	}
	for _, p := range rateLimitPhrases {
		if strings.Contains(msg, p) {
			return OutcomeRateLimited
		}
	}
	return OutcomeFailed
}

// RetryAfter returns the back-off hint carried by err, or 0.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
