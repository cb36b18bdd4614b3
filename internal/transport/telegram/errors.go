package telegram

import (
	"errors"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"histobot/internal/transport"
)

var goneErrors = []error{
	tele.ErrBlockedByUser,
	tele.ErrKickedFromGroup,
	tele.ErrKickedFromSuperGroup,
	tele.ErrKickedFromChannel,
	tele.ErrNotStartedByUser,
	tele.ErrUserIsDeactivated,
	tele.ErrChatNotFound,
	tele.ErrGroupMigrated,
}

// mapError wraps telebot errors into the transport taxonomy. Unknown errors
// are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var fe tele.FloodError
	if errors.As(err, &fe) {
		return fmt.Errorf("telegram: %w", &transport.RateLimitError{RetryAfter: time.Duration(fe.RetryAfter) * time.Second})
	}
	var fp *tele.FloodError
	if errors.As(err, &fp) && fp != nil {
		return fmt.Errorf("telegram: %w", &transport.RateLimitError{RetryAfter: time.Duration(fp.RetryAfter) * time.Second})
	}
	for _, g := range goneErrors {
		if errors.Is(err, g) {
			return fmt.Errorf("%w: %v", transport.ErrDestinationGone, err)
		}
	}
	if errors.Is(err, tele.ErrNoRightsToSend) {
		return fmt.Errorf("%w: %v", transport.ErrForbidden, err)
	}
	return err
}
