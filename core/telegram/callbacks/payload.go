package callbacks

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ErrEmptyPayload is returned when a button carries no payload.
var ErrEmptyPayload = errors.New("callbacks: empty payload")

// PayloadName returns the payload as a trimmed, non-empty string.
func PayloadName(c tele.Context) (string, error) {
	p := strings.TrimSpace(CallbackPayload(c))
	if p == "" {
		return "", ErrEmptyPayload
	}
	return p, nil
}
