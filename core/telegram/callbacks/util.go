package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// MaxDataBytes is Telegram's limit on callback_data.
const MaxDataBytes = 64

// ParseCallbackData parses Telebot's \f<unique>|<payload> encoding.
// Returns unique and payload (may be empty).
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns cb.Unique if present; otherwise parses from Data.
func CallbackKey(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	k, _ := ParseCallbackData(cb)
	return k
}

// CallbackPayload returns the payload of the pressed button.
func CallbackPayload(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	// Telebot strips the unique prefix only for buttons registered with
	// bot.Handle; generic OnCallback delivery keeps the raw encoding.
	if cb.Unique != "" && !strings.HasPrefix(cb.Data, "\f") {
		return cb.Data
	}
	_, payload := ParseCallbackData(cb)
	return payload
}

// Fits reports whether a button with this unique and payload stays within
// the callback_data limit.
func Fits(unique, payload string) bool {
	return len("\f")+len(unique)+len("|")+len(payload) <= MaxDataBytes
}
