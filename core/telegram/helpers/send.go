package helpers

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/studiobot/core/logger"
	"github.com/m3rciful/studiobot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// Dispatcher returns the sender wired by SetDispatcher, if any.
func Dispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := Dispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("op", action),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func markupOpts(markup []*tele.ReplyMarkup) []any {
	if len(markup) == 0 || markup[0] == nil {
		return nil
	}
	return []any{markup[0]}
}

// SendText sends plain text to the current chat with an optional keyboard.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := markupOpts(markup)
	return sendAsync(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts...)
	})
}

// Show replaces the message a button was pressed on, or sends a new one when
// the update is not a callback or the edit fails.
func Show(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := markupOpts(markup)
	if c.Callback() == nil {
		return SendText(c, text, markup...)
	}
	return sendAsync(c, "edit.text", "editMessageText", func() error {
		err := c.EditOrSend(text, opts...)
		if err != nil && strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return err
	})
}
