package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/studiobot/core/telegram"
	"github.com/m3rciful/studiobot/core/telegram/callbacks"
	"github.com/m3rciful/studiobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	Observer Observer
}

// CallbackRoute returns a handler that routes every button press through the
// registry by its unique key. Known presses are acknowledged before the
// handler runs so the client stops its spinner; unknown ones are left for
// the fallback to answer with a notice.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	sum := summary{observer: opts.Observer}
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key := callbacks.CallbackKey(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{
			slog.String("cb_key", key),
			slog.Int("payload_bytes", len(callbacks.CallbackPayload(c))),
		}

		cbHandler, ok := reg.GetCallback(key)
		if ok && cbHandler != nil {
			_ = c.Respond()
			return sum.handle(c, name, start, func() error {
				return cbHandler(c)
			}, extras...)
		}

		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		extras = append(extras, slog.String("reason", "not_found"))
		return sum.handle(c, "callback.not_found", start, func() error {
			if fallback == nil {
				return c.Respond()
			}
			return fallback(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
