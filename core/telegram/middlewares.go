package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/studiobot/core/config"
	"github.com/m3rciful/studiobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareHooks are the user-facing replies of the shared chain.
type MiddlewareHooks struct {
	// OnLimited answers an update dropped by the rate limiter.
	OnLimited tele.HandlerFunc
	// OnRejected answers an update from someone other than the operator.
	OnRejected tele.HandlerFunc
}

// DefaultMiddlewares builds the shared middleware chain: panic recovery,
// optional rate limiting, the operator check and update logging.
func DefaultMiddlewares(cfg *coreconfig.Config, hooks MiddlewareHooks) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					Exclude:   ex,
					OnLimited: hooks.OnLimited,
				}),
			})
		}
		if cfg.Telegram.AdminID != 0 {
			mws = append(mws, Middleware{
				Name: "admin_only",
				Use: middleware.AdminOnlyMiddleware(middleware.AdminOptions{
					AdminID:  cfg.Telegram.AdminID,
					OnReject: hooks.OnRejected,
				}),
			})
		}
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)

	return mws
}
