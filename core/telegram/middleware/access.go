package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how operator-only checks should behave.
type AdminOptions struct {
	// AdminID is the only user allowed through; 0 disables the check.
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the configured operator can invoke
// downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.AdminID == 0 {
			return next
		}
		return func(c tele.Context) error {
			if u := c.Sender(); u == nil || u.ID != opts.AdminID {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
