package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether the sender of c is the configured admin.
// An unset AdminID admits nobody.
func (o AdminOptions) IsAdmin(c tele.Context) bool {
	user := c.Sender()
	return o.AdminID != 0 && user != nil && user.ID == o.AdminID
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !opts.IsAdmin(c) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
