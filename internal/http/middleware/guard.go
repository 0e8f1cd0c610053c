package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"siteadmin/internal/auth"
)

const (
	// SessionCookie carries the session token for browser clients.
	SessionCookie   = "session"
	SessionLocalKey = "session"
)

// SessionToken reads the token from the session cookie, then from a Bearer
// Authorization header.
func SessionToken(c *fiber.Ctx) string {
	if t := c.Cookies(SessionCookie); t != "" {
		return t
	}
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Guard lets a request through only once the session state is known and
// signed in. Browsers without a session are redirected to loginPath; other
// clients get 401. Nothing protected is rendered before the first state.
func Guard(svc auth.Service, loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithCancel(c.UserContext())
		defer cancel()

		sess := <-svc.Observe(ctx, SessionToken(c))
		if sess == nil {
			c.Set(fiber.HeaderCacheControl, "no-store")
			if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML) {
				return c.Redirect(loginPath, fiber.StatusSeeOther)
			}
			return fiber.ErrUnauthorized
		}

		c.Locals(SessionLocalKey, sess)
		return c.Next()
	}
}

// CurrentSession returns the session stored by Guard, or nil.
func CurrentSession(c *fiber.Ctx) *auth.Session {
	s, _ := c.Locals(SessionLocalKey).(*auth.Session)
	return s
}
