package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"siteadmin/internal/auth"
	"siteadmin/internal/http/middleware"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type sessionResponse struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"token,omitempty"`
}

// Login signs the administrator in and sets the HttpOnly session cookie.
func Login(svc auth.Service, secureCookie bool, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		sess, err := svc.SignIn(c.UserContext(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				return writeError(c, fiber.StatusUnauthorized, "INVALID_CREDENTIAL", "Invalid email or password.")
			}
			log.Error("sign in failed", zap.String("request_id", requestIDFromCtx(c)), zap.Error(err))
			return writeError(c, fiber.StatusServiceUnavailable, "SIGN_IN_FAILED", "Failed to sign in. Please check your connection.")
		}

		c.Cookie(&fiber.Cookie{
			Name:     middleware.SessionCookie,
			Value:    sess.Token,
			Path:     "/",
			Expires:  sess.ExpiresAt,
			HTTPOnly: true,
			Secure:   secureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.JSON(sessionResponse{UID: sess.UID, Email: sess.Email, ExpiresAt: sess.ExpiresAt, Token: sess.Token})
	}
}

// Logout revokes the session and clears the cookie. It succeeds without a session.
func Logout(svc auth.Service, secureCookie bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := middleware.SessionToken(c); token != "" {
			if err := svc.SignOut(c.UserContext(), token); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SIGN_OUT_FAILED", "failed to sign out")
			}
		}
		c.Cookie(&fiber.Cookie{
			Name:     middleware.SessionCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   secureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CurrentSession returns the session attached by the guard.
func CurrentSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := middleware.CurrentSession(c)
		if sess == nil {
			return fiber.ErrUnauthorized
		}
		return c.JSON(sessionResponse{UID: sess.UID, Email: sess.Email, ExpiresAt: sess.ExpiresAt})
	}
}
