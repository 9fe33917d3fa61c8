package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/noteshare-io/noteshare/internal/config"
	"github.com/noteshare-io/noteshare/internal/utils"
)

const sessionUserKey = "userID"

// NewSessionStore builds the server-side session store. Cross-origin
// deployments need Secure + SameSite=None for the cookie to be sent at all;
// everywhere else Lax is the right default. storage may be nil for the
// in-process default.
func NewSessionStore(cfg *config.Config, storage fiber.Storage) *session.Store {
	sameSite := "Lax"
	secure := false
	if cfg.CookieCrossOrigin {
		sameSite = "None"
		secure = true
	}

	return session.New(session.Config{
		Expiration:     7 * 24 * time.Hour,
		CookieDomain:   cfg.CookieDomain,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: sameSite,
		Storage:        storage,
	})
}

// RequireAuth rejects requests without an authenticated session and places
// the user id in c.Locals("userID") for downstream handlers.
func RequireAuth(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Not authenticated")
		}

		userID, ok := sess.Get(sessionUserKey).(string)
		if !ok || userID == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Not authenticated")
		}

		c.Locals(sessionUserKey, userID)
		return c.Next()
	}
}

// OptionalAuth places the user id in context when a session exists but lets
// anonymous requests through.
func OptionalAuth(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err == nil {
			if userID, ok := sess.Get(sessionUserKey).(string); ok && userID != "" {
				c.Locals(sessionUserKey, userID)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id set by RequireAuth/OptionalAuth
func UserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(sessionUserKey).(string)
	return userID
}

// LoginSession binds the session to the user id and saves the cookie
func LoginSession(c *fiber.Ctx, store *session.Store, userID string) error {
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	sess.Set(sessionUserKey, userID)
	return sess.Save()
}

// DestroySession invalidates the current session
func DestroySession(c *fiber.Ctx, store *session.Store) error {
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
