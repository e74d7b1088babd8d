package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumatch/internal/services"
)

const localUserID = "user_id"

// RequireSession rejects requests without a valid session and stores the
// owning user id in the request locals.
func RequireSession(auth services.AuthService, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.Authenticate(c.UserContext(), sessionToken(c, cookieName))
		if err != nil {
			return err
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}
}

// sessionToken reads the session cookie, falling back to an Authorization: Bearer header.
func sessionToken(c *fiber.Ctx, cookieName string) string {
	if token := strings.TrimSpace(c.Cookies(cookieName)); token != "" {
		return token
	}

	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

func currentUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(localUserID).(string)
	return userID
}
