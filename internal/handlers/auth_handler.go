package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumatch/internal/models"
	"alfredoptarigan/resumatch/internal/repositories"
	"alfredoptarigan/resumatch/internal/services"
)

type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	auth   services.AuthService
	cookie CookieConfig
}

func NewAuthHandler(auth services.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "session_token"
	}
	return &AuthHandler{auth: auth, cookie: cookie}
}

func (h *AuthHandler) HandleCreateSession(c *fiber.Ctx) error {
	var req models.SessionExchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return NewAppError(fiber.StatusBadRequest, "invalid request body", err)
	}

	user, session, err := h.auth.ExchangeSession(c.UserContext(), req.SessionID)
	if err != nil {
		return err
	}

	c.Cookie(h.sessionCookie(session.SessionToken, session.ExpiresAt, int(h.cookie.TTL.Seconds())))
	return c.JSON(user)
}

func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.auth.CurrentUser(c.UserContext(), currentUserID(c))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewAppError(fiber.StatusNotFound, "User not found", err)
		}
		return err
	}
	return c.JSON(user)
}

func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	h.auth.Logout(c.UserContext(), sessionToken(c, h.cookie.Name))

	c.Cookie(h.sessionCookie("", time.Unix(0, 0), -1))
	return c.JSON(models.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time, maxAge int) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if h.cookie.Secure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return &fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: sameSite,
	}
}
