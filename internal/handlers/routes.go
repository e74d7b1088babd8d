package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Routes struct {
	Analysis    *AnalysisHandler
	Auth        *AuthHandler
	Contact     *ContactHandler
	RequireAuth fiber.Handler

	// HealthCheck reports database reachability; nil skips the check.
	HealthCheck func(ctx context.Context) error
}

// Register mounts every endpoint under /api plus the service banner at /.
func (r Routes) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", r.handleHealth)

	auth := api.Group("/auth")
	auth.Post("/session", r.Auth.HandleCreateSession)
	auth.Get("/me", r.RequireAuth, r.Auth.HandleMe)
	auth.Post("/logout", r.Auth.HandleLogout)

	api.Post("/contact", r.Contact.HandleSubmit)

	api.Post("/analyze", r.RequireAuth, r.Analysis.HandleAnalyze)
	api.Get("/analyses", r.RequireAuth, r.Analysis.HandleList)
	api.Get("/analyses/:id", r.RequireAuth, r.Analysis.HandleGet)
	api.Delete("/analyses/:id", r.RequireAuth, r.Analysis.HandleDelete)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "ResuMatch API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/auth/session",
				"GET /api/auth/me",
				"POST /api/auth/logout",
				"POST /api/contact",
				"POST /api/analyze",
				"GET /api/analyses",
				"GET /api/analyses/:id",
				"DELETE /api/analyses/:id",
			},
		})
	})
}

func (r Routes) handleHealth(c *fiber.Ctx) error {
	status := fiber.Map{"status": "healthy", "time": time.Now().UTC()}

	if r.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := r.HealthCheck(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		status["database"] = "ok"
	}

	return c.JSON(status)
}
