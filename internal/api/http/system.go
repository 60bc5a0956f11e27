package httpapi

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-dashboard/internal/metrics"
)

// RegisterSystemRoutes adds /health and, when m is set, /metrics.
func RegisterSystemRoutes(app *fiber.App, name string, m *metrics.Metrics) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": name,
		})
	})

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}
}

// RegisterStatic serves the client bundle in dir and falls back to
// index.html for any other GET so client-side routes resolve. It must be
// registered after the API routes. It reports whether dir was usable.
func RegisterStatic(app *fiber.App, dir string) bool {
	if dir == "" {
		return false
	}
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return false
	}

	app.Static("/", dir)
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendFile(index)
	})
	return true
}
