package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/i474232898/weather-dashboard/internal/history"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// WeatherLookup is the part of weather.Service the routes depend on.
type WeatherLookup interface {
	GetWeatherForCity(ctx context.Context, city string) ([]weather.Record, error)
}

type handler struct {
	weather WeatherLookup
	history history.Store
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// RegisterRoutes wires the weather and history handlers into router.
// m may be nil.
func RegisterRoutes(router fiber.Router, service WeatherLookup, store history.Store, m *metrics.Metrics, log zerolog.Logger) {
	h := &handler{
		weather: service,
		history: store,
		metrics: m,
		log:     log.With().Str("component", "http").Logger(),
	}

	router.Post("/", h.lookup)
	router.Get("/history", h.listHistory)
	// The id is optional in the pattern so a missing id reaches the
	// handler and is rejected with 400.
	router.Delete("/history/:id?", h.removeHistory)
}

// weatherRequest is the POST body.
type weatherRequest struct {
	CityName string `json:"cityName" form:"cityName" validate:"required"`
}

func (h *handler) lookup(c *fiber.Ctx) error {
	var req weatherRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.CityName = strings.TrimSpace(req.CityName)
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "City name is required")
	}

	start := time.Now()
	records, err := h.weather.GetWeatherForCity(c.UserContext(), req.CityName)
	if err != nil {
		h.metrics.ObserveLookup(lookupOutcome(err), time.Since(start))
		h.log.Error().Err(err).Str("city", req.CityName).Msg("weather lookup failed")
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	h.metrics.ObserveLookup(metrics.OutcomeSuccess, time.Since(start))

	// A failed history write does not fail the lookup.
	if _, err := h.history.Record(req.CityName); err != nil {
		h.metrics.IncHistoryWriteFailures()
		h.log.Error().Err(err).Str("city", req.CityName).Msg("failed to record search history")
	}

	return c.JSON(records)
}

func (h *handler) listHistory(c *fiber.Ctx) error {
	entries := h.history.List()
	h.metrics.SetHistoryEntries(len(entries))
	return c.JSON(entries)
}

// removeRequest holds the path parameters for history deletion.
type removeRequest struct {
	ID string `validate:"required"`
}

func (h *handler) removeHistory(c *fiber.Ctx) error {
	req := removeRequest{ID: strings.TrimSpace(c.Params("id"))}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "City ID is required")
	}

	if err := h.history.Remove(req.ID); err != nil {
		h.metrics.IncHistoryWriteFailures()
		h.log.Error().Err(err).Str("id", req.ID).Msg("failed to remove search history entry")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to remove city from history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "City removed from search history",
	})
}

func lookupOutcome(err error) string {
	var lookupErr *weather.LookupError
	if errors.As(err, &lookupErr) {
		return metrics.OutcomeLookupError
	}
	return metrics.OutcomeTransportError
}

// ErrorHandler renders every error as {success:false, error:<message>}.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Debug().Err(err).Str("path", c.Path()).Int("status", code).Msg("request failed")
		}
		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
}
