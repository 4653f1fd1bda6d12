package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weatherpipe/weatherpipe/internal/pipeline"
	"github.com/weatherpipe/weatherpipe/internal/store"
	"github.com/weatherpipe/weatherpipe/internal/weather"
)

var validate = validator.New()

// RunTrigger starts a pipeline run for the given target date and blocks
// until it completes.
type RunTrigger func(ctx context.Context, targetDate time.Time) (*pipeline.Outcome, error)

// RegisterRoutes wires the admin HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, history *store.RunHistory, trigger RunTrigger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/runs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"runs": history.List()})
	})

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		latest, err := history.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNoRuns) {
				return fiber.NewError(fiber.StatusNotFound, "no pipeline runs recorded yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read run history")
		}
		return c.JSON(latest)
	})

	v1.Post("/runs", func(c *fiber.Ctx) error {
		targetDate, err := parseRunRequest(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		outcome, err := trigger(c.Context(), targetDate)
		if err != nil {
			if errors.Is(err, pipeline.ErrAllCitiesFailed) {
				return c.Status(fiber.StatusBadGateway).JSON(outcome)
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(outcome)
	})
}

// runRequest holds the optional body of a manual run trigger.
type runRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// parseRunRequest returns the requested target date, defaulting to
// yesterday UTC when the body omits one.
func parseRunRequest(c *fiber.Ctx) (time.Time, error) {
	var req runRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return time.Time{}, err
		}
	}

	if err := validate.Struct(req); err != nil {
		return time.Time{}, err
	}

	if req.Date == "" {
		return weather.YesterdayUTC(time.Now()), nil
	}
	return time.Parse(weather.DateLayout, req.Date)
}
