package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/rain-outlook/internal/store"
	"github.com/i474232898/rain-outlook/internal/weather"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, defaultLocation string) {
	v1 := app.Group("/api/v1")

	v1.Get("/locations", func(c *fiber.Ctx) error {
		locs, err := service.Locations()
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{"locations": locs})
	})

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		var req forecastQuery
		if err := req.bind(c, defaultLocation); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		prediction, err := service.Predict(req.Location, req.Date)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(prediction)
	})

	v1.Get("/backtest", func(c *fiber.Ctx) error {
		var req backtestQuery
		if err := req.bind(c, defaultLocation); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Backtest(c.UserContext(), req.Location, req.From, req.To)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(report)
	})

	v1.Post("/estimate", func(c *fiber.Ctx) error {
		var req estimateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		forecast, err := service.EstimateRecords(req.Location, req.History, req.Anchor)
		if err != nil {
			if errors.Is(err, weather.ErrDuplicateDate) || errors.Is(err, weather.ErrInvalidRecord) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return toHTTPError(err)
		}
		return c.JSON(forecast)
	})
}

// toHTTPError maps domain errors onto HTTP statuses.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no history for requested location")
	case weather.IsInsufficientData(err):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute forecast")
	}
}

// forecastQuery holds query parameters for the forecast endpoint.
type forecastQuery struct {
	Location string `validate:"required"`
	// Date is optional; zero means the latest recorded day.
	Date time.Time
}

func (q *forecastQuery) bind(c *fiber.Ctx, defaultLocation string) error {
	q.Location = c.Query("location", defaultLocation)

	if s := c.Query("date"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return err
		}
		q.Date = d
	}
	return nil
}

// backtestQuery holds query parameters for the backtest endpoint.
type backtestQuery struct {
	Location string    `validate:"required"`
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (q *backtestQuery) bind(c *fiber.Ctx, defaultLocation string) error {
	q.Location = c.Query("location", defaultLocation)

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseDate(fromStr)
	if err != nil {
		return err
	}
	to, err := parseDate(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return nil
}

// estimateRequest carries caller-owned history for an ad-hoc estimate.
type estimateRequest struct {
	Location string                `json:"location"`
	History  []weather.DailyRecord `json:"history" validate:"required,min=1,dive"`
	Anchor   weather.DailyRecord   `json:"anchor"`
}

// parseDate accepts a calendar day or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, errors.New("invalid date format; use YYYY-MM-DD or RFC3339")
}
