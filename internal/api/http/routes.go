package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/wetter/internal/query"
	"github.com/i474232898/wetter/internal/store"
	"github.com/i474232898/wetter/internal/update"
	"github.com/i474232898/wetter/internal/weather"
)

var validate = validator.New()

// Service is what the handlers need from the application.
type Service interface {
	Store() *store.Store
	Query() *query.Engine
	Now() time.Time
	Update(ctx context.Context, historical bool) ([]update.Result, error)
}

type windowFunc func(e *query.Engine, t query.Table, at time.Time) (store.Frame, error)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service) {
	v1 := app.Group("/api/v1")
	m := v1.Group("/measurements")

	windows := map[string]windowFunc{
		"latest": (*query.Engine).LatestDatapoint,
		"week":   (*query.Engine).LastWeek,
		"month":  (*query.Engine).LastMonth,
		"year":   (*query.Engine).LastYear,
	}
	for name, fn := range windows {
		name, fn := name, fn
		m.Get("/"+name, func(c *fiber.Ctx) error {
			at, err := parseAt(c, service)
			if err != nil {
				return err
			}
			rows, err := fn(service.Query(), service.Store(), at)
			if err != nil {
				return toFiberError(err)
			}
			return c.JSON(newWindowResponse(name, at, rows))
		})
	}

	m.Get("/months/:month", func(c *fiber.Ctx) error {
		var req monthQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		at, err := parseAt(c, service)
		if err != nil {
			return err
		}
		rows, err := service.Query().SpecificMonth(service.Store(), at, time.Month(req.Month))
		if err != nil {
			return toFiberError(err)
		}

		resp := newWindowResponse(time.Month(req.Month).String(), at, rows)
		resp.Days = weather.DailyAverages(rows, at.Location())
		return c.JSON(resp)
	})

	v1.Post("/update", func(c *fiber.Ctx) error {
		historical := c.QueryBool("historical", false)
		results, err := service.Update(c.UserContext(), historical)
		if err != nil {
			return toFiberError(err)
		}

		st := service.Store()
		return c.JSON(fiber.Map{
			"runs":     results,
			"size":     st.Size(),
			"location": st.Location(),
			"newest":   st.MaxTimestamp(),
		})
	})
}

type windowResponse struct {
	Window       string                `json:"window"`
	At           time.Time             `json:"at"`
	Count        int                   `json:"count"`
	Average      *weather.Summary      `json:"average,omitempty"`
	Days         []weather.Summary     `json:"days,omitempty"`
	Measurements []weather.Measurement `json:"measurements"`
}

func newWindowResponse(window string, at time.Time, rows store.Frame) windowResponse {
	resp := windowResponse{
		Window:       window,
		At:           at,
		Count:        len(rows),
		Measurements: rows.Rows(),
	}
	if len(rows) > 0 {
		avg := rows.Mean()
		resp.Average = &avg
	}
	return resp
}

// monthQuery holds the path parameter of the month endpoint.
type monthQuery struct {
	Month int `validate:"min=1,max=12"`
}

func (m *monthQuery) bind(c *fiber.Ctx) error {
	n, err := strconv.Atoi(c.Params("month"))
	if err != nil {
		return errors.New("month must be a number between 1 and 12")
	}
	m.Month = n
	return nil
}

// parseAt reads the reference instant from ?at=, defaulting to now.
func parseAt(c *fiber.Ctx, service Service) (time.Time, error) {
	s := c.Query("at")
	if s == "" {
		return service.Now(), nil
	}
	ts, err := parseTime(s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return ts, nil
}

// parseTime accepts a timestamp with an explicit offset or Unix seconds.
func parseTime(s string) (time.Time, error) {
	// An unescaped '+' in a query string arrives as a space.
	s = strings.Replace(s, " ", "+", 1)
	if ts, err := weather.ParseInstant(s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 with an offset or unix seconds")
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, weather.ErrInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrAPI):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
