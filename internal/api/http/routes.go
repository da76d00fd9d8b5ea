package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"weathernow/internal/derive"
	"weathernow/internal/meteo"
	"weathernow/internal/search"
	"weathernow/internal/session"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. The presentation
// layer drives a session's controller through the POST callbacks and observes
// it through GET state; it never mutates state directly.
func RegisterRoutes(app *fiber.App, sessions *session.Store) {
	v1 := app.Group("/api/v1")

	v1.Post("/sessions", func(c *fiber.Ctx) error {
		id := sessions.Create()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"sessionId": id,
		})
	})

	v1.Delete("/sessions/:id", func(c *fiber.Ctx) error {
		if err := sessions.Delete(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Get("/sessions/:id/state", func(c *fiber.Ctx) error {
		ctrl, err := controllerFor(c, sessions)
		if err != nil {
			return err
		}

		snap := ctrl.Snapshot()
		resp := stateResponse{State: snap}
		if snap.Forecast != nil {
			resp.View = buildView(snap.Forecast)
		}
		return c.JSON(resp)
	})

	v1.Post("/sessions/:id/query", func(c *fiber.Ctx) error {
		ctrl, err := controllerFor(c, sessions)
		if err != nil {
			return err
		}

		var req queryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctrl.SetQuery(req.Text)
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Post("/sessions/:id/submit", func(c *fiber.Ctx) error {
		ctrl, err := controllerFor(c, sessions)
		if err != nil {
			return err
		}

		ctrl.Submit()
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Post("/sessions/:id/suggestion", func(c *fiber.Ctx) error {
		ctrl, err := controllerFor(c, sessions)
		if err != nil {
			return err
		}

		req, err := parseSelection(c)
		if err != nil {
			return err
		}
		if err := ctrl.SelectSuggestion(req.Index); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Post("/sessions/:id/recent", func(c *fiber.Ctx) error {
		ctrl, err := controllerFor(c, sessions)
		if err != nil {
			return err
		}

		req, err := parseSelection(c)
		if err != nil {
			return err
		}
		if err := ctrl.SelectRecent(req.Index); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// queryRequest carries a text-changed event.
type queryRequest struct {
	Text string `json:"text" validate:"max=256"`
}

// selectionRequest carries a suggestion or recent-search click by index.
type selectionRequest struct {
	Index int `json:"index" validate:"gte=0"`
}

// stateResponse is the observable session state plus the derived display
// block, present iff a forecast is present.
type stateResponse struct {
	search.State
	View *viewBlock `json:"view,omitempty"`
}

// viewBlock is everything the presentation layer renders without computing:
// pictogram, labels, and color tokens derived from the raw forecast.
type viewBlock struct {
	Icon             string             `json:"icon"`
	Description      string             `json:"description"`
	CompassLabel     string             `json:"compassLabel"`
	Gradient         string             `json:"gradient"`
	BackgroundColors string             `json:"backgroundColors"`
	AccentColor      string             `json:"accentColor"`
	TemperatureColor string             `json:"temperatureColor"`
	ThemeLabel       string             `json:"themeLabel"`
	NextHourRain     *derive.RainChance `json:"nextHourRain,omitempty"`
}

func buildView(f *meteo.Forecast) *viewBlock {
	v := &viewBlock{
		Icon:             derive.Icon(f.Current.WeatherCode),
		Description:      derive.Description(f.Current.WeatherCode),
		CompassLabel:     derive.CompassLabel(f.Current.WindDirection),
		Gradient:         derive.Gradient(f.Current.WeatherCode),
		BackgroundColors: derive.BackgroundColors(f.Current.WeatherCode),
		AccentColor:      derive.AccentColor(f.Current.Temperature),
		TemperatureColor: derive.TemperatureColor(f.Current.Temperature),
		ThemeLabel:       derive.ThemeLabel(f.Current.Temperature),
	}
	if rain, ok := derive.NextHourRainChance(f.Hourly, time.Now()); ok {
		v.NextHourRain = &rain
	}
	return v
}

func controllerFor(c *fiber.Ctx, sessions *session.Store) (*search.Controller, error) {
	ctrl, err := sessions.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to load session")
	}
	return ctrl, nil
}

func parseSelection(c *fiber.Ctx) (selectionRequest, error) {
	var req selectionRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return req, nil
}
