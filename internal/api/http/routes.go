package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/balloon-tracker/internal/store"
	"github.com/i474232898/balloon-tracker/internal/telemetry"
)

const noDataMessage = "No data provided"

var validate = validator.New()

// ErrorHandler renders every error as a JSON body with the matching status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *telemetry.Service) {
	app.Get("/analyze", func(c *fiber.Ctx) error {
		var q analyzeQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary := service.Analyze(c.UserContext(), q.Limit)
		return c.JSON(newAnalyzeResponse(summary))
	})

	app.Post("/analyze", func(c *fiber.Ctx) error {
		var q analyzeQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		body := c.Body()
		if telemetry.IsEmptyPayload(body) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": noDataMessage})
		}

		records, err := telemetry.ParseRecords(body)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		summary := service.AnalyzeRecords(c.UserContext(), records, q.Limit)
		return c.JSON(newAnalyzeResponse(summary))
	})

	v1 := app.Group("/api/v1/balloons")

	v1.Get("/latest", func(c *fiber.Ctx) error {
		summary, err := service.Latest()
		if err != nil {
			return latestError(err)
		}
		return c.JSON(summary)
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		var q analyzeQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(service.Analyze(c.UserContext(), q.Limit))
	})

	v1.Get("/map", func(c *fiber.Ctx) error {
		view, err := service.MapView()
		if err != nil {
			return latestError(err)
		}
		return c.JSON(view)
	})

	v1.Get("/:index/insight", func(c *fiber.Ctx) error {
		var p insightParams
		if err := p.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		insight, err := service.PointInsight(c.UserContext(), p.Index)
		if err != nil {
			if errors.Is(err, telemetry.ErrPointNotFound) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return latestError(err)
		}
		return c.JSON(insight)
	})
}

func latestError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "no balloon analysis available yet")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to load balloon analysis")
}

// analyzeResponse is the /analyze contract. balloon_data is omitted when
// nothing survived normalization.
type analyzeResponse struct {
	MeanAltitude telemetry.MeanAltitude `json:"mean_altitude"`
	AISummary    string                 `json:"ai_summary"`
	BalloonData  []telemetry.Point      `json:"balloon_data,omitempty"`
}

func newAnalyzeResponse(s telemetry.FlightSummary) analyzeResponse {
	return analyzeResponse{
		MeanAltitude: s.MeanAltitude,
		AISummary:    s.AISummary,
		BalloonData:  s.Points,
	}
}

// analyzeQuery holds query parameters shared by the analysis endpoints.
type analyzeQuery struct {
	Limit int `query:"limit" validate:"min=0,max=10000"`
}

func (q *analyzeQuery) bind(c *fiber.Ctx) error {
	if err := c.QueryParser(q); err != nil {
		return errors.New("limit must be a non-negative integer")
	}
	return validate.Struct(q)
}

// insightParams holds path parameters for the insight endpoint.
type insightParams struct {
	Index int `validate:"min=0"`
}

func (p *insightParams) bind(c *fiber.Ctx) error {
	idx, err := c.ParamsInt("index")
	if err != nil {
		return errors.New("index must be an integer")
	}
	p.Index = idx
	return validate.Struct(p)
}
