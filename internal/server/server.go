// Package server exposes the optimizer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/amgaina/CoreCutter/internal/config"
	"github.com/amgaina/CoreCutter/internal/engine"
	"github.com/amgaina/CoreCutter/internal/model"
	"github.com/amgaina/CoreCutter/internal/project"
	"github.com/amgaina/CoreCutter/internal/telemetry"
)

// Server serves the optimization API.
type Server struct {
	app         *fiber.App
	cfg         *config.Config
	settings    model.SolverSettings
	defaultKerf decimal.Decimal
	metrics     *telemetry.Metrics
	logger      zerolog.Logger
	validate    *validator.Validate
}

// New builds the fiber app and its routes.
func New(cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics) (*Server, error) {
	kerf, err := cfg.Engine.Kerf()
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics(config.MetricsConfig{})
	}

	s := &Server{
		cfg:         cfg,
		settings:    cfg.Engine.Settings(),
		defaultKerf: kerf,
		metrics:     metrics,
		logger:      logger.With().Str("component", "server").Logger(),
		validate:    validator.New(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "CoreCutter",
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.requestLogger)

	app.Get("/healthz", s.handleHealth)
	if metrics.Enabled() {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	api := app.Group("/api/v1")
	api.Get("/solvers", s.handleSolvers)
	api.Post("/optimize", s.handleOptimize)
	api.Post("/compare", s.handleCompare)
	api.Post("/estimate", s.handleEstimate)

	s.app = app
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.cfg.Server.Address()).Msg("Starting HTTP server")
		errCh <- s.app.Listen(s.cfg.Server.Address())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}

// requestLogger attaches a request-scoped logger to the user context and logs
// each request once it completes.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	reqID, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	logger := s.logger.With().Str("request_id", reqID).Logger()
	c.SetUserContext(logger.WithContext(c.UserContext()))

	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	ev := logger.Info()
	if status >= fiber.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("Request handled")
	return err
}

// handleError renders errors that escape the handlers.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error(), Index: -1})
}

// OptimizeRequest is the body of /optimize, /compare and /estimate. Lengths
// are decimal literals, given as JSON numbers or strings.
type OptimizeRequest struct {
	MasterLength json.Number          `json:"master_length" validate:"required,numeric"`
	Kerf         json.Number          `json:"kerf" validate:"omitempty,numeric"`
	Demands      []project.JobDemand  `json:"demands" validate:"dive"`
	Solver       string               `json:"solver,omitempty"`
	TimeLimitMS  int                  `json:"time_limit_ms,omitempty" validate:"gte=0"`
	MaxNodes     int                  `json:"max_nodes,omitempty"`
	Options      *EstimateRequestOpts `json:"estimate,omitempty"`
}

// EstimateRequestOpts carries the purchasing inputs of /estimate.
type EstimateRequestOpts struct {
	WastePercent json.Number `json:"waste_percent" validate:"omitempty,numeric"`
	PricePerCore json.Number `json:"price_per_core" validate:"omitempty,numeric"`
}

// OptimizeResponse is the body of a successful /optimize.
type OptimizeResponse struct {
	RequestID  string          `json:"request_id"`
	Result     model.Result    `json:"result"`
	Cores      []model.Core    `json:"cores"`
	Efficiency decimal.Decimal `json:"efficiency"`
	Stats      engine.Stats    `json:"stats"`
}

// ScenarioResponse is one row of a /compare response.
type ScenarioResponse struct {
	Name         string               `json:"name"`
	Config       model.Configuration  `json:"config"`
	Settings     model.SolverSettings `json:"settings"`
	CoresUsed    int                  `json:"cores_used"`
	TotalCuts    int                  `json:"total_cuts"`
	WastePercent decimal.Decimal      `json:"waste_percent"`
	Error        *ErrorResponse       `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string           `json:"error"`
	Kind  engine.ErrorKind `json:"kind,omitempty"`
	Index int              `json:"index"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleSolvers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"solvers": engine.SolverNames(),
		"default": s.settings.Solver,
	})
}

func (s *Server) handleOptimize(c *fiber.Ctx) error {
	req, cfg, demands, err := s.parse(c)
	if err != nil {
		return s.reject(c, err)
	}

	ctx := c.UserContext()
	opt := engine.New(s.requestSettings(req))
	result, stats, err := opt.OptimizeWithStats(ctx, cfg, demands)
	s.metrics.RecordOptimization(stats, result.CoresRequired, err)
	if err != nil {
		return s.reject(c, err)
	}

	return c.JSON(OptimizeResponse{
		RequestID:  requestID(c),
		Result:     result,
		Cores:      result.Cores(),
		Efficiency: result.Efficiency(),
		Stats:      stats,
	})
}

func (s *Server) handleCompare(c *fiber.Ctx) error {
	req, cfg, demands, err := s.parse(c)
	if err != nil {
		return s.reject(c, err)
	}

	scenarios := engine.BuildDefaultScenarios(cfg, s.requestSettings(req))
	results := engine.CompareScenarios(c.UserContext(), scenarios, demands)

	rows := make([]ScenarioResponse, 0, len(results))
	for _, r := range results {
		row := ScenarioResponse{
			Name:         r.Scenario.Name,
			Config:       r.Scenario.Config,
			Settings:     r.Scenario.Settings,
			CoresUsed:    r.CoresUsed,
			TotalCuts:    r.TotalCuts,
			WastePercent: r.WastePercent,
		}
		if r.Err != nil {
			e := errorResponse(r.Err)
			row.Error = &e
		}
		rows = append(rows, row)
	}
	return c.JSON(fiber.Map{
		"request_id": requestID(c),
		"scenarios":  rows,
	})
}

func (s *Server) handleEstimate(c *fiber.Ctx) error {
	req, cfg, demands, err := s.parse(c)
	if err != nil {
		return s.reject(c, err)
	}

	waste, price := decimal.Zero, decimal.Zero
	if req.Options != nil {
		if req.Options.WastePercent != "" {
			waste, err = decimal.NewFromString(req.Options.WastePercent.String())
			if err != nil {
				return s.reject(c, fiber.NewError(fiber.StatusBadRequest, "invalid waste_percent"))
			}
		}
		if req.Options.PricePerCore != "" {
			price, err = decimal.NewFromString(req.Options.PricePerCore.String())
			if err != nil {
				return s.reject(c, fiber.NewError(fiber.StatusBadRequest, "invalid price_per_core"))
			}
		}
	}

	// Reject what the optimizer would reject.
	if _, err := engine.Normalize(cfg, demands); err != nil {
		return s.reject(c, err)
	}
	return c.JSON(model.CalculatePurchaseEstimate(cfg, demands, waste, price))
}

// parse decodes and validates the request body.
func (s *Server) parse(c *fiber.Ctx) (OptimizeRequest, model.Configuration, []model.DemandLine, error) {
	var req OptimizeRequest
	if err := c.BodyParser(&req); err != nil {
		return req, model.Configuration{}, nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return req, model.Configuration{}, nil, &engine.Error{
			Kind:    engine.KindInvalidConfiguration,
			Message: err.Error(),
			Index:   -1,
		}
	}
	cfg, demands, err := project.ParseRequest(req.MasterLength, req.Kerf, req.Demands, s.defaultKerf)
	if err != nil {
		return req, model.Configuration{}, nil, &engine.Error{
			Kind:    engine.KindInvalidConfiguration,
			Message: err.Error(),
			Index:   -1,
		}
	}
	return req, cfg, demands, nil
}

func (s *Server) requestSettings(req OptimizeRequest) model.SolverSettings {
	settings := s.settings
	if req.Solver != "" {
		settings.Solver = req.Solver
	}
	if req.TimeLimitMS > 0 {
		limit := time.Duration(req.TimeLimitMS) * time.Millisecond
		if settings.TimeLimit == 0 || limit < settings.TimeLimit {
			settings.TimeLimit = limit
		}
	}
	if req.MaxNodes > 0 {
		settings.MaxNodes = req.MaxNodes
	}
	return settings
}

// reject writes err with the status its kind maps to.
func (s *Server) reject(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message, Index: -1})
	}
	return c.Status(StatusFor(err)).JSON(errorResponse(err))
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case engine.IsInputError(err):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrSolverUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), Index: -1}
	var ee *engine.Error
	if errors.As(err, &ee) {
		resp.Kind = ee.Kind
		resp.Index = ee.Index
	}
	return resp
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}
