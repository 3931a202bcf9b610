package simulation

import (
	"errors"
	"net/http"

	"generational_accounting/pkg/core/assumption"
	"generational_accounting/pkg/core/cohort"
	"generational_accounting/pkg/core/pipeline"
	"generational_accounting/pkg/core/store"
	"generational_accounting/pkg/models"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	mgr            *pipeline.Manager
	defaultAgeStep int
}

func NewHandler(mgr *pipeline.Manager, defaultAgeStep int) *Handler {
	return &Handler{mgr: mgr, defaultAgeStep: defaultAgeStep}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	api := e.Group("/api/simulation")
	api.POST("/run", h.Run)
	api.GET("/:id", h.Get)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Run executes a simulation request. The rendered report is dropped unless
// ?report=true.
func (h *Handler) Run(c echo.Context) error {
	var req models.SimulationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.AgeStep == 0 {
		req.AgeStep = h.defaultAgeStep
	}

	resp, err := h.mgr.Run(c.Request().Context(), req)
	if err != nil {
		return c.JSON(statusFor(err), errorResponse{Error: err.Error()})
	}
	if c.QueryParam("report") != "true" {
		resp.Report = ""
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c echo.Context) error {
	summary, err := h.mgr.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(statusFor(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidRequest),
		errors.Is(err, assumption.ErrUnknownScenario),
		errors.Is(err, cohort.ErrColumnNotFound),
		errors.Is(err, pipeline.ErrNoColumnToValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
