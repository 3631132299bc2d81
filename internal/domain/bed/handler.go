package bed

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/bedtracker/internal/domain/clinical"
	"github.com/ehr/bedtracker/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/services", h.ListServices)

	api.GET("/beds", h.ListBeds)
	api.GET("/beds/:number", h.GetBed)
	api.POST("/admissions", h.Admit)
	api.POST("/beds/:number/discharge", h.Discharge)

	api.PUT("/beds/:number/chronic-disease", h.SetChronicDisease)
	api.POST("/beds/:number/notes", h.AddEvolutionNote)
	api.POST("/beds/:number/images", h.AddDiagnosticImage)
	api.POST("/beds/:number/exam-results", h.AddExamResult)
	api.POST("/beds/:number/medicines", h.AddMedicine)

	api.GET("/histories", h.ListHistories)
}

type dischargeRequest struct {
	DischargedAt time.Time `json:"discharged_at"`
}

type chronicRequest struct {
	ChronicDisease *bool `json:"chronic_disease"`
}

type entryRequest struct {
	Value string `json:"value"`
}

func (h *Handler) ListServices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Services())
}

func (h *Handler) ListBeds(c echo.Context) error {
	beds, err := h.svc.ListBeds(c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) GetBed(c echo.Context) error {
	number, err := bedNumber(c)
	if err != nil {
		return err
	}
	st, err := h.svc.GetBed(number)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Admit(c echo.Context) error {
	var req AdmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	st, err := h.svc.Admit(req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) Discharge(c echo.Context) error {
	number, err := bedNumber(c)
	if err != nil {
		return err
	}
	var req dischargeRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	released, err := h.svc.Discharge(number, req.DischargedAt)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, released)
}

func (h *Handler) SetChronicDisease(c echo.Context) error {
	number, err := bedNumber(c)
	if err != nil {
		return err
	}
	var req chronicRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ChronicDisease == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "chronic_disease is required")
	}
	if err := h.svc.SetChronicDisease(number, *req.ChronicDisease); err != nil {
		return httpError(err)
	}
	return h.respondBed(c, number)
}

func (h *Handler) AddEvolutionNote(c echo.Context) error {
	return h.addEntry(c, h.svc.AddEvolutionNote)
}

func (h *Handler) AddDiagnosticImage(c echo.Context) error {
	return h.addEntry(c, h.svc.AddDiagnosticImage)
}

func (h *Handler) AddExamResult(c echo.Context) error {
	return h.addEntry(c, h.svc.AddExamResult)
}

func (h *Handler) AddMedicine(c echo.Context) error {
	return h.addEntry(c, h.svc.AddMedicine)
}

func (h *Handler) addEntry(c echo.Context, add func(number int, value string) error) error {
	number, err := bedNumber(c)
	if err != nil {
		return err
	}
	var req entryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Value == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "value is required")
	}
	if err := add(number, req.Value); err != nil {
		return httpError(err)
	}
	return h.respondBed(c, number)
}

func (h *Handler) ListHistories(c echo.Context) error {
	pg := pagination.FromContext(c)
	histories, total, err := h.svc.ListHistories(c.QueryParam("scope"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(histories, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path, c.QueryParams()))
}

func (h *Handler) respondBed(c echo.Context, number int) error {
	st, err := h.svc.GetBed(number)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func bedNumber(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid bed number")
	}
	return n, nil
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrBedNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBedOccupied),
		errors.Is(err, ErrBedEmpty),
		errors.Is(err, ErrNoVacantBed),
		errors.Is(err, ErrHistoryInUse),
		errors.Is(err, clinical.ErrAlreadyDischarged):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
