package reporting

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Source produces a report for a scope. An empty scope selects the source's
// default.
type Source interface {
	Report(scope string) (Summary, error)
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	src Source
}

// NewHandler creates a new reporting handler.
func NewHandler(src Source) *Handler {
	return &Handler{src: src}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports")
	reportGroup.GET("", h.GetReport)
	reportGroup.GET("/export", h.ExportReport)
}

// GetReport returns the report summary as JSON.
func (h *Handler) GetReport(c echo.Context) error {
	summary, err := h.src.Report(c.QueryParam("scope"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// ExportReport returns the report as an xlsx workbook download.
func (h *Handler) ExportReport(c echo.Context) error {
	summary, err := h.src.Report(c.QueryParam("scope"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	data, err := ExportXLSX(summary)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("export failed: %v", err))
	}
	filename := fmt.Sprintf("bed-report-%s.xlsx", summary.GeneratedAt.Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}
