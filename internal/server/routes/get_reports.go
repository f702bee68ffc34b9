package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/sciradar/internal/server/middleware"
	"github.com/OFFIS-RIT/sciradar/pkg/analysis"
	"github.com/OFFIS-RIT/sciradar/pkg/store"

	"github.com/labstack/echo/v4"
)

type networkParams struct {
	Dataset string `param:"dataset" validate:"required,excludesall=/\\"`
	Network string `param:"network" validate:"required,oneof=authorship co_occurrence co_citation"`
}

// GetReportHandler returns the stored analysis report of a dataset and
// network type.
func GetReportHandler(c echo.Context) error {
	params := new(networkParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	report, err := app.Reports.GetReport(c.Request().Context(), params.Dataset, params.Network)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Report not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, report)
}

// GetReportSchemaHandler returns the JSON schema of an analysis report.
func GetReportSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, analysis.ReportSchema())
}
