package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/sciradar/internal/server/middleware"
	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/graph"
	"github.com/OFFIS-RIT/sciradar/pkg/snapshot"
	"github.com/OFFIS-RIT/sciradar/pkg/store"
	"github.com/OFFIS-RIT/sciradar/pkg/window"

	"github.com/labstack/echo/v4"
)

// GetGraphHandler renders a cached window snapshot as a nodes/links view.
// Query parameters: start and end as "2016-1", min_weight (default 1).
func GetGraphHandler(c echo.Context) error {
	type getGraphParams struct {
		Dataset   string `param:"dataset" validate:"required,excludesall=/\\"`
		Network   string `param:"network" validate:"required,oneof=authorship co_occurrence co_citation"`
		Start     string `query:"start" validate:"required"`
		End       string `query:"end" validate:"required"`
		MinWeight int    `query:"min_weight" validate:"min=0"`
	}

	params := new(getGraphParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	start, err := window.ParseMonth(params.Start)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	end, err := window.ParseMonth(params.End)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if params.MinWeight == 0 {
		params.MinWeight = 1
	}

	app := c.(*middleware.AppContext).App
	key := snapshot.Key(params.Dataset, common.NetworkType(params.Network), window.Range{Start: start, End: end})
	g, err := app.Snapshots.Get(c.Request().Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Network not found"})
	}
	var corrupt *snapshot.CacheCorruptionError
	if errors.As(err, &corrupt) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "Stored network is corrupt"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, graph.BuildView(g, params.MinWeight))
}
