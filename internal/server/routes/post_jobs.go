package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/sciradar/internal/queue"
	"github.com/OFFIS-RIT/sciradar/internal/server/middleware"
	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateJobHandler enqueues one network job per requested network type.
func CreateJobHandler(c echo.Context) error {
	type createJobBody struct {
		Dataset    string   `json:"dataset" validate:"required,excludesall=/\\"`
		Networks   []string `json:"networks" validate:"omitempty,dive,oneof=authorship co_occurrence co_citation"`
		StartYear  int      `json:"start_year" validate:"required,min=1"`
		StartMonth int      `json:"start_month" validate:"required,min=1,max=12"`
		EndYear    int      `json:"end_year" validate:"required,min=1"`
		EndMonth   int      `json:"end_month" validate:"required,min=1,max=12"`
		UseCache   *bool    `json:"use_cache"`
	}

	// Networks lists the queued network types. On a failed publish it holds
	// the ones queued before the failure.
	type createJobResponse struct {
		Message       string   `json:"message"`
		CorrelationID string   `json:"correlation_id,omitempty"`
		Networks      []string `json:"networks,omitempty"`
	}

	data := new(createJobBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createJobResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createJobResponse{Message: "Invalid request body"})
	}

	networks := data.Networks
	if len(networks) == 0 {
		for _, n := range common.NetworkTypes {
			networks = append(networks, string(n))
		}
	}
	useCache := true
	if data.UseCache != nil {
		useCache = *data.UseCache
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createJobResponse{Message: "Internal server error"})
	}

	// all messages are validated before any is published
	bodies := make([][]byte, 0, len(networks))
	for _, n := range networks {
		msg := queue.NetworkJobMsg{
			CorrelationID: correlationID,
			Dataset:       data.Dataset,
			Network:       n,
			StartYear:     data.StartYear,
			StartMonth:    data.StartMonth,
			EndYear:       data.EndYear,
			EndMonth:      data.EndMonth,
			UseCache:      useCache,
		}
		if _, err := msg.Request(); err != nil {
			return c.JSON(http.StatusBadRequest, createJobResponse{Message: err.Error()})
		}
		body, err := json.Marshal(msg)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, createJobResponse{Message: "Internal server error"})
		}
		bodies = append(bodies, body)
	}

	app := c.(*middleware.AppContext).App
	for i, body := range bodies {
		if err := app.Publish(queue.NetworkQueue, body); err != nil {
			logger.Error("[Server] Failed to enqueue job", "correlation_id", correlationID, "network", networks[i], "err", err)
			return c.JSON(http.StatusInternalServerError, createJobResponse{
				Message:       "Failed to enqueue job",
				CorrelationID: correlationID,
				Networks:      networks[:i],
			})
		}
	}

	return c.JSON(http.StatusAccepted, createJobResponse{
		Message:       "Job queued",
		CorrelationID: correlationID,
		Networks:      networks,
	})
}
