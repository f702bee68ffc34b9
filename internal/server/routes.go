package server

import (
	"github.com/OFFIS-RIT/sciradar/internal/server/middleware"
	"github.com/OFFIS-RIT/sciradar/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Job routes
	apiRoutes.POST("/jobs", routes.CreateJobHandler, middleware.AuthMiddleware)

	// Report routes
	apiRoutes.GET("/reports/schema", routes.GetReportSchemaHandler)
	apiRoutes.GET("/reports/:dataset/:network", routes.GetReportHandler)

	// Network view routes
	apiRoutes.GET("/graphs/:dataset/:network", routes.GetGraphHandler)
}
