package middleware

import (
	"github.com/OFFIS-RIT/sciradar/pkg/snapshot"
	"github.com/OFFIS-RIT/sciradar/pkg/store"

	"github.com/labstack/echo/v4"
)

// Publisher enqueues a message body on a named queue.
type Publisher func(queueName string, data []byte) error

type App struct {
	Publish   Publisher
	Reports   store.ReportStore
	Snapshots *snapshot.Cache
	APIKey    string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
