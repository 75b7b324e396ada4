package api

import (
	"context"
	"net/http"
	"time"

	"triagecast/internal/triage"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// Runner is the prediction pipeline as the API consumes it.
type Runner interface {
	Predict(ctx context.Context, req triage.Request) (map[string][]triage.IntervalPrediction, error)
}

// Server exposes the prediction pipeline over HTTP.
type Server struct {
	echo     *echo.Echo
	pipeline Runner
}

// NewServer wires the routes and middleware.
func NewServer(pipeline Runner) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger)

	s := &Server{echo: e, pipeline: pipeline}
	e.GET("/healthz", s.health)
	e.POST("/v1/clinics/:clinic_id/predictions", s.predict)
	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request through the global zerolog logger.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		log.Info().
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Int("status", c.Response().Status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
		return err
	}
}
