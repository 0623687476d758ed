package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newEchoHandler(host Host, reg *prometheus.Registry) http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, host.StatusView())
	})
	e.GET("/healthz", func(c echo.Context) error {
		view := host.StatusView()
		code := http.StatusOK
		if !view.Ready || view.ShuttingDown {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]any{"ready": view.Ready, "shutting_down": view.ShuttingDown})
	})
	e.POST("/shutdown", func(c echo.Context) error {
		host.RequestShutdown("control-api")
		return c.JSON(http.StatusAccepted, map[string]any{"ok": true})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return e
}
