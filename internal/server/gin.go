package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newGinHandler(host Host, reg *prometheus.Registry) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())

	g.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, host.StatusView())
	})
	g.GET("/healthz", func(c *gin.Context) {
		view := host.StatusView()
		code := http.StatusOK
		if !view.Ready || view.ShuttingDown {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"ready": view.Ready, "shutting_down": view.ShuttingDown})
	})
	g.POST("/shutdown", func(c *gin.Context) {
		host.RequestShutdown("control-api")
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})
	g.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return g
}
