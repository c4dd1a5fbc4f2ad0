package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMetricsAddr = ":9100"

// newOpsRouter serves the worker's /metrics and /healthz. The worker has no
// business HTTP surface, only the scrape and probe endpoints.
func newOpsRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func newOpsServer(addr string) *http.Server {
	if addr == "" {
		addr = defaultMetricsAddr
	}
	return &http.Server{
		Addr:    addr,
		Handler: newOpsRouter(),
	}
}
