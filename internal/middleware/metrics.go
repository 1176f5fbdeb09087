package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics records every request against its route template, so
// /channel/:username counts as one series. A panicking handler is counted as
// a 500 and the panic is passed on to the recovering logger.
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				obs.ObserveRequest(c.Request.Method, c.FullPath(), http.StatusInternalServerError, time.Since(start))
				panic(r)
			}
			obs.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
		}()
		c.Next()
	}
}
