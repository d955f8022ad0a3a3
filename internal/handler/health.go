package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/model"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports degraded when the session store is unreachable.
func Healthz(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil {
			if err := store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, model.StatusResponse{Status: "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
	}
}
