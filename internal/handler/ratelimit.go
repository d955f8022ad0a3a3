package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/log"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/model"
)

// RateLimit caps credential-endpoint calls per client IP per minute, backed
// by Redis so the limit holds across replicas. A nil client disables it.
// Redis being down must not lock everyone out, so limiter errors fail open.
func RateLimit(rdb *redis.Client, perMin int) gin.HandlerFunc {
	if rdb == nil || perMin <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("rl:%s:%s", c.FullPath(), c.ClientIP())

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.L().Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(c.Request.Context(), key, time.Minute)
		}

		if count > int64(perMin) {
			c.JSON(http.StatusTooManyRequests, model.ErrorResponse{Error: "too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
