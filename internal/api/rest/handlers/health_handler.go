package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck reports liveness and whether the database answers a ping.
func HealthCheck(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		database := "up"
		if db == nil {
			database = "unknown"
		} else if err := db.PingContext(ctx); err != nil {
			database = "down"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"database": database,
			"time":     time.Now().Format(time.RFC3339),
		})
	}
}
