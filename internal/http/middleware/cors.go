package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// localOrigins are the dev servers allowed when CORS_ALLOWED_ORIGINS is empty.
var localOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:5174",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:5174",
}

func CORS(origins []string) gin.HandlerFunc {
	return cors.New(corsConfig(origins))
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = localOrigins
	}
	return cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", headerIdempotencyKey, headerRequestID, headerTraceID},
		// clients read these to correlate and to back off
		ExposeHeaders:    []string{headerRequestID, headerTraceID, headerIdempotentReplay, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
