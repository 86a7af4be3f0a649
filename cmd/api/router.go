package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"paygate/internal/shared/middleware"
	"paygate/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", healthCheckHandler(c))

		setupPaymentRoutes(v1, c)
		setupCallbackRoutes(v1, c)
	}

	return router
}

// ========================================
// PAYMENT ROUTES
// ========================================
func setupPaymentRoutes(v1 *gin.RouterGroup, c *container.Container) {
	payments := v1.Group("/payments")
	{
		payments.POST("", c.PaymentHandler.CreatePayment)
		payments.GET("/:transaction_id", c.PaymentHandler.GetPaymentStatus)
		payments.POST("/:transaction_id/verify", c.PaymentHandler.VerifyPayment)
		payments.POST("/:transaction_id/refund", c.PaymentHandler.RefundPayment)
	}
}

// ========================================
// CALLBACK ROUTES
// ========================================
// Gateways report through four channels: three browser redirects and
// the server-to-server IPN. Some gateways redirect with GET.
func setupCallbackRoutes(v1 *gin.RouterGroup, c *container.Container) {
	callbacks := v1.Group("/callbacks/:gateway")
	{
		callbacks.POST("/:kind", c.PaymentHandler.Callback)
		callbacks.GET("/:kind", c.PaymentHandler.Callback)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
		}

		// Check database
		dbStatus := "ok"
		if appCtx.DB == nil || appCtx.DB.Pool == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.DB.HealthCheck(ctx); err != nil {
				dbStatus = fmt.Sprintf("error: %v", err)
				health["status"] = "degraded"
			} else if stats, err := appCtx.DB.Stats(); err == nil {
				health["database_pool"] = stats
			}
		}

		// Check redis (non-critical, dedup fast path only)
		redisStatus := "ok"
		if appCtx.Redis == nil {
			redisStatus = "disconnected"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.Redis.HealthCheck(ctx); err != nil {
				redisStatus = fmt.Sprintf("error: %v", err)
			}
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, health)
	}
}
