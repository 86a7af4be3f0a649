package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"paygate/internal/payment/model"
	"paygate/internal/shared/response"
)

// Recovery turns a handler panic into the standard error envelope. The
// panic value is logged, never echoed to the caller - callback payloads
// reach these handlers unauthenticated.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("request_id", c.GetString("request_id")).
					Str("path", c.Request.URL.Path).
					Interface("error", err).
					Msg("Panic recovered")

				response.ErrorResponse(c, http.StatusInternalServerError,
					model.ErrCodeInternalError, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
