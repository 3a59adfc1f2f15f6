package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware returns a gin.HandlerFunc (middleware) that recovers from
// panics in downstream handlers. The panic is logged with the stack trace of
// the panicking goroutine and the request's correlation ID, and the client
// gets a generic 500 ErrorResponse if nothing was written yet.
//
// It must be registered after RequestLogger so that the logger still sees the
// 500 status once the panic has been handled.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		panic("RecoveryMiddleware requires a non-nil zap.Logger instance")
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// debug.Stack is taken inside the deferred call, so it still
				// shows the frames that panicked.
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("stacktrace", string(debug.Stack())),
					zap.String("request_id", c.GetString("requestID")),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)

				// A handler may have started the response before panicking;
				// writing again would trigger "multiple response.WriteHeader calls".
				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError, ErrorResponse{
						Error:   "Internal Server Error",
						Details: "The server encountered an unexpected condition which prevented it from fulfilling the request.",
					})
				}
				// No further handlers run for this request.
				c.Abort()
			}
		}()

		c.Next()
	}
}
