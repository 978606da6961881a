package middleware

import (
	"errors"

	"pizza-api/logger"
	"pizza-api/service"

	"github.com/gin-gonic/gin"
)

// AbortWithError writes err as {"message": ...} with the status of its kind.
// Internal failures are logged and reported with a generic message.
func AbortWithError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := kind.Status()
	msg := "internal server error"
	var se *service.Error
	if errors.As(err, &se) && kind != service.KindStorage && kind != service.KindUnknown {
		msg = se.Message
	}
	if status >= 500 {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
