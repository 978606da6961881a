package handlers

import (
	"strconv"

	"pizza-api/middleware"
	"pizza-api/service"

	"github.com/gin-gonic/gin"
)

// Handler binds HTTP requests to the session, franchise and order services
type Handler struct {
	Sessions   *service.Sessions
	Franchises *service.Franchises
	Orders     *service.Orders
}

func New(sessions *service.Sessions, franchises *service.Franchises, orders *service.Orders) *Handler {
	return &Handler{Sessions: sessions, Franchises: franchises, Orders: orders}
}

// rejectBody answers a request whose JSON body could not be decoded. denied is
// the result of the operation's authorization check and wins when set.
func rejectBody(c *gin.Context, denied error) {
	if denied != nil {
		middleware.AbortWithError(c, denied)
		return
	}
	middleware.AbortWithError(c, service.ValidationError("invalid request body"))
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}
