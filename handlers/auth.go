package handlers

import (
	"net/http"

	"pizza-api/middleware"
	"pizza-api/policy"
	"pizza-api/service"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password"`
}

// Register creates a diner account and returns it with a session token
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, service.ValidationError("name, email, and password are required"))
		return
	}
	user, token, err := h.Sessions.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token.Value})
}

// Login authenticates a user and returns a fresh token
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, service.UnknownUser(err))
		return
	}
	user, token, err := h.Sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token.Value})
}

// Logout revokes the bearer token of the request
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Sessions.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// UpdateUser changes the caller's own name, email or password
func (h *Handler) UpdateUser(c *gin.Context) {
	actor := middleware.GetIdentity(c)
	userID, ok := paramID(c, "id")
	if !ok {
		middleware.AbortWithError(c, service.Forbidden("unauthorized"))
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rejectBody(c, service.Authorize(actor, policy.UpdateUser, policy.Target{OwnerID: userID}))
		return
	}
	user, err := h.Sessions.UpdateProfile(c.Request.Context(), actor, userID, service.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes an account (self or admin)
func (h *Handler) DeleteUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		middleware.AbortWithError(c, service.NotFound("user not found", nil))
		return
	}
	if err := h.Sessions.DeleteAccount(c.Request.Context(), middleware.GetIdentity(c), userID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// Me returns the authenticated user's profile
func (h *Handler) Me(c *gin.Context) {
	user, err := h.Sessions.Me(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
