package handlers

import (
	"net/http"

	"pizza-api/middleware"
	"pizza-api/policy"
	"pizza-api/service"

	"github.com/gin-gonic/gin"
)

// maxPageLimit bounds the page size a caller can ask for
const maxPageLimit = 100

type CreateFranchiseRequest struct {
	Name   string `json:"name"`
	Admins []struct {
		Email string `json:"email"`
	} `json:"admins"`
}

type CreateStoreRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// ListFranchises returns one page of franchises with their stores (public).
// Query: page (1-based), limit, name (* wildcard).
func (h *Handler) ListFranchises(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	page, err := h.Franchises.ListFranchises(c.Request.Context(), middleware.GetIdentity(c),
		queryInt(c, "page", 1), limit, c.Query("name"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListUserFranchises returns the franchises a user administers
func (h *Handler) ListUserFranchises(c *gin.Context) {
	userID, ok := paramID(c, "userId")
	if !ok {
		c.JSON(http.StatusOK, []any{})
		return
	}
	franchises, err := h.Franchises.ListUserFranchises(c.Request.Context(), middleware.GetIdentity(c), userID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, franchises)
}

// CreateFranchise creates a franchise (admin only)
func (h *Handler) CreateFranchise(c *gin.Context) {
	actor := middleware.GetIdentity(c)
	var req CreateFranchiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rejectBody(c, service.Authorize(actor, policy.CreateFranchise, policy.Target{}))
		return
	}
	in := service.FranchiseInput{Name: req.Name}
	for _, a := range req.Admins {
		in.Admins = append(in.Admins, a.Email)
	}
	franchise, err := h.Franchises.CreateFranchise(c.Request.Context(), actor, in)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, franchise)
}

// DeleteFranchise removes a franchise and its stores (admin only)
func (h *Handler) DeleteFranchise(c *gin.Context) {
	franchiseID, ok := paramID(c, "id")
	if !ok {
		middleware.AbortWithError(c, service.NotFound("franchise not found", nil))
		return
	}
	if err := h.Franchises.DeleteFranchise(c.Request.Context(), middleware.GetIdentity(c), franchiseID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "franchise deleted"})
}

// CreateStore adds a store to a franchise (admin or franchise admin)
func (h *Handler) CreateStore(c *gin.Context) {
	franchiseID, ok := paramID(c, "id")
	if !ok {
		middleware.AbortWithError(c, service.NotFound("franchise not found", nil))
		return
	}
	actor := middleware.GetIdentity(c)
	var req CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rejectBody(c, h.Franchises.AuthorizeStore(c.Request.Context(), actor, franchiseID, policy.CreateStore))
		return
	}
	store, err := h.Franchises.CreateStore(c.Request.Context(), actor, franchiseID, service.StoreInput{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

// DeleteStore removes a store from a franchise (admin or franchise admin)
func (h *Handler) DeleteStore(c *gin.Context) {
	franchiseID, ok := paramID(c, "id")
	if !ok {
		middleware.AbortWithError(c, service.NotFound("franchise not found", nil))
		return
	}
	storeID, ok := paramID(c, "storeId")
	if !ok {
		middleware.AbortWithError(c, service.NotFound("store not found", nil))
		return
	}
	if err := h.Franchises.DeleteStore(c.Request.Context(), middleware.GetIdentity(c), franchiseID, storeID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "store deleted"})
}
