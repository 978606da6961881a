package handlers

import (
	"net/http"

	"pizza-api/middleware"
	"pizza-api/policy"
	"pizza-api/service"

	"github.com/gin-gonic/gin"
)

type AddMenuItemRequest struct {
	Title       string  `json:"title"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type CreateOrderRequest struct {
	FranchiseID uint `json:"franchiseId"`
	StoreID     uint `json:"storeId"`
	Items       []struct {
		MenuID      uint    `json:"menuId"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
	} `json:"items"`
}

// GetMenu returns the whole menu (public)
func (h *Handler) GetMenu(c *gin.Context) {
	menu, err := h.Orders.Menu(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// AddMenuItem appends a menu item and returns the full menu (admin only)
func (h *Handler) AddMenuItem(c *gin.Context) {
	actor := middleware.GetIdentity(c)
	var req AddMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rejectBody(c, service.Authorize(actor, policy.AddMenuItem, policy.Target{}))
		return
	}
	menu, err := h.Orders.AddMenuItem(c.Request.Context(), actor, service.MenuItemInput{
		Title:       req.Title,
		Image:       req.Image,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// CreateOrder places an order for the caller
func (h *Handler) CreateOrder(c *gin.Context) {
	actor := middleware.GetIdentity(c)
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rejectBody(c, service.Authorize(actor, policy.CreateOrder, policy.Target{}))
		return
	}
	in := service.OrderInput{FranchiseID: req.FranchiseID, StoreID: req.StoreID}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{MenuID: it.MenuID, Description: it.Description, Price: it.Price})
	}
	order, err := h.Orders.CreateOrder(c.Request.Context(), actor, in)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetOrders returns one page of the caller's orders. Query: page (1-based).
func (h *Handler) GetOrders(c *gin.Context) {
	page, err := h.Orders.ListOrders(c.Request.Context(), middleware.GetIdentity(c), queryInt(c, "page", 1))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
