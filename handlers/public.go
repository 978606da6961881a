package handlers

import (
	"net/http"

	"pizza-api/models"
	"pizza-api/policy"

	"github.com/gin-gonic/gin"
)

// Health reports liveness
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Pizza Franchise Ordering API",
		"version": "1.0.0",
	})
}

// Welcome lists the service entry points
func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "welcome to the pizza ordering API",
		"docs":    "/api/docs/policy",
		"health":  "/health",
		"roles":   []models.Role{models.RoleDiner, models.RoleFranchisee, models.RoleAdmin},
	})
}

// GetPolicyInfo returns the authorization table for informational purposes
func GetPolicyInfo(c *gin.Context) {
	var info []gin.H
	for _, r := range policy.Rules() {
		info = append(info, gin.H{"action": r.Action, "allow": r.Allow, "denial": r.Denial})
	}
	c.JSON(http.StatusOK, gin.H{
		"policy":      info,
		"description": "Role-based authorization for franchises, stores, menu and orders",
	})
}
