package api

import (
	"net/http"

	"github.com/fedsubhq/fedsub/api/model"
	"github.com/gin-gonic/gin"
)

// CreateAPIKey creates a new API key for the authenticated user
//
// Parameters:
// - c: The Gin context containing the request and response
//
// Responses:
// - 400 Bad Request: If there's an error in the request body
// - 201 Created: If the API key is successfully created
func (a Api) CreateAPIKey(c *gin.Context) {
	var req model.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// An authenticated owner always mints keys against itself
	owner := c.GetString("owner")
	if owner == "" {
		owner = req.Owner
	}

	apiKey, err := a.fedsub.CreateAPIKey(c.Request.Context(), req.Name, owner, req.Scopes, req.ExpiresAt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, apiKey)
}

// ListAPIKeys lists all API keys for the authenticated user
//
// Parameters:
// - c: The Gin context containing the request and response
//
// Responses:
// - 200 OK: Returns the list of API keys
// - 500 Internal Server Error: If there's an error retrieving the keys
func (a Api) ListAPIKeys(c *gin.Context) {
	owner := c.GetString("owner")
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	keys, err := a.fedsub.ListAPIKeys(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, keys)
}

// RevokeAPIKey revokes an API key
//
// Parameters:
// - c: The Gin context containing the request and response
//
// Responses:
// - 204 No Content: If the API key is successfully revoked
// - 404 Not Found: If the API key is not found or owned by someone else
func (a Api) RevokeAPIKey(c *gin.Context) {
	id := c.Param("id")
	owner := c.GetString("owner")
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := a.fedsub.RevokeAPIKey(c.Request.Context(), id, owner); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
