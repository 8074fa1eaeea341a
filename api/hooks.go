package api

import (
	"net/http"

	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/internal/hooks"
	"github.com/gin-gonic/gin"
)

// RegisterHook handles the registration of a new dispatch hook.
func (a *Api) RegisterHook(c *gin.Context) {
	var hook hooks.Hook
	if err := c.ShouldBindJSON(&hook); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid hook data", err))
		return
	}

	if err := a.fedsub.Hooks.RegisterHook(c.Request.Context(), &hook); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewAPIError(apierror.ErrInvalidInput, "failed to register hook", err))
		return
	}

	c.JSON(http.StatusCreated, hook)
}

// UpdateHook handles updating an existing dispatch hook.
func (a *Api) UpdateHook(c *gin.Context) {
	hookID := c.Param("id")
	var hook hooks.Hook
	if err := c.ShouldBindJSON(&hook); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid hook data", err))
		return
	}

	if err := a.fedsub.Hooks.UpdateHook(c.Request.Context(), hookID, &hook); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewAPIError(apierror.ErrInvalidInput, "failed to update hook", err))
		return
	}

	c.JSON(http.StatusOK, hook)
}

// GetHook retrieves a specific hook by ID.
func (a *Api) GetHook(c *gin.Context) {
	hookID := c.Param("id")
	hook, err := a.fedsub.Hooks.GetHook(c.Request.Context(), hookID)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.NewAPIError(apierror.ErrNotFound, "hook not found", err))
		return
	}

	c.JSON(http.StatusOK, hook)
}

// ListHooks retrieves all hooks of a specific type.
func (a *Api) ListHooks(c *gin.Context) {
	hookType := hooks.HookType(c.Query("type"))
	hooks, err := a.fedsub.Hooks.ListHooks(c.Request.Context(), hookType)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewAPIError(apierror.ErrInvalidInput, "failed to list hooks", err))
		return
	}

	c.JSON(http.StatusOK, hooks)
}

// DeleteHook removes a hook by ID.
func (a *Api) DeleteHook(c *gin.Context) {
	hookID := c.Param("id")
	if err := a.fedsub.Hooks.DeleteHook(c.Request.Context(), hookID); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewAPIError(apierror.ErrInvalidInput, "failed to delete hook", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "hook deleted successfully"})
}
