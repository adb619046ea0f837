package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/dscc-qa/backup-harness/api/v1"
	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/services"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

// ListResources returns a page of a collection, optionally filtered by name
// (GET /{group}/{kind})
func (h *Handler) ListResources(kind models.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, limit, err := pagination(c)
		if err != nil {
			writeError(c, err)
			return
		}
		name, err := nameFilter(c.Query("filter"))
		if err != nil {
			writeError(c, err)
			return
		}

		items, total, err := h.resourceSrv.List(kind, services.ResourceListParams{Name: name, Offset: offset, Limit: limit})
		if err != nil {
			writeError(c, err)
			return
		}

		resp := v1.ResourceList{Items: make([]v1.Resource, 0, len(items)), Count: len(items), Offset: offset, Total: total}
		for _, r := range items {
			resp.Items = append(resp.Items, v1.NewResourceFromModel(r))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetResource (GET /{group}/{kind}/{id})
func (h *Handler) GetResource(kind models.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := h.resourceSrv.Get(kind, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, v1.NewResourceFromModel(r))
	}
}

// CreateResource starts a creation task
// (POST /{group}/{kind})
func (h *Handler) CreateResource(kind models.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req v1.ResourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, srvErrors.NewInvalidConfigurationError("body", err.Error()))
			return
		}
		task, err := h.resourceSrv.Create(callerFrom(c), kind, req.Name, req.Attributes)
		if err != nil {
			writeError(c, err)
			return
		}
		accepted(c, task.ID)
	}
}

// UpdateResource starts an update task
// (PATCH /{group}/{kind}/{id})
func (h *Handler) UpdateResource(kind models.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req v1.ResourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, srvErrors.NewInvalidConfigurationError("body", err.Error()))
			return
		}
		task, err := h.resourceSrv.Update(callerFrom(c), kind, c.Param("id"), req.Name, req.Attributes)
		if err != nil {
			writeError(c, err)
			return
		}
		accepted(c, task.ID)
	}
}

// DeleteResource starts a deletion task
// (DELETE /{group}/{kind}/{id}?force=true)
func (h *Handler) DeleteResource(kind models.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		force := c.Query("force") == "true"
		task, err := h.resourceSrv.Delete(callerFrom(c), kind, c.Param("id"), force)
		if err != nil {
			writeError(c, err)
			return
		}
		accepted(c, task.ID)
	}
}

// nameFilter accepts only "name eq '<value>'".
func nameFilter(expr string) (string, error) {
	if expr == "" {
		return "", nil
	}
	f, err := services.ParseTaskFilter(expr)
	if err != nil {
		return "", err
	}
	if f.Name == "" || f != (models.TaskFilter{Name: f.Name}) {
		return "", srvErrors.NewInvalidConfigurationError("filter", "collections support only name eq")
	}
	return f.Name, nil
}
