package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	v1 "github.com/dscc-qa/backup-harness/api/v1"
	"github.com/dscc-qa/backup-harness/internal/services"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

// ListTasks returns a page of tasks
// (GET /data-services/v1beta1/async-operations)
func (h *Handler) ListTasks(c *gin.Context) {
	filter, err := services.ParseTaskFilter(c.Query("filter"))
	if err != nil {
		writeError(c, err)
		return
	}

	switch sort := strings.TrimSpace(c.Query("sort")); sort {
	case "", "createdAt", "createdAt asc":
	case "createdAt desc":
		filter.SortDescending = true
	default:
		writeError(c, srvErrors.NewInvalidConfigurationError("sort", "unsupported sort "+sort))
		return
	}

	offset, limit, err := pagination(c)
	if err != nil {
		writeError(c, err)
		return
	}
	filter.Offset = offset
	filter.Limit = limit

	items, total := h.taskSrv.List(filter)

	resp := tasks.TaskList{
		Items:      make([]tasks.Task, 0, len(items)),
		PageLimit:  limit,
		PageOffset: offset,
		Total:      total,
	}
	for _, t := range items {
		resp.Items = append(resp.Items, v1.NewTaskFromModel(t))
	}
	c.JSON(http.StatusOK, resp)
}

// GetTask returns a single task
// (GET /data-services/v1beta1/async-operations/{id})
func (h *Handler) GetTask(c *gin.Context) {
	t, err := h.taskSrv.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v1.NewTaskFromModel(t))
}
