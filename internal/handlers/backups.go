package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/dscc-qa/backup-harness/api/v1"
	"github.com/dscc-qa/backup-harness/internal/services"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

// ListProtectionJobs (GET /backup-recovery/v1beta1/protection-jobs)
func (h *Handler) ListProtectionJobs(c *gin.Context) {
	jobs := h.backupSrv.List()
	resp := v1.ProtectionJobList{Items: make([]v1.ProtectionJob, 0, len(jobs)), Count: len(jobs), Total: len(jobs)}
	for _, j := range jobs {
		resp.Items = append(resp.Items, v1.NewProtectionJobFromModel(j))
	}
	c.JSON(http.StatusOK, resp)
}

// GetProtectionJob (GET /backup-recovery/v1beta1/protection-jobs/{id})
func (h *Handler) GetProtectionJob(c *gin.Context) {
	j, err := h.backupSrv.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v1.NewProtectionJobFromModel(j))
}

// CreateProtectionJob registers a scheduled job synchronously
// (POST /backup-recovery/v1beta1/protection-jobs)
func (h *Handler) CreateProtectionJob(c *gin.Context) {
	var req v1.ProtectionJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, srvErrors.NewInvalidConfigurationError("body", err.Error()))
		return
	}
	j, err := h.backupSrv.Create(services.ProtectionJobRequest{
		PolicyID:  req.PolicyId,
		AssetURI:  req.AssetUri,
		AssetName: req.AssetName,
		Schedule:  req.Schedule,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v1.NewProtectionJobFromModel(j))
}

// DeleteProtectionJob (DELETE /backup-recovery/v1beta1/protection-jobs/{id})
func (h *Handler) DeleteProtectionJob(c *gin.Context) {
	if err := h.backupSrv.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RunProtectionJob starts a backup outside the schedule
// (POST /backup-recovery/v1beta1/protection-jobs/{id}/run)
func (h *Handler) RunProtectionJob(c *gin.Context) {
	task, err := h.backupSrv.Trigger(callerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	accepted(c, task.ID)
}
