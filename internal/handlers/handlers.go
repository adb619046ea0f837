package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/dscc-qa/backup-harness/api/v1"
	"github.com/dscc-qa/backup-harness/internal/services"
	"github.com/dscc-qa/backup-harness/pkg/auth"
	"github.com/dscc-qa/backup-harness/pkg/client"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000

	// CallerKey holds the services.Caller set by the auth middleware.
	CallerKey = "caller"
)

type Handler struct {
	taskSrv     *services.TaskService
	resourceSrv *services.ResourceService
	backupSrv   *services.BackupScheduler
	issuer      *services.TokenIssuer
	version     string
}

func New(taskSrv *services.TaskService, resourceSrv *services.ResourceService, backupSrv *services.BackupScheduler, issuer *services.TokenIssuer, version string) *Handler {
	return &Handler{
		taskSrv:     taskSrv,
		resourceSrv: resourceSrv,
		backupSrv:   backupSrv,
		issuer:      issuer,
		version:     version,
	}
}

func callerFrom(c *gin.Context) services.Caller {
	if v, ok := c.Get(CallerKey); ok {
		if caller, ok := v.(services.Caller); ok {
			return caller
		}
	}
	return services.Caller{}
}

// accepted answers 202 with the task location.
func accepted(c *gin.Context, taskID string) {
	uri := client.TasksPath + "/" + taskID
	c.Header("Location", uri)
	c.JSON(http.StatusAccepted, v1.TaskAccepted{TaskUri: uri})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case srvErrors.IsResourceNotFoundError(err):
		status = http.StatusNotFound
	case srvErrors.IsUnauthorizedError(err):
		status = http.StatusUnauthorized
	case srvErrors.IsInvalidConfigurationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrResourceInUse):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		zap.S().Named("handler").Errorw("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, v1.ErrorResponse{
		Error:     err.Error(),
		ErrorCode: strconv.Itoa(status),
		TraceId:   c.GetHeader(auth.HeaderTraceID),
	})
}

// pagination reads offset and limit, applying the defaults and the ceiling.
func pagination(c *gin.Context) (int, int, error) {
	offset, limit := 0, defaultPageSize
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, srvErrors.NewInvalidConfigurationError("offset", "must be a non-negative integer")
		}
		offset = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, srvErrors.NewInvalidConfigurationError("limit", "must be a positive integer")
		}
		limit = min(n, maxPageSize)
	}
	return offset, limit, nil
}
