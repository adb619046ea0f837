package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/services"
	"github.com/dscc-qa/backup-harness/pkg/client"
)

const (
	TokenPath = "/oauth2/token"
	JWKSPath  = "/oauth2/jwks"
)

// Authenticate rejects requests without a valid bearer token and stores the
// caller identity in the gin context.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := h.issuer.Verify(c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(CallerKey, services.Caller{UserID: claims.Subject, CustomerID: claims.CustomerID})
		c.Next()
	}
}

// RegisterHandlers mounts the token endpoints and the authenticated API.
// apiMiddlewares run before authentication on API routes only.
func RegisterHandlers(router *gin.RouterGroup, h *Handler, apiMiddlewares ...gin.HandlerFunc) {
	router.POST(TokenPath, h.IssueToken)
	router.GET(JWKSPath, h.GetJWKS)

	api := router.Group("/", append(apiMiddlewares, h.Authenticate())...)
	api.GET(client.VersionPath, h.GetVersion)

	api.GET(client.TasksPath, h.ListTasks)
	api.GET(client.TasksPath+"/:id", h.GetTask)

	for _, kind := range models.Kinds {
		if kind == models.KindProtectionJob {
			continue
		}
		path := kind.Group() + "/" + string(kind)
		api.GET(path, h.ListResources(kind))
		api.GET(path+"/:id", h.GetResource(kind))
		api.POST(path, h.CreateResource(kind))
		api.PATCH(path+"/:id", h.UpdateResource(kind))
		api.DELETE(path+"/:id", h.DeleteResource(kind))
	}

	jobs := models.KindProtectionJob.Group() + "/" + string(models.KindProtectionJob)
	api.GET(jobs, h.ListProtectionJobs)
	api.GET(jobs+"/:id", h.GetProtectionJob)
	api.POST(jobs, h.CreateProtectionJob)
	api.DELETE(jobs+"/:id", h.DeleteProtectionJob)
	api.POST(jobs+"/:id/run", h.RunProtectionJob)
}
