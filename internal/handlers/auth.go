package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/dscc-qa/backup-harness/api/v1"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

const grantClientCredentials = "client_credentials"

// IssueToken implements the client-credentials grant. Credentials are read
// from the form or from HTTP basic auth.
// (POST /oauth2/token)
func (h *Handler) IssueToken(c *gin.Context) {
	if gt := c.PostForm("grant_type"); gt != grantClientCredentials {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
		return
	}

	clientID, clientSecret, ok := c.Request.BasicAuth()
	if !ok {
		clientID = c.PostForm("client_id")
		clientSecret = c.PostForm("client_secret")
	}

	tok, err := h.issuer.Issue(clientID, clientSecret, c.PostForm("scope"))
	if err != nil {
		if srvErrors.IsUnauthorizedError(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, v1.TokenResponse{
		AccessToken: tok.Signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(tok.ExpiresIn.Seconds()),
		Scope:       tok.Scope,
	})
}

// GetJWKS (GET /oauth2/jwks)
func (h *Handler) GetJWKS(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"keys": h.issuer.JWKS()})
}

// GetVersion (GET /version)
func (h *Handler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, v1.VersionResponse{Version: h.version})
}
