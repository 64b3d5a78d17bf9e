package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// health reports liveness. Grounded on the teacher's plain /health route.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, ok("healthy", gin.H{"status": "ok"}))
}

// providerHealth is one entry of GET /v1/health/providers.
type providerHealth struct {
	Name          string `json:"name"`
	Hosting       string `json:"hosting"`
	CredentialSet bool   `json:"credential_set"`
}

// healthProviders reports, per configured provider, whether its credential
// environment variable is actually set — spec.md §6's provider health
// check never dials the provider itself, only checks local readiness.
func (s *Server) healthProviders(c *gin.Context) {
	result := make([]providerHealth, 0, len(s.cfg.Providers))
	for name, p := range s.cfg.Providers {
		set := p.APIKeyEnv != "" && os.Getenv(p.APIKeyEnv) != ""
		result = append(result, providerHealth{Name: name, Hosting: p.Hosting, CredentialSet: set})
	}
	c.JSON(http.StatusOK, ok("", result))
}
