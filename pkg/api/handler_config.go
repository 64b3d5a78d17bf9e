package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getConfig returns the runtime/server/retention configuration currently
// loaded — never the Masking config's patterns or any provider credential.
func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ok("", gin.H{
		"runtime":   s.cfg.Runtime,
		"server":    s.cfg.Server,
		"retention": s.cfg.Retention,
	}))
}

// credentialSummary names a configured provider without its credential
// value — spec.md §6's explicit non-goal of exposing credential storage.
type credentialSummary struct {
	Name      string `json:"name"`
	Hosting   string `json:"hosting"`
	APIKeyEnv string `json:"api_key_env,omitempty"`
}

func (s *Server) listCredentials(c *gin.Context) {
	out := make([]credentialSummary, 0, len(s.cfg.Providers))
	for name, p := range s.cfg.Providers {
		out = append(out, credentialSummary{Name: name, Hosting: p.Hosting, APIKeyEnv: p.APIKeyEnv})
	}
	c.JSON(http.StatusOK, ok("", out))
}

// modelSummary is one entry of GET /v1/config/models.
type modelSummary struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (s *Server) listModels(c *gin.Context) {
	out := make([]modelSummary, 0, len(s.cfg.Providers))
	for name, p := range s.cfg.Providers {
		out = append(out, modelSummary{Provider: name, Model: p.Model})
	}
	c.JSON(http.StatusOK, ok("", out))
}
