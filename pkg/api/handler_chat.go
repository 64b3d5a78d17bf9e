package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// chat runs one stateless turn, synchronously — spec.md §6 POST /v1/chat.
// Unlike /v1/jobs, the caller blocks for the response; there is no agent
// registry entry to persist against.
func (s *Server) chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	job := models.Job{Prompt: req.Prompt, Model: req.Model, Hosting: req.Hosting}
	result, err := s.chatExec.Execute(c.Request.Context(), job)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", result))
}

// chatAgent runs one turn against a persisted agent's conversation —
// spec.md §6 POST /v1/chat/agents/{id}. Blocks for the response; the
// turn's Execution Results still stream over the agent's WebSocket
// channel as they're produced.
func (s *Server) chatAgent(c *gin.Context) {
	id := c.Param("id")
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	job := models.Job{AgentID: &id, Prompt: req.Prompt, Model: req.Model, Hosting: req.Hosting}
	result, err := s.chatExec.Execute(c.Request.Context(), job)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", result))
}

// interruptAgent sets the interrupt flag on an agent's in-flight turn —
// spec.md §5 Cancellation.
func (s *Server) interruptAgent(c *gin.Context) {
	id := c.Param("id")
	if !s.factory.Interrupt(id) {
		c.JSON(http.StatusOK, ok("no turn in flight", gin.H{"interrupted": false}))
		return
	}
	c.JSON(http.StatusOK, ok("interrupt requested", gin.H{"interrupted": true}))
}
