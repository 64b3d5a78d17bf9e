package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
)

// listAgents enumerates registered agents with name/sort/pagination
// filters — spec.md §4.6.
func (s *Server) listAgents(c *gin.Context) {
	filter := registry.ListFilter{
		NameContains: c.Query("name"),
		SortBy:       registry.SortKey(c.DefaultQuery("sort_by", string(registry.SortByName))),
		Descending:   c.Query("order") == "desc",
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = offset
	}

	records, err := s.reg.List(filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", records))
}

// createAgent mints a new agent with its own working directory and an
// initial system-prompt conversation record.
func (s *Server) createAgent(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rec, err := s.reg.Create(req.Name, req.SystemPrompt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ok("agent created", rec))
}

func (s *Server) getAgent(c *gin.Context) {
	rec, err := s.reg.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", rec))
}

// updateAgent applies a partial update; only non-empty fields in the
// request body are changed.
func (s *Server) updateAgent(c *gin.Context) {
	var req UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rec, err := s.reg.Update(c.Param("id"), func(r *registry.Record) error {
		if req.Name != "" {
			r.Name = req.Name
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("agent updated", rec))
}

func (s *Server) deleteAgent(c *gin.Context) {
	if err := s.reg.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("agent deleted", nil))
}

// getConversation returns an agent's full append-only turn log.
func (s *Server) getConversation(c *gin.Context) {
	rec, err := s.reg.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", rec.State.Conversation))
}

// clearConversation resets an agent's conversation back to its initial
// system prompt record, without touching learnings or execution history.
func (s *Server) clearConversation(c *gin.Context) {
	rec, err := s.reg.Update(c.Param("id"), func(r *registry.Record) error {
		r.State.Conversation = r.State.Conversation[:0]
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("conversation cleared", rec))
}

// getHistory returns an agent's Execution Result trace.
func (s *Server) getHistory(c *gin.Context) {
	rec, err := s.reg.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", rec.State.ExecutionHistory))
}

func (s *Server) getSystemPrompt(c *gin.Context) {
	rec, err := s.reg.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", gin.H{"system_prompt": rec.State.AgentSystemPrompt}))
}

// putSystemPrompt replaces an agent's system prompt. The conversation's
// first record is kept in sync since the executor loop treats it as the
// live system prompt, not AgentSystemPrompt directly.
func (s *Server) putSystemPrompt(c *gin.Context) {
	var req PutSystemPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rec, err := s.reg.Update(c.Param("id"), func(r *registry.Record) error {
		r.State.AgentSystemPrompt = req.SystemPrompt
		if len(r.State.Conversation) > 0 && r.State.Conversation[0].IsSystemPrompt {
			r.State.Conversation[0].Content = req.SystemPrompt
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("system prompt updated", rec))
}

func (s *Server) getLearnings(c *gin.Context) {
	rec, err := s.reg.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", rec.State.Learnings))
}

func (s *Server) clearLearnings(c *gin.Context) {
	rec, err := s.reg.Update(c.Param("id"), func(r *registry.Record) error {
		r.State.Learnings = nil
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("learnings cleared", rec))
}

// importAgent restores an agent from a zip archive produced by exportAgent
// — spec.md §4.6.
func (s *Server) importAgent(c *gin.Context) {
	fileHeader, err := c.FormFile("archive")
	if err != nil {
		badRequest(c, "archive file field is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		writeError(c, apperrors.New(apperrors.KindFileIO, "open uploaded archive", err))
		return
	}
	defer file.Close()

	ra, ok := file.(io.ReaderAt)
	if !ok {
		writeError(c, apperrors.New(apperrors.KindFileIO, "uploaded archive does not support random access", nil))
		return
	}

	rec, err := s.reg.Import(ra, fileHeader.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ok("agent imported", rec))
}

// exportAgent streams a zip archive of the agent's manifest and working
// directory.
func (s *Server) exportAgent(c *gin.Context) {
	id := c.Param("id")
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, id))
	if err := s.reg.Export(id, c.Writer); err != nil {
		writeError(c, err)
		return
	}
}
