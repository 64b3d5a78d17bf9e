package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/tarsy/pkg/jobs"
	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// submitJob enqueues an asynchronous job — spec.md §6 POST /v1/jobs. The
// caller polls GET /v1/jobs/{id} or subscribes to job:<id> over WebSocket
// for completion.
func (s *Server) submitJob(c *gin.Context) {
	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	job, err := s.jobMgr.Submit(req.Prompt, req.Model, req.Hosting, req.AgentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ok("job submitted", job))
}

// listJobs enumerates jobs, optionally filtered by status.
func (s *Server) listJobs(c *gin.Context) {
	filter := jobs.ListFilter{Status: models.JobStatus(c.Query("status"))}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = offset
	}
	c.JSON(http.StatusOK, ok("", s.jobMgr.List(filter)))
}

// getJob returns one job's current state.
func (s *Server) getJob(c *gin.Context) {
	job, err := s.jobMgr.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("", job))
}

// cancelJob requests a pending or running job stop.
func (s *Server) cancelJob(c *gin.Context) {
	if err := s.jobMgr.Cancel(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok("cancellation requested", nil))
}
