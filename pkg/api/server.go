// Package api exposes the Executor Loop runtime over HTTP/JSON and
// WebSocket (spec.md §6): chat (sync and streaming), the Job Manager, the
// Agent Registry, and config/credential/model inspection, all wrapped in
// the {status, message, result} response envelope.
//
// Grounded on pkg/api/handlers.go's gin Server/handler-method shape
// (CreateAlert/processSession/ListSessions/GetSession/CancelSession), with
// routing translated from the teacher's session/alert domain onto this
// spec's jobs/agents domain, and pkg/api/errors.go's mapServiceError
// switch idiom, translated onto apperrors.Kind in errors.go.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ginprometheus "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeready-toolchain/tarsy/pkg/agentrun"
	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/events"
	"github.com/codeready-toolchain/tarsy/pkg/jobs"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
)

// Server wires the HTTP/WebSocket surface to the runtime packages.
type Server struct {
	engine *gin.Engine

	cfg      *config.Config
	reg      *registry.Registry
	jobMgr   *jobs.Manager
	factory  *agentrun.Factory
	conns    *events.ConnectionManager
	chatExec *agentrun.JobExecutor // runs /v1/chat synchronously, bypassing the Job Manager's queue
}

// NewServer constructs the router and registers every spec.md §6 route.
func NewServer(cfg *config.Config, reg *registry.Registry, jobMgr *jobs.Manager, factory *agentrun.Factory, conns *events.ConnectionManager) *Server {
	s := &Server{
		engine:   gin.New(),
		cfg:      cfg,
		reg:      reg,
		jobMgr:   jobMgr,
		factory:  factory,
		conns:    conns,
		chatExec: agentrun.NewJobExecutor(factory, cfg.Runtime),
	}
	s.engine.Use(requestLogger(), gin.Recovery(), metricsMiddleware(), securityHeaders())
	s.setupRoutes()
	return s
}

// Engine exposes the underlying gin.Engine, e.g. for httptest wiring.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(ginprometheus.Handler()))
	s.engine.GET("/ws/:client_id", s.serveWS)

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/health/providers", s.healthProviders)

		v1.POST("/chat", s.chat)
		v1.POST("/chat/agents/:id", s.chatAgent)
		v1.POST("/chat/agents/:id/interrupt", s.interruptAgent)

		v1.POST("/jobs", s.submitJob)
		v1.GET("/jobs", s.listJobs)
		v1.GET("/jobs/:id", s.getJob)
		v1.POST("/jobs/:id/cancel", s.cancelJob)

		v1.GET("/agents", s.listAgents)
		v1.POST("/agents", s.createAgent)
		v1.GET("/agents/:id", s.getAgent)
		v1.PATCH("/agents/:id", s.updateAgent)
		v1.DELETE("/agents/:id", s.deleteAgent)
		v1.GET("/agents/:id/conversation", s.getConversation)
		v1.DELETE("/agents/:id/conversation", s.clearConversation)
		v1.GET("/agents/:id/history", s.getHistory)
		v1.GET("/agents/:id/system-prompt", s.getSystemPrompt)
		v1.PUT("/agents/:id/system-prompt", s.putSystemPrompt)
		v1.GET("/agents/:id/learnings", s.getLearnings)
		v1.DELETE("/agents/:id/learnings", s.clearLearnings)
		v1.POST("/agents/import", s.importAgent)
		v1.GET("/agents/:id/export", s.exportAgent)

		v1.GET("/config", s.getConfig)
		v1.GET("/config/credentials", s.listCredentials)
		v1.GET("/config/models", s.listModels)
	}
}

// Run blocks serving HTTP on addr until ctx is cancelled or the listener
// fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
