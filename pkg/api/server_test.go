package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/agentrun"
	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/events"
	"github.com/codeready-toolchain/tarsy/pkg/jobs"
	"github.com/codeready-toolchain/tarsy/pkg/models"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
)

// noopExecutor never actually runs a turn — these tests exercise routing
// and the Agent Registry surface, not the LLM-calling path.
type noopExecutor struct{}

func (*noopExecutor) Execute(ctx context.Context, job models.Job) (*models.JobResult, error) {
	return &models.JobResult{Response: "ok"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	agentsDir := filepath.Join(t.TempDir(), "agents")
	reg, err := registry.Open(agentsDir, time.Millisecond)
	require.NoError(t, err)

	cfg := &config.Config{
		Runtime: config.RuntimeConfig{ConversationLength: 20, DetailLength: 5, Hosting: "anthropic", Model: "claude-test"},
		Server:  config.ServerConfig{ListenAddr: ":0", AgentsDir: agentsDir},
		Providers: map[string]*config.ProviderConfig{
			"anthropic": {Hosting: "anthropic", Model: "claude-test", APIKeyEnv: "ANTHROPIC_API_KEY"},
		},
	}

	conns := events.NewConnectionManager(0)
	publisher := events.NewPublisher(conns)
	factory := agentrun.NewFactory(cfg, reg, publisher)
	jobMgr := jobs.New(&noopExecutor{}, publisher, 1, 10)

	return NewServer(cfg, reg, jobMgr, factory, conns)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHealthProvidersReportsMissingCredential(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/health/providers", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result []providerHealth `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Result, 1)
	assert.False(t, resp.Result[0].CredentialSet)
}

func TestCreateAndGetAgent(t *testing.T) {
	s := newTestServer(t)

	body := `{"name":"scout","system_prompt":"you are scout"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/agents", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Result registry.Record `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Result.ID)

	req2 := httptest.NewRequest(http.MethodGet, "/v1/agents/"+created.Result.ID, nil)
	rec2 := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestGetUnknownAgentMapsToValidationStatus(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/agents/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAndGetJob(t *testing.T) {
	s := newTestServer(t)

	body := `{"prompt":"do something"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		Result models.Job `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Result.ID)

	req2 := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+created.Result.ID, nil)
	rec2 := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}
