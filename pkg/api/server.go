// Package api implements the Request API (spec §4.10, §6): the HTTP
// surface the outside world drives this module through. It is a thin gin
// layer — all domain logic lives in pkg/router, pkg/agent, pkg/store and
// pkg/abtest; handlers here only decode requests, hold the session mutex
// for the span of a turn, and translate results to JSON/SSE.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagbank/agent-router/pkg/abtest"
	"github.com/pagbank/agent-router/pkg/agent"
	"github.com/pagbank/agent-router/pkg/database"
	"github.com/pagbank/agent-router/pkg/llmclient"
	"github.com/pagbank/agent-router/pkg/memory"
	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
	"github.com/pagbank/agent-router/pkg/store"
	"github.com/pagbank/agent-router/pkg/typification"
)

// softTimeout and hardTimeout bound one /chat turn (spec §5: "per-turn soft
// (60s) / hard (180s) timeouts"). Only the hard timeout is enforced: it is
// the request context deadline, beyond which the turn is cancelled
// outright. softTimeout is not applied anywhere; no soft deadline is set
// on a turn or on the LLM calls specialists make through Base.respond.
const (
	softTimeout = 60 * time.Second
	hardTimeout = 180 * time.Second
)

// Server wires every domain component into one gin engine. Grounded on the
// teacher's pkg/api.Server — same shape (engine + http.Server + explicit
// dependency fields), generalized from its Ent/service-layer fields to this
// module's Store/Router/Factory/Manager collaborators.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	db            *database.Client
	configs       *store.Store
	abtests       *abtest.Manager
	sessions      *session.Manager
	memories      *memory.Store
	factory       *agent.Factory
	rtr           *router.Router
	runner        agent.ModelRunner
	typification  *typification.Workflow
	classifier    typification.Classifier
	clock         func() time.Time
}

// NewServer builds the Request API over its dependencies and registers
// every route. typification/classifier are optional (nil disables
// automatic ticket generation at session closure — spec §4.8 — without
// disabling chat itself).
func NewServer(db *database.Client, configs *store.Store, abtests *abtest.Manager, sessions *session.Manager, memories *memory.Store, factory *agent.Factory, rtr *router.Router, llm llmclient.Client, workflow *typification.Workflow, classifier typification.Classifier) *Server {
	s := &Server{
		db:           db,
		configs:      configs,
		abtests:      abtests,
		sessions:     sessions,
		memories:     memories,
		factory:      factory,
		rtr:          rtr,
		runner:       llmclient.NewRunner(llm),
		typification: workflow,
		classifier:   classifier,
		clock:        time.Now,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), securityHeaders())
	s.engine = engine
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/chat", s.handleChat)
	s.engine.GET("/sessions/:session_id", s.handleGetSession)

	s.engine.POST("/agents/:agent_id/versions", s.handleCreateVersion)
	s.engine.GET("/agents/:agent_id/versions", s.handleListVersions)
	s.engine.PUT("/agents/:agent_id/versions", s.handleDeprecateVersion)
	s.engine.PUT("/agents/:agent_id/versions/:version/activate", s.handleActivateVersion)
	s.engine.POST("/agents/:agent_id/run", s.handleRunAgent)

	s.engine.POST("/ab_tests", s.handleCreateABTest)
	s.engine.POST("/ab_tests/:id/start", s.handleStartABTest)
	s.engine.POST("/ab_tests/:id/stop", s.handleStopABTest)
	s.engine.POST("/ab_tests/:id/record", s.handleRecordOutcome)
	s.engine.GET("/ab_tests/:id/analysis", s.handleABAnalysis)
}

// Start begins serving addr. It blocks until Shutdown is called or the
// server errors out.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Engine exposes the underlying gin engine, for tests that want to drive it
// with httptest without binding a real port.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
