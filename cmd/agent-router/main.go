// agent-router is the PagBank customer-service routing runtime's server
// binary: it wires the Config Store, Knowledge Gateway, Memory Store,
// Agent Factory, Session State, Router, Specialists, Typification
// Workflow, and A/B Test Manager together and serves the Request API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"

	"github.com/pagbank/agent-router/pkg/abtest"
	"github.com/pagbank/agent-router/pkg/agent"
	"github.com/pagbank/agent-router/pkg/api"
	"github.com/pagbank/agent-router/pkg/cleanup"
	"github.com/pagbank/agent-router/pkg/config"
	"github.com/pagbank/agent-router/pkg/database"
	"github.com/pagbank/agent-router/pkg/knowledge"
	"github.com/pagbank/agent-router/pkg/llmclient"
	"github.com/pagbank/agent-router/pkg/memory"
	"github.com/pagbank/agent-router/pkg/protocol"
	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
	"github.com/pagbank/agent-router/pkg/specialist"
	"github.com/pagbank/agent-router/pkg/store"
	"github.com/pagbank/agent-router/pkg/typification"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// specialistAgentIDs pairs each Specialist constant with the Config Store
// agent_id carrying its instructions/model config, so every specialist's
// Base.Doc is resolved from whichever version is active at startup (spec
// §4.1/§4.4). Re-registering the Router after an activation is a known
// scope boundary — see DESIGN.md.
var specialistAgentIDs = map[router.Specialist]string{
	router.SpecialistCards:               "cards",
	router.SpecialistDigitalAccount:      "digital_account",
	router.SpecialistInvestments:         "investments",
	router.SpecialistCredit:              "credit",
	router.SpecialistInsurance:           "insurance",
	router.SpecialistTechnicalEscalation: "technical_escalation",
	router.SpecialistFeedbackCollector:   "feedback_collector",
	router.SpecialistHumanHandoff:        "human_handoff",
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	hierarchyPath := flag.String("hierarchy-csv", getEnv("HIERARCHY_CSV_PATH", "./deploy/config/typification_hierarchy.csv"), "Path to the business_unit/product/motive/submotive hierarchy CSV")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v; continuing with existing environment variables", envPath, err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx := context.Background()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	log.Println("connected to PostgreSQL")

	configs := store.New(dbClient)
	memories := memory.New(dbClient)
	sessions := session.NewManager()
	abStore := abtest.NewStore(dbClient)
	abManager := abtest.New(abStore)
	factory := agent.New(configs, abManager)
	protocols := protocol.NewGenerator()
	ticketStore := typification.NewStore(dbClient)

	llmEndpoint := getEnv("LLM_ENDPOINT", "https://api.openai.com/v1/chat/completions")
	llmAPIKey := os.Getenv("LLM_API_KEY")
	llmModel := getEnv("LLM_MODEL", "gpt-4o-mini")
	llm := llmclient.NewSSEClient(llmAPIKey, llmEndpoint)

	embeddingEndpoint := getEnv("EMBEDDING_ENDPOINT", "https://api.openai.com/v1/embeddings")
	embeddingModel := getEnv("EMBEDDING_MODEL", "text-embedding-3-small")
	embedder := knowledge.NewHTTPEmbedder(llmAPIKey, embeddingModel, embeddingEndpoint)
	knowledgeGateway := knowledge.New(dbClient, embedder)

	hierarchy := loadHierarchy(*hierarchyPath)
	specialists := buildSpecialists(ctx, configs, llm, knowledgeGateway, memories, protocols)
	typeWorkflow := typification.New(hierarchy, ticketStore, protocols)
	classifier := typification.NewLLMClassifier(llm, llmModel, hierarchy)

	rtr := router.New(specialists, protocols, typeWorkflow)

	server := api.NewServer(dbClient, configs, abManager, sessions, memories, factory, rtr, llm, typeWorkflow, classifier)

	shutdownCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	cleanupSvc := cleanup.NewService(cleanup.DefaultConfig(), sessions)
	cleanupSvc.Start(shutdownCtx)
	defer cleanupSvc.Stop()

	go func() {
		<-shutdownCtx.Done()
		log.Println("agent-router: shutting down")

		gracefulCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(gracefulCtx); err != nil {
			log.Printf("agent-router: shutdown error: %v", err)
		}
	}()

	log.Printf("agent-router listening on :%s", httpPort)
	if err := server.Start(":" + httpPort); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// buildSpecialists resolves each specialist's active config document at
// startup and constructs the concrete SpecialistRunner the Router
// dispatches to.
func buildSpecialists(ctx context.Context, configs *store.Store, llm llmclient.Client, kg *knowledge.Gateway, memories *memory.Store, protocols *protocol.Generator) map[router.Specialist]router.SpecialistRunner {
	docs := make(map[router.Specialist]*config.Document, len(specialistAgentIDs))
	for spec, agentID := range specialistAgentIDs {
		active, err := configs.GetActive(ctx, agentID)
		if err != nil {
			log.Fatalf("agent-router: no active config for %s (%s): %v", spec, agentID, err)
		}
		doc, err := config.Parse(active.ConfigBlob)
		if err != nil {
			log.Fatalf("agent-router: invalid config for %s (%s): %v", spec, agentID, err)
		}
		docs[spec] = doc
	}

	base := func(spec router.Specialist) specialist.Base {
		return specialist.Base{Doc: docs[spec], LLM: llm, Knowledge: kg, Memory: memories, Protocols: protocols}
	}

	return map[router.Specialist]router.SpecialistRunner{
		router.SpecialistCards:               &specialist.Cards{Base: base(router.SpecialistCards)},
		router.SpecialistDigitalAccount:      specialist.NewDigitalAccount(base(router.SpecialistDigitalAccount)),
		router.SpecialistInvestments:         &specialist.Investments{Base: base(router.SpecialistInvestments)},
		router.SpecialistCredit:              &specialist.Credit{Base: base(router.SpecialistCredit)},
		router.SpecialistInsurance:           &specialist.Insurance{Base: base(router.SpecialistInsurance)},
		router.SpecialistTechnicalEscalation: &specialist.TechnicalEscalation{Base: base(router.SpecialistTechnicalEscalation)},
		router.SpecialistFeedbackCollector:   &specialist.FeedbackCollector{Base: base(router.SpecialistFeedbackCollector)},
		router.SpecialistHumanHandoff:        &specialist.HumanHandoff{Base: base(router.SpecialistHumanHandoff)},
	}
}

func loadHierarchy(path string) *typification.Hierarchy {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("agent-router: open hierarchy csv %s: %v", path, err)
	}
	defer f.Close()

	h, err := typification.LoadHierarchyCSV(f)
	if err != nil {
		log.Fatalf("agent-router: parse hierarchy csv %s: %v", path, err)
	}
	if len(h.Ambiguous) > 0 {
		log.Printf("warning: hierarchy csv has %d ambiguous rows, flagged and skipped", len(h.Ambiguous))
	}
	return h
}
