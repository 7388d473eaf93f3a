// Route registration and go-chi router setup. Public routes (/health,
// /auth/*) versus JWT-protected routes (/api/v1/*).
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matiasleandrokruk/iris/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/iris/internal/api/middleware"
	"github.com/matiasleandrokruk/iris/internal/domain/agent"
	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
	"github.com/matiasleandrokruk/iris/internal/domain/intake"
	"github.com/matiasleandrokruk/iris/internal/domain/knowledge"
	"github.com/matiasleandrokruk/iris/internal/domain/operator"
	"github.com/matiasleandrokruk/iris/internal/domain/tool"
	"github.com/matiasleandrokruk/iris/internal/infra/config"
	"github.com/matiasleandrokruk/iris/internal/infra/eventbus"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
	"github.com/matiasleandrokruk/iris/internal/infra/mcp"
	"github.com/matiasleandrokruk/iris/internal/infra/websearch"
)

// searchAdapter bridges the knowledge search service to the retrieve tool's
// Searcher interface so the tool package stays free of the knowledge import.
type searchAdapter struct {
	search *knowledge.SearchService
}

func (a searchAdapter) Search(ctx context.Context, query string, k int) ([]tool.SearchHit, error) {
	results, err := a.search.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]tool.SearchHit, len(results))
	for i, r := range results {
		hits[i] = tool.SearchHit{Source: r.Title, Content: r.Content, Score: r.Score}
	}
	return hits, nil
}

// NewRouter creates and configures the chi router with all routes. Background
// consumers (chunk embedder, draft producer) run until ctx is cancelled. The
// returned cleanup closes the MCP sessions held open for tool proxying; call
// it on shutdown.
func NewRouter(ctx context.Context, db *sql.DB, cfg config.Config, chatProvider, embedProvider llm.Provider, logger *slog.Logger) (*chi.Mux, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// ===== PUBLIC ROUTES (no auth required) =====

	// Health check — unauthenticated, used by load balancers and health probes.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	authHandler := handlers.NewAuthHandler(operator.NewService(db))
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register) // POST /auth/register
		r.Post("/login", authHandler.Login)       // POST /auth/login
	})

	// ===== SHARED SERVICES =====

	bus := eventbus.New()
	ingestSvc := knowledge.NewIngestService(db, bus)
	searchSvc := knowledge.NewSearchService(db, embedProvider)
	embedderSvc := knowledge.NewEmbedderService(db, embedProvider)
	go embedderSvc.Start(ctx, bus)

	web := websearch.NewClient(cfg.WebSearch.APIKey)
	registry, err := intake.NewRegistry(searchAdapter{search: searchSvc}, web)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	if len(cfg.MCPServers) > 0 {
		loader := mcp.NewLoader(logger)
		if _, err := loader.LoadAll(ctx, registry, cfg.MCPServers); err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if err := loader.Close(); err != nil {
				logger.Warn("closing mcp sessions", "error", err)
			}
		}
	}

	driver := agent.NewDriver(chatProvider, registry,
		agent.WithSystemPrompt(intake.SystemPrompt),
		agent.WithStepBudget(cfg.Agent.StepBudget),
		agent.WithParallelToolCalls(cfg.Agent.ParallelToolCalls),
		agent.WithLogger(logger),
	)

	threads := conversation.NewStore(db)
	runs := agent.NewRunStore(db)
	agentSvc := agent.NewService(threads, runs, driver, cfg.Agent.UseMemory)
	intakeSvc := intake.NewService(agentSvc, threads, bus, logger)

	draftingSvc := intake.NewDraftingService(db, threads, chatProvider, logger)
	go draftingSvc.Start(ctx, bus)

	// ===== PROTECTED ROUTES (JWT required via AuthMiddleware) =====

	threadHandler := handlers.NewThreadHandler(threads, intakeSvc, runs)
	handoffHandler := handlers.NewHandoffHandler(threads, draftingSvc)
	knowledgeHandler := handlers.NewKnowledgeHandler(ingestSvc, searchSvc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apmiddleware.AuthMiddleware)

		r.Route("/threads", func(r chi.Router) {
			r.Post("/", threadHandler.Create)                  // POST /api/v1/threads
			r.Get("/", threadHandler.List)                     // GET /api/v1/threads
			r.Get("/{id}", threadHandler.Get)                  // GET /api/v1/threads/{id}
			r.Post("/{id}/messages", threadHandler.PostMessage) // POST /api/v1/threads/{id}/messages
			r.Get("/{id}/runs", threadHandler.ListRuns)        // GET /api/v1/threads/{id}/runs
			r.Get("/{id}/handoff", handoffHandler.Get)         // GET /api/v1/threads/{id}/handoff
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/", knowledgeHandler.Ingest)       // POST /api/v1/knowledge
			r.Post("/search", knowledgeHandler.Search) // POST /api/v1/knowledge/search
		})
	})

	return r, cleanup, nil
}
