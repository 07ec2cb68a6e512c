package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/fdg312/nutriplan/internal/ai"
	"github.com/fdg312/nutriplan/internal/auth"
	"github.com/fdg312/nutriplan/internal/blob"
	"github.com/fdg312/nutriplan/internal/config"
	"github.com/fdg312/nutriplan/internal/logging"
	"github.com/fdg312/nutriplan/internal/mealplans"
	"github.com/fdg312/nutriplan/internal/nutrition"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/recipes"
	"github.com/fdg312/nutriplan/internal/reports"
	"github.com/fdg312/nutriplan/internal/storage"
	"github.com/fdg312/nutriplan/internal/storage/memory"
	"github.com/fdg312/nutriplan/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

// Server представляет HTTP сервер
type Server struct {
	config      *config.Config
	logger      zerolog.Logger
	mux         *http.ServeMux
	handler     http.Handler
	storage     storage.Storage
	storageKind string
	blobStore   blob.Store
	provider    ai.Provider
}

// New создаёт сервер: storage (Postgres или memory), blob store для отчётов, AI провайдер.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	st, kind := initStorage(ctx, cfg, logger)

	reportsCfg := cfg.Blob
	reportsCfg.Mode = cfg.Blob.EffectiveReportsMode()
	store, _, err := blob.NewBlobStore(ctx, reportsCfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	s, err := NewWithStorage(ctx, cfg, logger, st, store)
	if err != nil {
		st.Close()
		return nil, err
	}
	s.storageKind = kind
	return s, nil
}

// NewWithStorage wires the server on an existing storage and blob store. store may be nil.
func NewWithStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger, st storage.Storage, store blob.Store) (*Server, error) {
	provider, err := ai.NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:      cfg,
		logger:      logger,
		mux:         http.NewServeMux(),
		storage:     st,
		storageKind: "memory",
		blobStore:   store,
		provider:    provider,
	}
	if err := s.routes(ctx); err != nil {
		return nil, err
	}

	authMiddleware := auth.NewMiddleware(cfg, auth.NewService(cfg), logger)

	// outermost first: Recovery → request log → CORS → rate limit → auth → router
	var h http.Handler = s.mux
	h = authMiddleware.Handler(h)
	h = RateLimitMiddleware(cfg, h)
	h = CORSMiddleware(cfg, h)
	h = logging.Middleware(logger)(h)
	h = logging.Recovery(logger)(h)
	s.handler = h
	return s, nil
}

// initStorage инициализирует storage (Memory или Postgres)
func initStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.Storage, string) {
	if cfg.DatabaseURL == "" {
		logger.Info().Msg("storage: in-memory")
		return memory.New(), "memory"
	}

	pg, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error().Err(err).Msg("storage: postgres unavailable, fallback=memory")
		return memory.New(), "memory"
	}
	logger.Info().Msg("storage: postgres connected")
	return pg, "postgres"
}

func (s *Server) recipeCatalog() (*recipes.Catalog, error) {
	if s.config.RecipesFile == "" {
		return recipes.Default()
	}
	f, err := os.Open(s.config.RecipesFile)
	if err != nil {
		return nil, fmt.Errorf("open RECIPES_FILE: %w", err)
	}
	defer f.Close()
	return recipes.LoadCatalog(f)
}

// routes регистрирует маршруты
func (s *Server) routes(ctx context.Context) error {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Auth API
	authHandlers := auth.NewHandlers(s.config, auth.NewService(s.config))
	s.mux.HandleFunc("POST /v1/auth/token", authHandlers.HandleIssueToken)

	// Profiles API
	profileService := profiles.NewService(s.storage)
	profileHandler := profiles.NewHandler(profileService)
	s.mux.HandleFunc("GET /v1/profiles", profileHandler.HandleList)
	s.mux.HandleFunc("POST /v1/profiles", profileHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/profiles/{id}", profileHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/profiles/{id}", profileHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/profiles/{id}", profileHandler.HandleDelete)

	// Nutrition API
	nutritionService, err := nutrition.NewDefaultService(s.logger)
	if err != nil {
		return fmt.Errorf("nutrition catalogs: %w", err)
	}
	nutritionHandler := nutrition.NewHandler(nutritionService, profileService)
	s.mux.HandleFunc("POST /v1/nutrition/requirements", nutritionHandler.HandleRequirements)
	s.mux.HandleFunc("POST /v1/nutrition/distribution", nutritionHandler.HandleDistribution)
	s.mux.HandleFunc("POST /v1/interactions/check", nutritionHandler.HandleCheckInteractions)
	s.mux.HandleFunc("POST /v1/conditions/detect", nutritionHandler.HandleDetect)
	s.mux.HandleFunc("GET /v1/conditions", nutritionHandler.HandleListConditions)

	// Recipes API
	seed, err := s.recipeCatalog()
	if err != nil {
		return fmt.Errorf("recipe catalog: %w", err)
	}
	filters, err := recipes.DefaultFilters()
	if err != nil {
		return fmt.Errorf("recipe filters: %w", err)
	}
	selector := recipes.NewSelector(nutritionService.Conditions(), filters)
	recipeService := recipes.NewService(seed, selector, s.storage, s.logger)
	if err := recipeService.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("recipes: stored catalog unusable, keeping seed")
	}
	recipeHandler := recipes.NewHandler(recipeService)
	s.mux.HandleFunc("POST /v1/recipes/select", recipeHandler.HandleSelect)
	s.mux.HandleFunc("POST /v1/recipes/similar", recipeHandler.HandleSimilar)
	s.mux.HandleFunc("GET /v1/recipes/{id}", recipeHandler.HandleGet)

	// Meal plans API
	mealPlanService := mealplans.NewService(s.storage, nutritionService, recipeService, profileService, s.provider, mealplans.Config{
		Tolerance:      s.config.Plan.Tolerance,
		MaxAttempts:    s.config.Plan.MaxAttempts,
		RecipesPerSlot: s.config.Plan.RecipesPerSlot,
		MaxTokens:      s.config.AIMaxOutputTokens,
		Temperature:    s.config.AITemperature,
	}, s.logger)
	mealPlanHandler := mealplans.NewHandler(mealPlanService)
	s.mux.HandleFunc("POST /v1/meal-plans/generate", mealPlanHandler.HandleGenerate)
	s.mux.HandleFunc("POST /v1/meal-plans/validate", mealPlanHandler.HandleValidate)
	s.mux.HandleFunc("POST /v1/meal-plans/control", mealPlanHandler.HandleControl)
	s.mux.HandleFunc("POST /v1/meal-plans/replace-meal", mealPlanHandler.HandleReplaceMeal)
	s.mux.HandleFunc("GET /v1/meal-plans", mealPlanHandler.HandleList)
	s.mux.HandleFunc("GET /v1/meal-plans/{id}", mealPlanHandler.HandleGet)

	// Reports API
	reportService := reports.NewService(mealPlanService, s.blobStore, reports.Options{
		PresignTTLSeconds: s.config.Blob.S3.PresignTTLSeconds,
		PublicBaseURL:     s.config.Blob.S3.PublicBaseURL,
		PreferPublicURL:   s.config.Blob.S3.PreferPublicURL,
	}, s.logger)
	reportHandlers := reports.NewHandlers(reportService)
	s.mux.HandleFunc("GET /v1/meal-plans/{id}/report", reportHandlers.HandleReport)

	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	profiles.SendJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.storageKind,
		"ai":      s.provider.Name(),
	})
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
