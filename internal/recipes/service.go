package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fdg312/nutriplan/internal/storage"
)

const defaultSelectLimit = 10

// SelectRequest narrows the pool by meal type and optional free text before ranking.
type SelectRequest struct {
	MealType string `json:"meal_type,omitempty"`
	Query    string `json:"query,omitempty"`
	Criteria
}

// SimilarRequest searches replacements for a recipe or an explicit target.
type SimilarRequest struct {
	RecipeID  string       `json:"recipe_id,omitempty"`
	Target    *MacroTarget `json:"target,omitempty"`
	MealType  string       `json:"meal_type,omitempty"`
	Tolerance float64      `json:"tolerance,omitempty"`
	Limit     int          `json:"limit,omitempty"`
}

type CandidatesResponse struct {
	Candidates []Candidate `json:"candidates"`
	Total      int         `json:"total"`
}

// Service — каталог рецептов и подбор. The active catalog is swapped atomically on Reload.
type Service struct {
	store    storage.RecipesStorage
	seed     *Catalog
	selector *Selector
	logger   zerolog.Logger

	mu        sync.RWMutex
	catalog   *Catalog
	retriever Retriever
}

// NewService starts with the seed catalog. store may be nil.
func NewService(seed *Catalog, selector *Selector, store storage.RecipesStorage, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		seed:      seed,
		selector:  selector,
		logger:    logger,
		catalog:   seed,
		retriever: NewIndexRetriever(seed),
	}
}

// Reload reads stored recipes. An empty table keeps the seed catalog.
func (s *Service) Reload(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	rows, err := s.store.ListRecipes(ctx)
	if err != nil {
		return fmt.Errorf("list recipes: %w", err)
	}
	if len(rows) == 0 {
		s.logger.Info().Int("recipes", s.seed.Len()).Msg("recipe table empty, using embedded catalog")
		s.swap(s.seed)
		return nil
	}

	list := make([]Recipe, 0, len(rows))
	for _, row := range rows {
		var r Recipe
		if err := json.Unmarshal(row.Data, &r); err != nil {
			return fmt.Errorf("%w: stored %s: %v", ErrInvalidRecipe, row.ID, err)
		}
		list = append(list, r)
	}
	cat, err := NewCatalog(list)
	if err != nil {
		return err
	}
	s.logger.Info().Int("recipes", cat.Len()).Msg("recipe catalog loaded from storage")
	s.swap(cat)
	return nil
}

func (s *Service) swap(c *Catalog) {
	s.mu.Lock()
	s.catalog = c
	s.retriever = NewIndexRetriever(c)
	s.mu.Unlock()
}

// Import validates recipes, stores them and reloads the catalog.
func (s *Service) Import(ctx context.Context, list []Recipe) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("import recipes: no storage configured")
	}
	if _, err := NewCatalog(list); err != nil {
		return 0, err
	}
	rows := make([]storage.RecipeRow, 0, len(list))
	now := time.Now().UTC()
	for _, r := range list {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", r.ID, err)
		}
		rows = append(rows, storage.RecipeRow{ID: r.ID, Name: r.Name, MealTypes: r.MealTypes, Data: data, UpdatedAt: now})
	}
	if err := s.store.UpsertRecipes(ctx, rows); err != nil {
		return 0, fmt.Errorf("upsert recipes: %w", err)
	}
	return len(rows), s.Reload(ctx)
}

func (s *Service) Catalog() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

func (s *Service) Selector() *Selector {
	return s.selector
}

func (s *Service) Get(id string) (Recipe, error) {
	r, ok := s.Catalog().Get(id)
	if !ok {
		return Recipe{}, ErrNotFound
	}
	return r, nil
}

// Select ranks recipes of a meal type. Query text goes through the retriever first.
func (s *Service) Select(ctx context.Context, req SelectRequest) (*CandidatesResponse, error) {
	s.mu.RLock()
	cat, retriever := s.catalog, s.retriever
	s.mu.RUnlock()

	var pool []Recipe
	if strings.TrimSpace(req.Query) != "" {
		found, err := retriever.Search(ctx, Query{Text: req.Query, MealType: req.MealType})
		if err != nil {
			return nil, fmt.Errorf("search recipes: %w", err)
		}
		pool = found
	} else if req.MealType != "" {
		pool = cat.ByMealType(req.MealType)
	} else {
		pool = cat.All()
	}

	crit := req.Criteria
	if crit.Limit <= 0 {
		crit.Limit = defaultSelectLimit
	}
	out := s.selector.Select(pool, crit)
	return &CandidatesResponse{Candidates: out, Total: len(out)}, nil
}

// Similar finds replacements. With RecipeID the recipe itself is excluded and
// its macros become the target.
func (s *Service) Similar(req SimilarRequest) (*CandidatesResponse, error) {
	cat := s.Catalog()

	var target MacroTarget
	switch {
	case req.RecipeID != "":
		r, ok := cat.Get(req.RecipeID)
		if !ok {
			return nil, ErrNotFound
		}
		target = MacroTarget{ProteinG: r.ProteinG, CarbsG: r.CarbsG, FatG: r.FatG}
		if req.MealType == "" && len(r.MealTypes) > 0 {
			req.MealType = r.MealTypes[0]
		}
	case req.Target != nil:
		target = *req.Target
	default:
		return nil, fmt.Errorf("%w: recipe_id or target is required", ErrInvalidRecipe)
	}

	pool := cat.All()
	if req.MealType != "" {
		pool = cat.ByMealType(req.MealType)
	}
	if req.RecipeID != "" {
		id := strings.ToUpper(strings.TrimSpace(req.RecipeID))
		kept := pool[:0]
		for _, r := range pool {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		pool = kept
	}

	out := Similar(pool, target, req.Tolerance)
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return &CandidatesResponse{Candidates: out, Total: len(out)}, nil
}
