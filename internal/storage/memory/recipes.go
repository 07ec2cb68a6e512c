package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fdg312/nutriplan/internal/storage"
)

type recipesStorage struct {
	guarded
	rows map[string]storage.RecipeRow
}

func newRecipesStorage() *recipesStorage {
	return &recipesStorage{rows: make(map[string]storage.RecipeRow)}
}

func (m *MemoryStorage) ListRecipes(ctx context.Context) ([]storage.RecipeRow, error) {
	s := m.recipes
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.RecipeRow, 0, len(s.rows))
	for _, row := range s.rows {
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryStorage) UpsertRecipes(ctx context.Context, rows []storage.RecipeRow) error {
	s := m.recipes
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, row := range rows {
		row.MealTypes = append([]string(nil), row.MealTypes...)
		row.Data = append([]byte(nil), row.Data...)
		row.UpdatedAt = now
		s.rows[row.ID] = row
	}
	return nil
}
