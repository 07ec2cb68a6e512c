package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/storage"
)

type mealPlansStorage struct {
	guarded
	plans map[uuid.UUID]storage.MealPlan
}

func newMealPlansStorage() *mealPlansStorage {
	return &mealPlansStorage{plans: make(map[uuid.UUID]storage.MealPlan)}
}

func (m *MemoryStorage) CreateMealPlan(ctx context.Context, plan *storage.MealPlan) error {
	s := m.mealPlans
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	s.plans[plan.ID] = *plan
	return nil
}

func (m *MemoryStorage) GetMealPlan(ctx context.Context, id uuid.UUID) (*storage.MealPlan, error) {
	s := m.mealPlans
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &plan, nil
}

func (m *MemoryStorage) ListMealPlans(ctx context.Context, ownerUserID string, filter storage.MealPlanFilter) ([]storage.MealPlan, error) {
	s := m.mealPlans
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []storage.MealPlan{}
	for _, plan := range s.plans {
		if plan.OwnerUserID != ownerUserID {
			continue
		}
		if filter.ProfileID != nil && (plan.ProfileID == nil || *plan.ProfileID != *filter.ProfileID) {
			continue
		}
		result = append(result, plan)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}
