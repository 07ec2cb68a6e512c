package memory

import (
	"sync"
)

// MemoryStorage — in-memory реализация storage.Storage
type MemoryStorage struct {
	profiles  *profilesStorage
	recipes   *recipesStorage
	mealPlans *mealPlansStorage
}

// New создаёт пустое in-memory хранилище
func New() *MemoryStorage {
	return &MemoryStorage{
		profiles:  newProfilesStorage(),
		recipes:   newRecipesStorage(),
		mealPlans: newMealPlansStorage(),
	}
}

func (m *MemoryStorage) Close() error {
	return nil
}

type guarded struct {
	mu sync.RWMutex
}
