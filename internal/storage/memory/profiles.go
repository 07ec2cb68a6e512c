package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/storage"
)

type profilesStorage struct {
	guarded
	items map[uuid.UUID]storage.Profile
}

func newProfilesStorage() *profilesStorage {
	return &profilesStorage{items: make(map[uuid.UUID]storage.Profile)}
}

func (m *MemoryStorage) ListProfiles(ctx context.Context, ownerUserID string) ([]storage.Profile, error) {
	s := m.profiles
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []storage.Profile{}
	for _, p := range s.items {
		if p.OwnerUserID == ownerUserID {
			result = append(result, clonedProfile(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStorage) GetProfile(ctx context.Context, id uuid.UUID) (*storage.Profile, error) {
	s := m.profiles
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := clonedProfile(p)
	return &out, nil
}

func (m *MemoryStorage) CreateProfile(ctx context.Context, profile *storage.Profile) error {
	s := m.profiles
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.items[profile.ID] = clonedProfile(*profile)
	return nil
}

func (m *MemoryStorage) UpdateProfile(ctx context.Context, profile *storage.Profile) error {
	s := m.profiles
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[profile.ID]
	if !ok {
		return storage.ErrNotFound
	}
	profile.OwnerUserID = existing.OwnerUserID
	profile.CreatedAt = existing.CreatedAt
	profile.UpdatedAt = time.Now().UTC()
	s.items[profile.ID] = clonedProfile(*profile)
	return nil
}

func (m *MemoryStorage) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	s := m.profiles
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func clonedProfile(p storage.Profile) storage.Profile {
	p.Data = append([]byte(nil), p.Data...)
	return p
}
