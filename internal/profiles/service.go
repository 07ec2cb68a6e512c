package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/storage"
)

var ErrNotFound = errors.New("profile not found")

const defaultProfileName = "Paciente"

// Service — CRUD профилей пациентов с проверкой владельца
type Service struct {
	storage storage.ProfilesStorage
}

func NewService(st storage.ProfilesStorage) *Service {
	return &Service{storage: st}
}

func (s *Service) ListProfiles(ctx context.Context, ownerUserID string) ([]ProfileDTO, error) {
	rows, err := s.storage.ListProfiles(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	dtos := make([]ProfileDTO, 0, len(rows))
	for _, row := range rows {
		dto, err := toDTO(row)
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// GetProfile returns ErrNotFound for profiles of other owners.
func (s *Service) GetProfile(ctx context.Context, ownerUserID string, id uuid.UUID) (*ProfileDTO, error) {
	row, err := s.owned(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	dto, err := toDTO(*row)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// CreateProfile validates and stores p. Invalid input returns *ValidationError.
func (s *Service) CreateProfile(ctx context.Context, ownerUserID string, p PatientProfile) (*ProfileDTO, error) {
	row, err := encode(p)
	if err != nil {
		return nil, err
	}
	row.OwnerUserID = ownerUserID

	if err := s.storage.CreateProfile(ctx, row); err != nil {
		return nil, err
	}
	dto, err := toDTO(*row)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// UpdateProfile replaces the stored profile document.
func (s *Service) UpdateProfile(ctx context.Context, ownerUserID string, id uuid.UUID, p PatientProfile) (*ProfileDTO, error) {
	if _, err := s.owned(ctx, ownerUserID, id); err != nil {
		return nil, err
	}

	row, err := encode(p)
	if err != nil {
		return nil, err
	}
	row.ID = id
	row.OwnerUserID = ownerUserID

	if err := s.storage.UpdateProfile(ctx, row); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	dto, err := toDTO(*row)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *Service) DeleteProfile(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	if _, err := s.owned(ctx, ownerUserID, id); err != nil {
		return err
	}
	if err := s.storage.DeleteProfile(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Resolve loads a stored profile as planning input.
func (s *Service) Resolve(ctx context.Context, ownerUserID string, id uuid.UUID) (PatientProfile, error) {
	dto, err := s.GetProfile(ctx, ownerUserID, id)
	if err != nil {
		return PatientProfile{}, err
	}
	return dto.Profile, nil
}

func (s *Service) owned(ctx context.Context, ownerUserID string, id uuid.UUID) (*storage.Profile, error) {
	row, err := s.storage.GetProfile(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if row.OwnerUserID != ownerUserID {
		return nil, ErrNotFound
	}
	return row, nil
}

func encode(p PatientProfile) (*storage.Profile, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = defaultProfileName
	}
	return &storage.Profile{Name: name, Data: data}, nil
}

func toDTO(row storage.Profile) (ProfileDTO, error) {
	var p PatientProfile
	if err := json.Unmarshal(row.Data, &p); err != nil {
		return ProfileDTO{}, fmt.Errorf("decode profile %s: %w", row.ID, err)
	}
	return ProfileDTO{
		ID:          row.ID,
		OwnerUserID: row.OwnerUserID,
		Name:        row.Name,
		Profile:     p,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
