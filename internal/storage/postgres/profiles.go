package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/storage"
)

const profileColumns = `id, owner_user_id, name, profile, created_at, updated_at`

func (p *PostgresStorage) ListProfiles(ctx context.Context, ownerUserID string) ([]storage.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM patient_profiles
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := p.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []storage.Profile{}
	for rows.Next() {
		var prof storage.Profile
		if err := rows.Scan(&prof.ID, &prof.OwnerUserID, &prof.Name, &prof.Data, &prof.CreatedAt, &prof.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, prof)
	}

	return profiles, rows.Err()
}

func (p *PostgresStorage) GetProfile(ctx context.Context, id uuid.UUID) (*storage.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM patient_profiles
		WHERE id = $1
	`

	var prof storage.Profile
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&prof.ID,
		&prof.OwnerUserID,
		&prof.Name,
		&prof.Data,
		&prof.CreatedAt,
		&prof.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	return &prof, nil
}

func (p *PostgresStorage) CreateProfile(ctx context.Context, profile *storage.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query := `
		INSERT INTO patient_profiles (id, owner_user_id, name, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := p.pool.Exec(ctx, query,
		profile.ID,
		profile.OwnerUserID,
		profile.Name,
		profile.Data,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (p *PostgresStorage) UpdateProfile(ctx context.Context, profile *storage.Profile) error {
	query := `
		UPDATE patient_profiles
		SET name = $2, profile = $3, updated_at = $4
		WHERE id = $1
		RETURNING owner_user_id, created_at, updated_at
	`

	err := p.pool.QueryRow(ctx, query,
		profile.ID,
		profile.Name,
		profile.Data,
		time.Now().UTC(),
	).Scan(&profile.OwnerUserID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return notFound(err)
	}

	return nil
}

func (p *PostgresStorage) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM patient_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}
