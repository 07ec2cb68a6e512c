package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// Profile — сохранённый профиль пациента. Data holds the profile document as JSON.
type Profile struct {
	ID          uuid.UUID
	OwnerUserID string
	Name        string
	Data        []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfilesStorage — интерфейс для работы с профилями пациентов
type ProfilesStorage interface {
	// ListProfiles returns the profiles of one owner, oldest first
	ListProfiles(ctx context.Context, ownerUserID string) ([]Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	CreateProfile(ctx context.Context, profile *Profile) error
	UpdateProfile(ctx context.Context, profile *Profile) error
	DeleteProfile(ctx context.Context, id uuid.UUID) error
}

// RecipeRow — строка из recipes. Data holds the full recipe as JSON.
type RecipeRow struct {
	ID        string
	Name      string
	MealTypes []string
	Data      []byte
	UpdatedAt time.Time
}

type RecipesStorage interface {
	// ListRecipes returns every stored recipe ordered by id
	ListRecipes(ctx context.Context) ([]RecipeRow, error)
	// UpsertRecipes inserts or replaces recipes by id in one transaction
	UpsertRecipes(ctx context.Context, rows []RecipeRow) error
}

const (
	PlanStatusValid   = "valid"
	PlanStatusInvalid = "invalid"
)

// MealPlan — результат генерации плана питания
type MealPlan struct {
	ID           uuid.UUID
	OwnerUserID  string
	ProfileID    *uuid.UUID
	Status       string
	Requirements []byte // JSON
	Candidate    []byte // JSON, nil when no plan could be parsed
	Violations   []byte // JSON
	RawText      string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MealPlanFilter narrows ListMealPlans. Zero values mean no filter.
type MealPlanFilter struct {
	ProfileID *uuid.UUID
	Limit     int
}

type MealPlansStorage interface {
	CreateMealPlan(ctx context.Context, plan *MealPlan) error
	GetMealPlan(ctx context.Context, id uuid.UUID) (*MealPlan, error)
	// ListMealPlans returns the owner's plans, newest first
	ListMealPlans(ctx context.Context, ownerUserID string, filter MealPlanFilter) ([]MealPlan, error)
}

// Storage — все хранилища приложения
type Storage interface {
	ProfilesStorage
	RecipesStorage
	MealPlansStorage

	// Close закрывает соединение (для Postgres)
	Close() error
}
