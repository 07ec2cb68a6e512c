package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/storage"
)

const mealPlanColumns = `id, owner_user_id, profile_id, status, requirements, candidate, violations,
	raw_text, attempts, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMealPlan(row rowScanner) (storage.MealPlan, error) {
	var plan storage.MealPlan
	err := row.Scan(
		&plan.ID,
		&plan.OwnerUserID,
		&plan.ProfileID,
		&plan.Status,
		&plan.Requirements,
		&plan.Candidate,
		&plan.Violations,
		&plan.RawText,
		&plan.Attempts,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	return plan, err
}

func (p *PostgresStorage) CreateMealPlan(ctx context.Context, plan *storage.MealPlan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	query := `
		INSERT INTO meal_plans (` + mealPlanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := p.pool.Exec(ctx, query,
		plan.ID,
		plan.OwnerUserID,
		plan.ProfileID,
		plan.Status,
		plan.Requirements,
		plan.Candidate,
		plan.Violations,
		plan.RawText,
		plan.Attempts,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meal plan: %w", err)
	}
	return nil
}

func (p *PostgresStorage) GetMealPlan(ctx context.Context, id uuid.UUID) (*storage.MealPlan, error) {
	query := `SELECT ` + mealPlanColumns + ` FROM meal_plans WHERE id = $1`

	plan, err := scanMealPlan(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &plan, nil
}

func (p *PostgresStorage) ListMealPlans(ctx context.Context, ownerUserID string, filter storage.MealPlanFilter) ([]storage.MealPlan, error) {
	query := `
		SELECT ` + mealPlanColumns + `
		FROM meal_plans
		WHERE owner_user_id = $1 AND ($2::uuid IS NULL OR profile_id = $2)
		ORDER BY created_at DESC
	`
	args := []any{ownerUserID, filter.ProfileID}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	plans := []storage.MealPlan{}
	for rows.Next() {
		plan, err := scanMealPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		plans = append(plans, plan)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating meal plans: %w", rows.Err())
	}

	return plans, nil
}
