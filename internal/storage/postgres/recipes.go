package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fdg312/nutriplan/internal/storage"
)

func (p *PostgresStorage) ListRecipes(ctx context.Context) ([]storage.RecipeRow, error) {
	query := `
		SELECT id, name, meal_types, data, updated_at
		FROM recipes
		ORDER BY id ASC
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	result := []storage.RecipeRow{}
	for rows.Next() {
		var row storage.RecipeRow
		if err := rows.Scan(&row.ID, &row.Name, &row.MealTypes, &row.Data, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		result = append(result, row)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", rows.Err())
	}

	return result, nil
}

func (p *PostgresStorage) UpsertRecipes(ctx context.Context, rows []storage.RecipeRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO recipes (id, name, meal_types, data, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, meal_types = EXCLUDED.meal_types, data = EXCLUDED.data, updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, row.ID, row.Name, row.MealTypes, row.Data)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert recipes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
