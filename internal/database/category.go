package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/D34dlyK1ss/whoisit/internal/models"
)

// CreateCategory inserts a category with its items stored as jsonb.
func CreateCategory(ctx context.Context, cat *models.Category) error {
	if cat.ID == uuid.Nil {
		cat.ID = uuid.New()
	}

	q := `INSERT INTO categories (id, owner_id, name, items, is_public)
	      VALUES ($1, $2, $3, $4, $5)`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, cat.ID, cat.OwnerID, cat.Name, cat.Items, cat.IsPublic)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// GetCategoryByID loads one category with its items.
func GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var cat models.Category
	q := `SELECT id, owner_id, name, items, is_public FROM categories WHERE id=$1`
	err := DB.QueryRow(ctx, q, id).Scan(&cat.ID, &cat.OwnerID, &cat.Name, &cat.Items, &cat.IsPublic)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// ListCategories returns every public category plus the requester's own
// private ones.
func ListCategories(ctx context.Context, requesterID uuid.UUID) ([]models.Category, error) {
	q := `
	SELECT id, owner_id, name, items, is_public
	FROM categories
	WHERE is_public = true OR owner_id = $1
	ORDER BY name
	`
	rows, err := DB.Query(ctx, q, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.OwnerID, &cat.Name, &cat.Items, &cat.IsPublic); err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}
