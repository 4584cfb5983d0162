package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meal-prep-planner/internal/database"

	"github.com/google/uuid"
)

// Repository is a SQLite-backed Store. Each row keeps the recipe as a JSON document.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns every recipe in insertion order.
func (r *Repository) List(ctx context.Context) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM recipes ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list recipes: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	recipes := []Recipe{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("%w: failed to scan recipe row: %w", ErrStorageUnavailable, err)
		}
		rec, err := decode(id, data)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate recipes: %w", ErrStorageUnavailable, err)
	}
	return recipes, nil
}

// Get retrieves a recipe by its ID.
func (r *Repository) Get(ctx context.Context, id string) (Recipe, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Recipe{}, ErrNotFound
	}
	if err != nil {
		return Recipe{}, fmt.Errorf("%w: failed to get recipe by ID: %w", ErrStorageUnavailable, err)
	}
	return decode(id, data)
}

// Create stores a new recipe under a fresh id.
func (r *Repository) Create(ctx context.Context, f Fields) (Recipe, error) {
	if err := f.Validate(); err != nil {
		return Recipe{}, err
	}
	rec := New(uuid.NewString(), f)
	if err := r.Save(ctx, rec); err != nil {
		return Recipe{}, err
	}
	return rec, nil
}

// Update merges f into the stored recipe inside a transaction.
func (r *Repository) Update(ctx context.Context, id string, f Fields) (Recipe, error) {
	if err := f.Validate(); err != nil {
		return Recipe{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Recipe{}, fmt.Errorf("%w: failed to begin transaction: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM recipes WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Recipe{}, ErrNotFound
	}
	if err != nil {
		return Recipe{}, fmt.Errorf("%w: failed to load recipe: %w", ErrStorageUnavailable, err)
	}

	rec, err := decode(id, data)
	if err != nil {
		return Recipe{}, err
	}
	f.Apply(&rec)

	encoded, err := json.Marshal(rec)
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE recipes SET data = ?, updated_at = ? WHERE id = ?`,
		string(encoded), time.Now().UTC().Format(database.TimeLayout), id,
	); err != nil {
		return Recipe{}, fmt.Errorf("%w: failed to update recipe: %w", ErrStorageUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return Recipe{}, fmt.Errorf("%w: failed to commit recipe update: %w", ErrStorageUnavailable, err)
	}
	return rec, nil
}

// Delete removes a recipe.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete recipe: %w", ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to read affected rows: %w", ErrStorageUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Save inserts or replaces a recipe keeping its id. Used when importing collections.
func (r *Repository) Save(ctx context.Context, rec Recipe) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes (id, data, updated_at, position)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM recipes))
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		rec.ID, string(encoded), time.Now().UTC().Format(database.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save recipe: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count recipes: %w", ErrStorageUnavailable, err)
	}
	return n, nil
}

func decode(id, data string) (Recipe, error) {
	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Recipe{}, fmt.Errorf("%w: failed to unmarshal recipe %s: %w", ErrStorageUnavailable, id, err)
	}
	rec.ID = id
	return rec, nil
}
