package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/product-catalog-api/internal/model"
)

// CategoryRepo encapsulates all queries on `categorias`.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// List returns id and name of every category ordered by name descending.
func (r *CategoryRepo) List(ctx context.Context) ([]model.CategorySummary, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, nombre FROM categorias ORDER BY nombre DESC")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []model.CategorySummary{}
	for rows.Next() {
		var c model.CategorySummary
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// GetByID returns ErrCategoryNotFound when no row matches.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx,
		"SELECT id, nombre, created_at, updated_at FROM categorias WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// Exists reports whether a category with id is present.
func (r *CategoryRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM categorias WHERE id = ? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("category exists: %w", err)
	}
	return true, nil
}

// Create inserts a category and reloads it so timestamps are populated.
func (r *CategoryRepo) Create(ctx context.Context, name string) (*model.Category, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO categorias (nombre) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert category id: %w", err)
	}
	return r.GetByID(ctx, uint64(id))
}

// Update renames a category. It returns ErrCategoryNotFound when no row
// matches.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, name string) (*model.Category, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE categorias SET nombre = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", name, id); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a category. Its products are removed by the
// ON DELETE CASCADE foreign key on productos.categoria_id.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categorias WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
