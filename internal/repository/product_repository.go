package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/product-catalog-api/internal/model"
)

// ProductRepo encapsulates all queries on `productos`. Reads always join the
// owning category.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

const productSelect = `SELECT p.id, p.nombre, p.descripcion, p.stock, p.precio, p.peso, p.disponible,
       p.fecha_vencimiento, p.publicado_en, p.categoria_id, p.created_at, p.updated_at,
       c.id, c.nombre, c.created_at, c.updated_at
  FROM productos p
  JOIN categorias c ON c.id = p.categoria_id`

// List returns the denormalized product listing ordered by id.
func (r *ProductRepo) List(ctx context.Context) ([]model.ProductListItem, error) {
	const q = `SELECT p.id, p.nombre, p.descripcion, p.stock, p.precio, p.peso, p.disponible, c.nombre
	             FROM productos p
	             JOIN categorias c ON c.id = p.categoria_id
	            ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []model.ProductListItem{}
	for rows.Next() {
		var p model.ProductListItem
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Stock, &p.Price, &p.Weight, &p.Available, &p.Category); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// GetByID loads a product with its category. It returns ErrProductNotFound
// when no row matches.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var (
		p model.Product
		c model.Category
	)
	err := r.db.QueryRowContext(ctx, productSelect+" WHERE p.id = ?", id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Stock, &p.Price, &p.Weight, &p.Available,
		&p.ExpiresOn, &p.PublishedAt, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
		&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p.Category = &c
	return &p, nil
}

// Create inserts p and returns the stored row. A category id rejected by the
// foreign key yields ErrCategoryNotFound.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	const q = `INSERT INTO productos
	           (nombre, descripcion, stock, precio, peso, disponible, fecha_vencimiento, publicado_en, categoria_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		p.Name, p.Description, p.Stock, p.Price, p.Weight, p.Available, p.ExpiresOn, p.PublishedAt, p.CategoryID)
	if err != nil {
		if isMySQLError(err, mysqlNoReferencedRow) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert product id: %w", err)
	}
	return r.GetByID(ctx, uint64(id))
}

// Update overwrites every mutable column of product id.
func (r *ProductRepo) Update(ctx context.Context, id uint64, p *model.Product) (*model.Product, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	const q = `UPDATE productos
	              SET nombre = ?, descripcion = ?, stock = ?, precio = ?, peso = ?, disponible = ?,
	                  fecha_vencimiento = ?, publicado_en = ?, categoria_id = ?, updated_at = CURRENT_TIMESTAMP
	            WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q,
		p.Name, p.Description, p.Stock, p.Price, p.Weight, p.Available, p.ExpiresOn, p.PublishedAt, p.CategoryID, id); err != nil {
		if isMySQLError(err, mysqlNoReferencedRow) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a product. It returns ErrProductNotFound when no row matches.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM productos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}
