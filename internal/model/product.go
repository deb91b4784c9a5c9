package model

import "time"

// Product mirrors the `productos` table. Category is populated on single
// reads and is nil otherwise.
type Product struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"nombre"`
	Description *string    `json:"descripcion"`
	Stock       int        `json:"stock"`
	Price       float64    `json:"precio"`
	Weight      *float64   `json:"peso"`
	Available   bool       `json:"disponible"`
	ExpiresOn   *Date      `json:"fecha_vencimiento"`
	PublishedAt *time.Time `json:"publicado_en"`
	CategoryID  uint64     `json:"categoria_id"`
	Category    *Category  `json:"categoria,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProductListItem is the denormalized listing row: the category appears by
// name only.
type ProductListItem struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"nombre"`
	Description *string  `json:"descripcion"`
	Stock       int      `json:"stock"`
	Price       float64  `json:"precio"`
	Weight      *float64 `json:"peso"`
	Available   bool     `json:"disponible"`
	Category    string   `json:"categoria"`
}
