package model

import "time"

// Category mirrors the `categorias` table. Deleting a category removes its
// products through the foreign key.
type Category struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"nombre"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategorySummary is the listing view: id and name only.
type CategorySummary struct {
	ID   uint64 `json:"id"`
	Name string `json:"nombre"`
}
