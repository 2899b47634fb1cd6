package domain

import (
	"time"
)

// Catalog item status values relevant to search. Only approved items are
// searchable and counted in facets.
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

// Variant is a purchasable variation of a product (color/size combination).
type Variant struct {
	ID    string `json:"id"`
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
	Stock int    `json:"stock"`
}

// Product is the search engine's read-only view of a catalog item.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	BrandID      string    `json:"brand_id"`
	BrandName    string    `json:"brand_name"`
	Price        int64     `json:"price"`
	Currency     string    `json:"currency"`
	Stock        int       `json:"stock"`
	Rating       float64   `json:"rating"`
	Featured     bool      `json:"featured"`
	Status       string    `json:"status"`
	ImageURL     string    `json:"image_url,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Variants     []Variant `json:"variants,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Score is the relevance score assigned by the active backend. It is a
	// per-request value, not a catalog attribute.
	Score float64 `json:"score,omitempty"`
}

// InStock reports whether the product has any sellable stock.
func (p *Product) InStock() bool {
	if p.Stock > 0 {
		return true
	}
	for _, v := range p.Variants {
		if v.Stock > 0 {
			return true
		}
	}
	return false
}
