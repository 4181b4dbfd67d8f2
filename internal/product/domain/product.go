package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// InsufficientInventoryError rejects an adjustment that would drive
// inventory negative. The check and the write are one atomic statement in
// the repository, so the rejection happens at the point of mutation.
type InsufficientInventoryError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("product %s is out of stock: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// ValidationError marks a malformed or missing product field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Inventory   int             `json:"inventory"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p Product) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if p.Description == "" {
		return &ValidationError{Field: "description", Reason: "required"}
	}
	if p.Category == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if p.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "cannot be negative"}
	}
	if p.Inventory < 0 {
		return &ValidationError{Field: "inventory", Reason: "cannot be negative"}
	}
	return nil
}
