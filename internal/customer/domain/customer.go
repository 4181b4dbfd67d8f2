package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrDuplicateEmail   = errors.New("a customer with this email already exists")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Address is a customer address book entry; one may be the default.
type Address struct {
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	IsDefault bool   `json:"isDefault"`
}

type Customer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Addresses []Address `json:"addresses"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Customer) Normalize() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
}

func (c Customer) Validate() error {
	if c.FirstName == "" {
		return &ValidationError{Field: "firstName", Reason: "required"}
	}
	if c.LastName == "" {
		return &ValidationError{Field: "lastName", Reason: "required"}
	}
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		return &ValidationError{Field: "email", Reason: "a valid email is required"}
	}
	return nil
}
