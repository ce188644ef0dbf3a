// Package testfixtures provides types used by the provider and schemagen
// tests.
package testfixtures

import (
	"fmt"
	"time"
)

// Species classifies a pet.
type Species string

const (
	// SpeciesDog barks.
	SpeciesDog Species = "dog"
	// SpeciesCat meows.
	SpeciesCat Species = "cat"
)

// EnumValues lists every Species.
func (Species) EnumValues() []any { return []any{SpeciesDog, SpeciesCat} }

// Priority orders support tickets.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// EnumValues lists every Priority.
func (Priority) EnumValues() []any { return []any{PriorityLow, PriorityHigh} }

func (p Priority) String() string {
	if p == PriorityHigh {
		return "High"
	}
	return "Low"
}

// PetID identifies a pet.
type PetID int64

// Audit records who touched a record.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// Pet is an animal in the store.
type Pet struct {
	Audit

	// ID is assigned by the store.
	ID      PetID    `json:"id"`
	Name    string   `json:"name" validate:"required"`
	Species Species  `json:"species"`
	Tags    []string `json:"tags,omitempty"`
	Owner   *Owner   `json:"owner,omitempty"`
	Price   Money    `json:"price"`
}

// Owner is a person who owns pets.
type Owner struct {
	Name string `json:"name"`
	Pets []Pet  `json:"pets,omitempty"`
}

// CreatePetRequest creates a pet.
type CreatePetRequest struct {
	Name    string  `json:"name" validate:"required"`
	Species Species `json:"species"`
	Age     int     `json:"age,string"`
	Extra   any     `json:"extra,omitempty" transform:"erase"`
}

// ListPetsParams filters the pet listing.
type ListPetsParams struct {
	Limit   int32   `json:"limit" schema:"limit"`
	Species Species `json:"species,omitempty" schema:"species"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T  `json:"items"`
	Next  *int `json:"next,omitempty"`
}

// Pair holds two values.
type Pair[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// Money is encoded as a decimal string.
type Money struct {
	Cents int64
}

// MarshalText encodes m as "12.34".
func (m Money) MarshalText() ([]byte, error) {
	return fmt.Appendf(nil, "%d.%02d", m.Cents/100, m.Cents%100), nil
}

// Ticket is a support ticket.
type Ticket struct {
	Priority Priority `json:"priority"`
	Meta     struct {
		Source string `json:"source"`
	} `json:"meta"`
}

// Node is a recursive tree.
type Node struct {
	Value    string  `json:"value"`
	Children []*Node `json:"children,omitempty"`
}

// Headers are the request headers every pet endpoint reads.
type Headers struct {
	Token string `header:"authorization" json:"authorization"`
}
