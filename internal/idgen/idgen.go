// Package idgen generates the globally unique identifiers the ledger engine
// assigns to new transactions.
package idgen

import "github.com/google/uuid"

// Generator returns a new unique identifier on every call.
type Generator interface {
	NewID() string
}

// UUIDGenerator generates random (v4) UUIDs using google/uuid.
type UUIDGenerator struct{}

// NewID returns a new random UUID string.
func (UUIDGenerator) NewID() string { return uuid.New().String() }
