package postgres

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates ULID-based IDs. ULIDs sort by creation time,
// which keeps the ascending-id lock order roughly aligned with account age.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

// UUIDGenerator generates random UUIDv4 IDs, for deployments that prefer
// opaque identifiers over time-sortable ones.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate generates a new UUID.
func (g *UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// NewIDGenerator picks a generator by name: "uuid" or "ulid" (default).
func NewIDGenerator(kind string) interface{ Generate() string } {
	if kind == "uuid" {
		return NewUUIDGenerator()
	}

	return NewULIDGenerator()
}
