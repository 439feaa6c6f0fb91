// Package entity provides the base type embedded by every persisted entity.
package entity

import (
	"context"
	"time"
)

// Entity is implemented by pointers to structs embedding BaseEntity.
type Entity interface {
	Base() *BaseEntity
}

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// BaseEntity contains the fields shared by all entities.
//
// The struct tag of the embedded BaseEntity field carries the entity-level
// options (display member, localizable flag, menu group, table name), see
// package metadata.
type BaseEntity struct {
	// ID is the primary key; ID <= 0 means the entity is not persisted yet.
	ID int64 `db:"id" json:"id"`

	// Order is the display order, assigned to count+1 on first save when zero.
	Order int `db:"sort_order" json:"order"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Base implements Entity.
func (b *BaseEntity) Base() *BaseEntity {
	return b
}

// IsPersisted reports whether the entity has been stored.
func (b *BaseEntity) IsPersisted() bool {
	return b.ID > 0
}

// Touch sets the modification timestamp.
func (b *BaseEntity) Touch(now time.Time) {
	b.UpdatedAt = now
}

// Stamp sets both timestamps for a first insert.
func (b *BaseEntity) Stamp(now time.Time) {
	b.CreatedAt = now
	b.UpdatedAt = now
}
