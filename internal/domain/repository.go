// Package domain provides the business objects that load, validate and store
// configured entities, independent of the storage engine.
package domain

import (
	"context"
	"fmt"
	"strings"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/domain/filter"
	"gwin/internal/metadata"
)

// --- Query & Pagination ---

// Query selects the entities returned by GetAll.
type Query struct {
	// PageStart is 1-based. PageStart and PageSize both zero select every row.
	PageStart int
	PageSize  int

	// Where holds predicates on property names.
	Where []filter.Item

	// OrderBy is a property name, "-Name" for descending. Defaults to "-ID".
	OrderBy string

	// Include names relationship properties to load: many-to-one targets go
	// into their "into" field, collections get their id lists.
	Include []string
}

// Paged reports whether the query selects one page.
func (q Query) Paged() bool {
	return q.PageStart != 0 || q.PageSize != 0
}

// Offset returns the number of rows skipped by the page.
func (q Query) Offset() uint64 {
	if q.PageStart <= 1 {
		return 0
	}
	return uint64(q.PageStart-1) * uint64(q.PageSize)
}

// Validate checks paging and include names against def.
func (q Query) Validate(def *metadata.Entity) error {
	if q.PageStart < 0 || q.PageSize < 0 {
		return apperror.NewInvalidInput("page start and page size must not be negative")
	}
	if q.Paged() && q.PageSize == 0 {
		return apperror.NewInvalidInput("page size is required when a page is requested").
			WithDetail("pageStart", q.PageStart)
	}
	for _, name := range q.Include {
		p, ok := def.Property(name)
		if !ok || p.Relation == nil {
			return apperror.NewInvalidInput(fmt.Sprintf("%s is not a relationship of %s", name, def.Name)).
				WithDetail("include", name)
		}
	}
	for _, item := range q.Where {
		if _, ok := def.Property(item.Field); !ok {
			return apperror.NewUnsupportedCriterion(def.Name, item.Field, "no such property")
		}
		if !item.Operator.Valid() {
			return apperror.NewUnsupportedCriterion(def.Name, item.Field, "unknown operator "+string(item.Operator))
		}
	}
	if name := strings.TrimLeft(q.OrderBy, "+-"); name != "" {
		p, ok := def.Property(name)
		if !ok || !p.Persisted() {
			return apperror.NewInvalidInput("invalid orderBy").WithDetail("orderBy", q.OrderBy)
		}
	}
	return nil
}

// ListResult contains one page and the size of the whole selection.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	PageStart  int   `json:"pageStart,omitempty"`
	PageSize   int   `json:"pageSize,omitempty"`
}

// --- Repository Interfaces ---

// Repository persists the entities of one configuration. Implementations run
// on the transaction carried by ctx when there is one.
type Repository interface {
	// Insert stores a new entity and sets its ID.
	Insert(ctx context.Context, e entity.Entity) error

	// Update rewrites the owner row and returns the affected rows.
	Update(ctx context.Context, e entity.Entity) (int64, error)

	// Delete removes the row, returning the affected rows.
	Delete(ctx context.Context, id int64) (int64, error)

	// GetByID loads one entity; a missing row is an apperror not found.
	GetByID(ctx context.Context, id int64) (entity.Entity, error)

	// List returns the entities selected by q, without includes.
	List(ctx context.Context, q Query) ([]entity.Entity, error)

	// Count returns the number of rows matching where.
	Count(ctx context.Context, where []filter.Item) (int64, error)

	// SaveLinks replaces the join rows of every many-to-many property of e
	// and returns the rows written.
	SaveLinks(ctx context.Context, e entity.Entity) (int64, error)

	// Include loads the named relationship properties into items.
	Include(ctx context.Context, items []entity.Entity, props []string) error
}

// Store opens repositories for entity configurations.
type Store interface {
	Repository(def *metadata.Entity) Repository
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
	BeforeDelete HookEvent = "before_delete"
	AfterDelete  HookEvent = "after_delete"
)

// FieldChanged is the event raised after the user edits field on an entry form.
func FieldChanged(field string) HookEvent {
	return HookEvent("field_changed:" + field)
}

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// OnBeforeSave registers a hook to run before both create and update.
func (r *HookRegistry[T]) OnBeforeSave(hook Hook[T]) {
	r.On(BeforeCreate, hook)
	r.On(BeforeUpdate, hook)
}

// OnAfterSave registers a hook to run after both create and update.
func (r *HookRegistry[T]) OnAfterSave(hook Hook[T]) {
	r.On(AfterCreate, hook)
	r.On(AfterUpdate, hook)
}

// OnBeforeDelete registers a hook to run before delete.
func (r *HookRegistry[T]) OnBeforeDelete(hook Hook[T]) {
	r.On(BeforeDelete, hook)
}

// OnAfterDelete registers a hook to run after delete.
func (r *HookRegistry[T]) OnAfterDelete(hook Hook[T]) {
	r.On(AfterDelete, hook)
}

// OnFieldChanged registers a business rule run after field changes on a form.
func (r *HookRegistry[T]) OnFieldChanged(field string, hook Hook[T]) {
	r.On(FieldChanged(field), hook)
}
