package domain

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/tx"
	"gwin/internal/core/usermsg"
	"gwin/internal/domain/filter"
	"gwin/internal/metadata"
	"gwin/pkg/logger"
)

// SaveFailed is returned by Save instead of a row count when the entity was not stored.
const SaveFailed int64 = -1

// Gateway is the generic business object of entity type T (a pointer to a
// struct embedding entity.BaseEntity). It runs storage operations in
// transactions, applies lifecycle hooks and reports recoverable failures on its
// message board.
//
// Specialized business objects embed *Gateway[T] and register hooks, see
// package catalogs.
type Gateway[T entity.Entity] struct {
	def    *metadata.Entity
	repo   Repository
	tx     tx.Manager
	hooks  *HookRegistry[T]
	board  *usermsg.Board
	now    func() time.Time
	closed atomic.Bool
}

// Compile-time check that Gateway implements BLO.
var _ BLO = (*Gateway[entity.Entity])(nil)

// NewGateway opens a generic business object for T on the factory's store.
func NewGateway[T entity.Entity](f *Factory) (*Gateway[T], error) {
	def, err := f.registry.Get(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return &Gateway[T]{
		def:   def,
		repo:  f.store.Repository(def),
		tx:    f.tx,
		hooks: NewHookRegistry[T](),
		board: usermsg.NewBoard(),
		now:   f.now,
	}, nil
}

// Hooks returns the hook registry for external registration.
func (g *Gateway[T]) Hooks() *HookRegistry[T] {
	return g.hooks
}

// Config returns the entity configuration.
func (g *Gateway[T]) Config() *metadata.Entity {
	return g.def
}

// EntityName returns the configured entity name.
func (g *Gateway[T]) EntityName() string {
	return g.def.Name
}

// Messages returns the board collecting user-facing failures.
func (g *Gateway[T]) Messages() *usermsg.Board {
	return g.board
}

// Close releases the session. Later calls fail with a closed-session error.
func (g *Gateway[T]) Close() error {
	if g.closed.CompareAndSwap(false, true) {
		logger.Debug(context.Background(), "business object closed", "entity", g.def.Name)
	}
	return nil
}

func (g *Gateway[T]) checkOpen() error {
	if g.closed.Load() {
		return apperror.NewSessionClosed(g.def.Name)
	}
	return nil
}

// report logs err and records it on the board when the user can act on it.
func (g *Gateway[T]) report(ctx context.Context, op string, err error) error {
	if apperror.IsRecoverable(err) {
		g.board.AddError(err)
		logger.Warn(ctx, op+" rejected", "entity", g.def.Name, "error", err)
		return err
	}
	logger.Error(ctx, op+" failed", "entity", g.def.Name, "error", err)
	return err
}

func (g *Gateway[T]) normalizeValidationErr(err error) error {
	// If entity already returns structured AppError, keep it.
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error()).WithDetail("entity", g.def.Name)
}

// validate runs entity invariants and required entry fields.
func (g *Gateway[T]) validate(ctx context.Context, e T) error {
	if v, ok := any(e).(entity.Validatable); ok {
		if err := v.Validate(ctx); err != nil {
			return g.normalizeValidationErr(err)
		}
	}
	for _, p := range g.def.EntryProperties() {
		if p.Entry.Required && metadata.IsZeroValue(p.Get(e)) {
			return apperror.NewValidation(fmt.Sprintf("%s is required", p.Title)).
				WithDetail("entity", g.def.Name).
				WithDetail("field", p.Name)
		}
	}
	return nil
}

// Save inserts e when its ID is not positive, otherwise updates it, then
// rewrites its many-to-many links, all in one transaction. A zero Order is set
// to the row count plus one. It returns the rows written, or SaveFailed with
// the reason.
func (g *Gateway[T]) Save(ctx context.Context, e T) (int64, error) {
	if err := g.checkOpen(); err != nil {
		return SaveFailed, err
	}
	if err := g.validate(ctx, e); err != nil {
		return SaveFailed, g.report(ctx, "save", err)
	}

	base := e.Base()
	creating := !base.IsPersisted()
	before, after := BeforeUpdate, AfterUpdate
	if creating {
		before, after = BeforeCreate, AfterCreate
	}
	if err := g.hooks.Run(ctx, before, e); err != nil {
		return SaveFailed, g.report(ctx, "save", err)
	}

	// restored when the transaction rolls back
	saved := *base
	var affected int64
	err := g.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if base.Order == 0 {
			n, err := g.repo.Count(ctx, nil)
			if err != nil {
				return err
			}
			base.Order = int(n) + 1
		}

		now := g.now()
		if creating {
			base.Stamp(now)
			if err := g.repo.Insert(ctx, e); err != nil {
				return err
			}
			affected = 1
		} else {
			base.Touch(now)
			n, err := g.repo.Update(ctx, e)
			if err != nil {
				return err
			}
			if n == 0 {
				return apperror.NewNotFound(g.def.Name, base.ID)
			}
			affected = n
		}

		links, err := g.repo.SaveLinks(ctx, e)
		if err != nil {
			return err
		}
		affected += links
		return nil
	})
	if err != nil {
		*base = saved
		return SaveFailed, g.report(ctx, "save", err)
	}

	if err := g.hooks.Run(ctx, after, e); err != nil {
		// entity is already stored
		logger.Warn(ctx, "after-save hook failed", "entity", g.def.Name, "id", base.ID, "error", err)
	}
	logger.Debug(ctx, "entity saved", "entity", g.def.Name, "id", base.ID, "rows", affected, "created", creating)
	return affected, nil
}

// Delete removes the entity with id. It returns the rows removed, or 0 with
// a not found or foreign key violation error.
func (g *Gateway[T]) Delete(ctx context.Context, id int64) (int64, error) {
	if err := g.checkOpen(); err != nil {
		return 0, err
	}

	var removed int64
	var deleted T
	err := g.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		found, err := g.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		e, err := g.cast(found)
		if err != nil {
			return err
		}
		if err := g.hooks.Run(ctx, BeforeDelete, e); err != nil {
			return err
		}
		n, err := g.repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.NewNotFound(g.def.Name, id)
		}
		removed, deleted = n, e
		return nil
	})
	if err != nil {
		return 0, g.report(ctx, "delete", err)
	}

	if err := g.hooks.Run(ctx, AfterDelete, deleted); err != nil {
		logger.Warn(ctx, "after-delete hook failed", "entity", g.def.Name, "id", id, "error", err)
	}
	logger.Debug(ctx, "entity deleted", "entity", g.def.Name, "id", id)
	return removed, nil
}

// GetByID loads one entity with its many-to-many ids.
func (g *Gateway[T]) GetByID(ctx context.Context, id int64) (T, error) {
	var zero T
	if err := g.checkOpen(); err != nil {
		return zero, err
	}
	found, err := g.repo.GetByID(ctx, id)
	if err != nil {
		return zero, g.report(ctx, "get", err)
	}
	var links []string
	for _, p := range g.def.Relations(metadata.ManyToMany) {
		links = append(links, p.Name)
	}
	if len(links) > 0 {
		if err := g.repo.Include(ctx, []entity.Entity{found}, links); err != nil {
			return zero, g.report(ctx, "get", err)
		}
	}
	return g.cast(found)
}

// GetAll returns the entities selected by q. See Query for paging and includes.
func (g *Gateway[T]) GetAll(ctx context.Context, q Query) ([]T, error) {
	items, err := g.list(ctx, q)
	if err != nil {
		return nil, err
	}
	return g.castAll(items)
}

// Page is GetAll plus the size of the whole selection.
func (g *Gateway[T]) Page(ctx context.Context, q Query) (ListResult[T], error) {
	res := ListResult[T]{PageStart: q.PageStart, PageSize: q.PageSize}
	items, err := g.GetAll(ctx, q)
	if err != nil {
		return res, err
	}
	total, err := g.Count(ctx, q.Where...)
	if err != nil {
		return res, err
	}
	res.Items, res.TotalCount = items, total
	return res, nil
}

func (g *Gateway[T]) list(ctx context.Context, q Query) ([]entity.Entity, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	if err := q.Validate(g.def); err != nil {
		return nil, g.report(ctx, "list", err)
	}
	var items []entity.Entity
	err := g.read(ctx, func(ctx context.Context) error {
		var err error
		if items, err = g.repo.List(ctx, q); err != nil {
			return err
		}
		if len(q.Include) > 0 && len(items) > 0 {
			return g.repo.Include(ctx, items, q.Include)
		}
		return nil
	})
	if err != nil {
		return nil, g.report(ctx, "list", err)
	}
	return items, nil
}

// read runs fn in a read-only transaction when the manager supports one.
func (g *Gateway[T]) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := g.tx.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return fn(ctx)
}

// Search returns the page of entities matching criteria, keyed by property name.
// See Criteria for the comparison applied to each nature.
func (g *Gateway[T]) Search(ctx context.Context, criteria map[string]any, pageStart, pageSize int) ([]T, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	where, err := Criteria(ctx, g.def, criteria)
	if err != nil {
		return nil, g.report(ctx, "search", err)
	}
	return g.GetAll(ctx, Query{PageStart: pageStart, PageSize: pageSize, Where: where})
}

// Count returns the number of entities matching where.
func (g *Gateway[T]) Count(ctx context.Context, where ...filter.Item) (int64, error) {
	if err := g.checkOpen(); err != nil {
		return 0, err
	}
	if err := (Query{Where: where}).Validate(g.def); err != nil {
		return 0, g.report(ctx, "count", err)
	}
	n, err := g.repo.Count(ctx, where)
	if err != nil {
		return 0, g.report(ctx, "count", err)
	}
	return n, nil
}

// ApplyBusinessRulesAfterFieldChanged runs the rules registered for field.
// The generic gateway has none.
func (g *Gateway[T]) ApplyBusinessRulesAfterFieldChanged(ctx context.Context, field string, e T) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	if _, ok := g.def.Property(field); !ok {
		return apperror.NewFieldNotFound(field, g.def.Name)
	}
	if err := g.hooks.Run(ctx, FieldChanged(field), e); err != nil {
		return g.report(ctx, "business rule", err)
	}
	return nil
}

func (g *Gateway[T]) cast(e entity.Entity) (T, error) {
	t, ok := e.(T)
	if !ok {
		var zero T
		return zero, apperror.NewInvalidInput(fmt.Sprintf("%T is not a %s", e, g.def.Name))
	}
	return t, nil
}

func (g *Gateway[T]) castAll(items []entity.Entity) ([]T, error) {
	out := make([]T, len(items))
	for i, e := range items {
		t, err := g.cast(e)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
