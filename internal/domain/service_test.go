package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/usermsg"
	"gwin/internal/domain/filter"
	"gwin/internal/metadata"
)

func TestGateway_SaveCreates(t *testing.T) {
	g, repo := newPartGateway(t)
	ctx := context.Background()

	first := &part{Name: "bolt", Tags: []int64{1, 2}}
	n, err := g.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n) // owner row and two links
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, testClock(), first.CreatedAt)
	assert.Equal(t, testClock(), first.UpdatedAt)

	second := &part{Name: "nut"}
	n, err = g.Save(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, second.Order)

	kept := &part{Name: "washer"}
	kept.Order = 10
	_, err = g.Save(ctx, kept)
	require.NoError(t, err)
	assert.Equal(t, 10, kept.Order)

	assert.Len(t, repo.rows, 3)
	assert.Zero(t, g.Messages().Len())
}

func TestGateway_SaveUpdates(t *testing.T) {
	g, _ := newPartGateway(t)
	ctx := context.Background()

	p := &part{Name: "bolt"}
	_, err := g.Save(ctx, p)
	require.NoError(t, err)

	p.Name = "hex bolt"
	p.Tags = []int64{7}
	n, err := g.Save(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(1), p.ID)

	got, err := g.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "hex bolt", got.Name)
}

func TestGateway_SaveKeepsCreationTime(t *testing.T) {
	now := testClock()
	f := NewFactory(metadata.NewRegistry(), newMemStore(), &directTx{}, WithClock(func() time.Time { return now }))
	g, err := NewGateway[*part](f)
	require.NoError(t, err)
	ctx := context.Background()
	created := now

	p := &part{Name: "bolt"}
	_, err = g.Save(ctx, p)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	p.Name = "hex bolt"
	_, err = g.Save(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)

	got, err := g.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotSame(t, p, got)
	assert.Equal(t, "hex bolt", got.Name)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestGateway_SaveReferenceViolation(t *testing.T) {
	now := testClock()
	store := newMemStore()
	f := NewFactory(metadata.NewRegistry(), store, &directTx{}, WithClock(func() time.Time { return now }))
	g, err := NewGateway[*part](f)
	require.NoError(t, err)
	ctx := context.Background()

	p := &part{Name: "bolt"}
	_, err = g.Save(ctx, p)
	require.NoError(t, err)
	before := p.BaseEntity

	now = now.Add(time.Hour)
	store.repos["part"].updateErr = apperror.NewForeignKeyViolation("part", int64(1))
	p.Name = "nut"
	n, err := g.Save(ctx, p)
	assert.Equal(t, SaveFailed, n)
	assert.True(t, apperror.IsForeignKeyViolation(err))
	assert.Equal(t, before, p.BaseEntity)

	msgs := g.Messages().Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, usermsg.ForeignKeyViolation, msgs[0].Category)

	got, err := g.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "bolt", got.Name)
}

func TestGateway_SaveFailureRestoresBase(t *testing.T) {
	g, repo := newPartGateway(t)
	ctx := context.Background()
	_, err := g.Save(ctx, &part{Name: "bolt"})
	require.NoError(t, err)

	repo.insertErr = errors.New("connection reset")
	p := &part{Name: "nut"}
	_, err = g.Save(ctx, p)
	require.Error(t, err)
	assert.Equal(t, entity.BaseEntity{}, p.BaseEntity)
}

func TestGateway_SaveMissingRowIsNotFound(t *testing.T) {
	g, _ := newPartGateway(t)

	p := &part{Name: "ghost"}
	p.ID = 99
	p.Order = 1
	n, err := g.Save(context.Background(), p)
	assert.Equal(t, SaveFailed, n)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, int64(99), p.ID)
}

func TestGateway_SaveRejectsInvalidEntity(t *testing.T) {
	tests := []struct {
		name  string
		part  *part
		field string
	}{
		{name: "required entry field", part: &part{Qty: 1}, field: "Name"},
		{name: "entity invariant", part: &part{Name: "bolt", Qty: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, repo := newPartGateway(t)

			n, err := g.Save(context.Background(), tt.part)
			assert.Equal(t, SaveFailed, n)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
			assert.Empty(t, repo.rows)
			assert.Zero(t, tt.part.ID)

			msgs := g.Messages().Drain()
			require.Len(t, msgs, 1)
			assert.Equal(t, usermsg.EntityValidation, msgs[0].Category)
			if tt.field != "" {
				assert.Equal(t, tt.field, msgs[0].Details["field"])
			}
		})
	}
}

func TestGateway_SaveStoreFailure(t *testing.T) {
	g, repo := newPartGateway(t)
	repo.insertErr = errors.New("connection reset")

	p := &part{Name: "bolt"}
	n, err := g.Save(context.Background(), p)
	assert.Equal(t, SaveFailed, n)
	require.ErrorIs(t, err, repo.insertErr)
	assert.Zero(t, p.ID)
	// store faults are returned, not shown
	assert.Zero(t, g.Messages().Len())
}

func TestGateway_Hooks(t *testing.T) {
	g, repo := newPartGateway(t)
	ctx := context.Background()

	var events []string
	g.Hooks().OnBeforeSave(func(_ context.Context, p *part) error {
		if p.Name == "forbidden" {
			return apperror.NewBusinessRule("FORBIDDEN_NAME", "this name is reserved")
		}
		events = append(events, "before:"+p.Name)
		return nil
	})
	g.Hooks().OnAfterSave(func(_ context.Context, p *part) error {
		events = append(events, "after:"+p.Name)
		return errors.New("ignored")
	})
	g.Hooks().OnBeforeDelete(func(_ context.Context, p *part) error {
		events = append(events, "deleting:"+p.Name)
		return nil
	})
	g.Hooks().OnAfterDelete(func(_ context.Context, p *part) error {
		events = append(events, "deleted:"+p.Name)
		return nil
	})

	_, err := g.Save(ctx, &part{Name: "forbidden"})
	require.True(t, apperror.HasCode(err, "FORBIDDEN_NAME"))
	assert.Empty(t, repo.rows)

	_, err = g.Save(ctx, &part{Name: "bolt"})
	require.NoError(t, err)

	n, err := g.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, []string{"before:bolt", "after:bolt", "deleting:bolt", "deleted:bolt"}, events)
}

func TestGateway_Delete(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		g, _ := newPartGateway(t)
		n, err := g.Delete(context.Background(), 5)
		assert.Zero(t, n)
		assert.True(t, apperror.IsNotFound(err))

		msgs := g.Messages().Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, usermsg.NotFound, msgs[0].Category)
	})

	t.Run("still referenced", func(t *testing.T) {
		g, repo := newPartGateway(t)
		_, err := g.Save(context.Background(), &part{Name: "bolt"})
		require.NoError(t, err)
		repo.deleteErr = apperror.NewForeignKeyViolation("part", int64(1))

		n, err := g.Delete(context.Background(), 1)
		assert.Zero(t, n)
		assert.True(t, apperror.IsForeignKeyViolation(err))
		assert.Len(t, repo.rows, 1)

		msgs := g.Messages().Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, usermsg.ForeignKeyViolation, msgs[0].Category)
	})
}

func TestGateway_GetByIDIncludesLinks(t *testing.T) {
	g, repo := newPartGateway(t)
	ctx := context.Background()

	_, err := g.Save(ctx, &part{Name: "bolt"})
	require.NoError(t, err)

	_, err = g.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tags"}, repo.lastInclude)
}

func TestGateway_GetAll(t *testing.T) {
	g, repo := newPartGateway(t)
	ctx := context.Background()

	for _, name := range []string{"bolt", "nut", "washer"} {
		_, err := g.Save(ctx, &part{Name: name})
		require.NoError(t, err)
	}

	all, err := g.GetAll(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bolt", all[0].Name)

	page, err := g.Page(ctx, Query{PageStart: 1, PageSize: 2, OrderBy: "-Name"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, "-Name", repo.lastQuery.OrderBy)

	_, err = g.GetAll(ctx, Query{PageStart: 2})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	_, err = g.GetAll(ctx, Query{Include: []string{"Name"}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	_, err = g.GetAll(ctx, Query{OrderBy: "Tags"})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}

func TestGateway_ListingUsesReadOnlyTx(t *testing.T) {
	txm := &readOnlyTx{}
	f := NewFactory(metadata.NewRegistry(), newMemStore(), txm, WithClock(testClock))
	g, err := NewGateway[*part](f)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = g.Save(ctx, &part{Name: "bolt"})
	require.NoError(t, err)
	assert.Equal(t, 1, txm.calls)
	assert.Zero(t, txm.reads)

	_, err = g.GetAll(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, txm.reads)
	assert.Equal(t, 1, txm.calls)
}

func TestGateway_Search(t *testing.T) {
	g, repo := newPartGateway(t)
	ctx := context.Background()

	_, err := g.Search(ctx, map[string]any{"Qty": "5", "Name": "bo", "Notes": nil}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []filter.Item{
		{Field: "Name", Operator: filter.Contains, Value: "bo"},
		{Field: "Qty", Operator: filter.Equal, Value: int64(5)},
	}, repo.lastQuery.Where)
	assert.Equal(t, 20, repo.lastQuery.PageSize)

	_, err = g.Search(ctx, map[string]any{"Weight": 3}, 0, 0)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnsupportedCriterion))
}

func TestGateway_ApplyBusinessRules(t *testing.T) {
	g, _ := newPartGateway(t)
	ctx := context.Background()

	g.Hooks().OnFieldChanged("Name", func(_ context.Context, p *part) error {
		p.Notes = "renamed to " + p.Name
		return nil
	})

	p := &part{Name: "bolt"}
	require.NoError(t, g.ApplyBusinessRulesAfterFieldChanged(ctx, "Name", p))
	assert.Equal(t, "renamed to bolt", p.Notes)

	// no rule for Qty
	require.NoError(t, g.ApplyBusinessRulesAfterFieldChanged(ctx, "Qty", p))

	err := g.ApplyBusinessRulesAfterFieldChanged(ctx, "Weight", p)
	assert.True(t, apperror.IsFieldNotFound(err))
}

func TestGateway_Close(t *testing.T) {
	g, _ := newPartGateway(t)
	ctx := context.Background()

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())

	_, err := g.Save(ctx, &part{Name: "bolt"})
	assert.True(t, apperror.HasCode(err, apperror.CodeSessionClosed))
	_, err = g.GetAll(ctx, Query{})
	assert.True(t, apperror.HasCode(err, apperror.CodeSessionClosed))
	_, err = g.Count(ctx)
	assert.True(t, apperror.HasCode(err, apperror.CodeSessionClosed))
	assert.Zero(t, g.Messages().Len())
}

func TestGateway_ErasedMethods(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	blo, err := f.New("part")
	require.NoError(t, err)

	e := blo.NewEntity()
	require.IsType(t, &part{}, e)
	e.(*part).Name = "bolt"

	n, err := blo.SaveEntity(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := blo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "bolt", found.(*part).Name)

	count, err := blo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = blo.SaveEntity(ctx, &tag{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}
