package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/domain"
	"gwin/internal/form"
	"gwin/internal/infrastructure/http/v1/dto"
)

// EntityHandler serves every registered entity through its business object:
// plain CRUD, entry forms, filters and grids.
type EntityHandler struct {
	*BaseHandler
	factory  *domain.Factory
	options  form.OptionSource
	pageSize int
}

// NewEntityHandler creates the handler. pageSize is used when a paged request
// names no page size.
func NewEntityHandler(base *BaseHandler, factory *domain.Factory, pageSize int) *EntityHandler {
	return &EntityHandler{
		BaseHandler: base,
		factory:     factory,
		options:     form.NewFactoryOptions(factory),
		pageSize:    pageSize,
	}
}

// open returns the business object named by the :entity path parameter.
// Callers close it.
func (h *EntityHandler) open(c *gin.Context) (domain.BLO, bool) {
	blo, err := h.factory.New(c.Param("entity"))
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return blo, true
}

func (h *EntityHandler) buildOptions() []form.BuildOption {
	return []form.BuildOption{form.WithOptionSource(h.options)}
}

// List handles GET /entities/:entity/items - one page of entities.
func (h *EntityHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PageRequest
	if !h.BindQuery(c, &req) {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	q, err := req.Query(h.pageSize)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	items, err := blo.List(ctx, q)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	total, err := blo.CountAll(ctx, q.Where...)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	if items == nil {
		items = []entity.Entity{}
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		PageStart:  q.PageStart,
		PageSize:   q.PageSize,
		Messages:   blo.Messages().Drain(),
	})
}

// Get handles GET /entities/:entity/items/:id.
func (h *EntityHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	e, err := blo.FindByID(c.Request.Context(), id)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	h.OK(c, e)
}

// Create handles POST /entities/:entity/items - submits the entry form of a new entity.
func (h *EntityHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	f, err := form.NewEntryForm(ctx, blo, nil, req.Criteria, h.buildOptions()...)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	n, err := f.Submit(ctx, req.Values)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}

	h.Created(c, dto.SaveResponse{
		ID:       f.Entity().Base().ID,
		Affected: n,
		Form:     f.Model(),
		Messages: blo.Messages().Drain(),
	})
}

// Update handles PUT /entities/:entity/items/:id - submits the entry form of a stored entity.
func (h *EntityHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.SubmitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	e, err := blo.FindByID(ctx, id)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	f, err := form.NewEntryForm(ctx, blo, e, nil, h.buildOptions()...)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	n, err := f.Submit(ctx, req.Values)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}

	h.OK(c, dto.SaveResponse{
		ID:       id,
		Affected: n,
		Form:     f.Model(),
		Messages: blo.Messages().Drain(),
	})
}

// Delete handles DELETE /entities/:entity/items/:id.
func (h *EntityHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	n, err := blo.DeleteByID(c.Request.Context(), id)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	h.OK(c, dto.DeleteResponse{Affected: n, Messages: blo.Messages().Drain()})
}

// NewForm handles GET /entities/:entity/form - the entry form of a new entity,
// pre-filled from the criteria query parameter (a JSON object).
func (h *EntityHandler) NewForm(c *gin.Context) {
	var criteria map[string]any
	if raw := c.Query("criteria"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
			h.Error(c, apperror.NewInvalidInput("invalid criteria format").WithDetail("error", err.Error()))
			return
		}
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	h.form(c, blo, nil, criteria)
}

// EditForm handles GET /entities/:entity/items/:id/form.
func (h *EntityHandler) EditForm(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	e, err := blo.FindByID(c.Request.Context(), id)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	h.form(c, blo, e, nil)
}

func (h *EntityHandler) form(c *gin.Context, blo domain.BLO, e entity.Entity, criteria map[string]any) {
	f, err := form.NewEntryForm(c.Request.Context(), blo, e, criteria, h.buildOptions()...)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	h.OK(c, dto.FormResponse{Form: f.Model(), Messages: blo.Messages().Drain()})
}

// Change handles POST /entities/:entity/form/change - replays the edit of one
// control and returns the form after the business rules of the field ran.
// Nothing is saved.
func (h *EntityHandler) Change(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChangeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	var e entity.Entity
	if req.ID > 0 {
		found, err := blo.FindByID(ctx, req.ID)
		if err != nil {
			h.Fail(c, blo, err)
			return
		}
		e = found
	}
	f, err := form.NewEntryForm(ctx, blo, e, nil, h.buildOptions()...)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	for name, v := range req.Values {
		if err := f.Container().Set(name, v); err != nil {
			blo.Messages().AddError(err)
			h.Fail(c, blo, err)
			return
		}
	}
	if _, err := f.ReadEntity(ctx); err != nil {
		h.Fail(c, blo, err)
		return
	}
	if err := f.Change(ctx, req.Field, req.Value); err != nil {
		h.Fail(c, blo, err)
		return
	}
	h.OK(c, dto.FormResponse{Form: f.Model(), Messages: blo.Messages().Drain()})
}

// Filter handles GET /entities/:entity/filter - the filter controls with their defaults.
func (h *EntityHandler) Filter(c *gin.Context) {
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	flt, err := form.NewFilter(c.Request.Context(), blo, h.buildOptions()...)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	h.OK(c, dto.FilterResponse{Entity: blo.EntityName(), Controls: flt.Container().Controls})
}

// Grid handles GET /entities/:entity/grid - one rendered page.
func (h *EntityHandler) Grid(c *gin.Context) {
	var req dto.PageRequest
	if !h.BindQuery(c, &req) {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	q, err := req.Query(h.pageSize)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	h.grid(c, blo, q)
}

// Search handles POST /entities/:entity/search - applies filter values and
// renders the selected page as a grid.
func (h *EntityHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SearchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	blo, ok := h.open(c)
	if !ok {
		return
	}
	defer blo.Close()

	flt, err := form.NewFilter(ctx, blo, h.buildOptions()...)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	for name, v := range req.Values {
		if err := flt.Set(name, v); err != nil {
			h.Fail(c, blo, err)
			return
		}
	}
	criteria, err := flt.Values(ctx)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	where, err := domain.Criteria(ctx, blo.Config(), criteria)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}

	q := domain.Query{PageStart: req.PageStart, PageSize: req.PageSize, Where: where}
	if q.PageStart > 0 && q.PageSize == 0 {
		q.PageSize = h.pageSize
	}
	h.grid(c, blo, q)
}

func (h *EntityHandler) grid(c *gin.Context, blo domain.BLO, q domain.Query) {
	g, err := form.LoadGrid(c.Request.Context(), blo, q, h.buildOptions()...)
	if err != nil {
		h.Fail(c, blo, err)
		return
	}
	h.OK(c, dto.GridResponse{Grid: g, Messages: blo.Messages().Drain()})
}
