package catalogs

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
)

// MenuItem is an entry of the application menu, visible to its roles.
type MenuItem struct {
	entity.BaseEntity `entity:"display=Code,localizable,menu=Admin"`

	Code        string           `db:"code" json:"code" display:"glossary" entry:"order=1,required" grid:"order=1" filter:"order=1"`
	Title       localized.String `db:"title" json:"title" display:"glossary" entry:"order=2" grid:"order=2" filter:"order=2"`
	Description localized.String `db:"description" json:"description,omitempty" display:"glossary" entry:"order=3,multiline" grid:"order=3"`

	RoleIDs []int64 `db:"-" json:"roleIds" display:"glossary" entry:"order=4" grid:"order=4" rel:"many_to_many,target=Role"`
}

// Project groups tasks.
type Project struct {
	entity.BaseEntity `entity:"display=Title,menu=Projects"`

	Title       string          `db:"title" json:"title" entry:"order=1,required" grid:"order=1" filter:"order=1"`
	Description string          `db:"description" json:"description,omitempty" entry:"order=2,multiline"`
	StartDate   time.Time       `db:"start_date" json:"startDate" entry:"order=3" grid:"order=2" filter:"order=2"`
	EndDate     *time.Time      `db:"end_date" json:"endDate,omitempty" entry:"order=4" grid:"order=3"`
	Budget      decimal.Decimal `db:"budget" json:"budget" entry:"order=5" grid:"order=4"`

	TaskIDs []int64 `db:"-" json:"taskIds,omitempty" rel:"one_to_many,target=Task"`
}

// Validate implements entity.Validatable.
func (p *Project) Validate(context.Context) error {
	if p.EndDate != nil && !p.StartDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return apperror.NewValidation("a project cannot end before it starts").
			WithDetail("field", "EndDate")
	}
	if p.Budget.IsNegative() {
		return apperror.NewValidation("budget must not be negative").
			WithDetail("field", "Budget")
	}
	return nil
}

// Task is a unit of work of a project. Its assignees are created from the task form.
type Task struct {
	entity.BaseEntity `entity:"display=Title,menu=Projects"`

	Title     string    `db:"title" json:"title" entry:"order=1,required" grid:"order=1" filter:"order=1"`
	ProjectID int64     `db:"project_id" json:"projectId" entry:"order=2,required" grid:"order=2" filter:"order=2" rel:"many_to_one,target=Project,into=Project"`
	Project   *Project  `db:"-" json:"project,omitempty"`
	Due       time.Time `db:"due" json:"due" entry:"order=3" grid:"order=3" filter:"order=3"`
	Hours     int       `db:"hours" json:"hours" entry:"order=4" grid:"order=4"`
	Done      bool      `db:"done" json:"done" entry:"order=5" grid:"order=5" filter:"order=4"`
	Priority  string    `db:"priority" json:"priority" entry:"order=7" grid:"order=6" filter:"order=5,allowempty" enum:"Low|Normal|High"`

	AssigneeIDs []int64 `db:"-" json:"assigneeIds" entry:"order=6" rel:"many_to_many,target=User,mode=creation"`
}

// Validate implements entity.Validatable.
func (t *Task) Validate(context.Context) error {
	if t.Hours < 0 {
		return apperror.NewValidation("hours must not be negative").WithDetail("field", "Hours")
	}
	return nil
}
