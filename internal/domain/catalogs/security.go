package catalogs

import (
	"context"
	"regexp"
	"strings"
	"time"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
)

// Role groups users for authorizations and menus.
type Role struct {
	entity.BaseEntity `entity:"display=Name,menu=Security"`

	Name        string           `db:"name" json:"name" entry:"order=1,required" grid:"order=1" filter:"order=1"`
	Description localized.String `db:"description" json:"description,omitempty" entry:"order=2,multiline" grid:"order=2"`
	Hidden      bool             `db:"hidden" json:"hidden" entry:"order=3" filter:"order=3"`
}

// User is an application account. Password holds a bcrypt hash once saved
// through UserBLO.
type User struct {
	entity.BaseEntity `entity:"display=Login,menu=Security"`

	Login     string     `db:"login" json:"login" entry:"order=1,required" grid:"order=1" filter:"order=1"`
	Password  string     `db:"password" json:"-" entry:"order=2,required"`
	FirstName string     `db:"first_name" json:"firstName" entry:"order=3" grid:"order=2" filter:"order=2"`
	LastName  string     `db:"last_name" json:"lastName" entry:"order=4" grid:"order=3" filter:"order=3"`
	Language  string     `db:"language" json:"language" display:"title=Language" entry:"order=5,width=8" grid:"order=4"`
	LastLogin *time.Time `db:"last_login" json:"lastLogin,omitempty" grid:"order=5"`

	RoleIDs []int64 `db:"-" json:"roleIds" entry:"order=6" grid:"order=6" rel:"many_to_many,target=Role,join=users_roles,join_key=user_id,target_key=role_id"`
}

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)

// Validate implements entity.Validatable.
func (u *User) Validate(ctx context.Context) error {
	if u.Login != "" && !loginPattern.MatchString(u.Login) {
		return apperror.NewValidation("login must be 3 to 64 letters, digits, dots, dashes or underscores").
			WithDetail("field", "Login")
	}
	if u.Language != "" && localized.Parse(u.Language).String() != u.Language {
		return apperror.NewValidation("language must be a BCP 47 tag such as en or fr").
			WithDetail("field", "Language")
	}
	return nil
}

// Authorization grants actions on an entity to roles.
type Authorization struct {
	entity.BaseEntity `entity:"display=Name,localizable,menu=Root"`

	Name           localized.String `db:"name" json:"name" entry:"order=1,required" grid:"order=1" filter:"order=1"`
	Description    localized.String `db:"description" json:"description,omitempty" entry:"order=2,multiline"`
	BusinessEntity string           `db:"business_entity" json:"businessEntity" entry:"order=3,width=400" grid:"order=2,width=400" filter:"order=2,width=400,allowempty" source:"entities"`
	ActionNames    string           `db:"action_names" json:"actionNames" display:"title=Actions" entry:"order=4" grid:"order=3"`

	RoleIDs []int64 `db:"-" json:"roleIds" entry:"order=5" rel:"many_to_many,target=Role"`
}

// Actions splits ActionNames on commas.
func (a *Authorization) Actions() []string {
	var out []string
	for _, name := range strings.Split(a.ActionNames, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// SetActions joins names into ActionNames.
func (a *Authorization) SetActions(names []string) {
	a.ActionNames = strings.Join(names, ",")
}
