// Package catalogs declares the entities shipped with the application and the
// business objects that specialize some of them.
package catalogs

import (
	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
)

// Country is a localizable reference entity.
type Country struct {
	entity.BaseEntity `entity:"display=Name,localizable,menu=Configuration"`

	Name        localized.String `db:"name" json:"name" entry:"order=1,required" grid:"order=1" filter:"order=1"`
	Description localized.String `db:"description" json:"description,omitempty" entry:"order=2,multiline" grid:"order=2"`

	CityIDs []int64 `db:"-" json:"cityIds,omitempty" rel:"one_to_many,target=City"`
}

// City belongs to a country.
type City struct {
	entity.BaseEntity `entity:"display=Name,localizable,menu=Configuration"`

	Name      localized.String `db:"name" json:"name" entry:"order=1,required" grid:"order=1" filter:"order=1"`
	CountryID int64            `db:"country_id" json:"countryId" entry:"order=2,required" grid:"order=2" filter:"order=2,allowempty" rel:"many_to_one,target=Country,into=Country"`
	Country   *Country         `db:"-" json:"country,omitempty"`
}
