package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gwin/internal/core/apperror"
	"gwin/internal/core/localized"
	"gwin/internal/domain/filter"
	"gwin/internal/metadata"
)

// Criteria turns search criteria keyed by property name into predicates.
// The comparison follows the property nature:
//
//	String, LocalizedString           contains, case insensitive
//	Integer, ManyToOne, Decimal, Bool equality after conversion
//	Enumeration, data source strings  equality with the listed value
//	DateTime                          same calendar day
//	ManyToMany                        the collection holds the id (or one of the ids)
//
// Nil values are skipped. Unknown properties and one-to-many collections are
// rejected with an unsupported criterion error.
func Criteria(ctx context.Context, def *metadata.Entity, criteria map[string]any) ([]filter.Item, error) {
	names := make([]string, 0, len(criteria))
	for name := range criteria {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]filter.Item, 0, len(names))
	for _, name := range names {
		value := criteria[name]
		if value == nil {
			continue
		}
		p, ok := def.Property(name)
		if !ok {
			return nil, apperror.NewUnsupportedCriterion(def.Name, name, "no such property")
		}
		item, err := criterion(ctx, def, p, value)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func criterion(ctx context.Context, def *metadata.Entity, p *metadata.Property, value any) (filter.Item, error) {
	item := filter.Item{Field: p.Name}

	switch p.Nature {
	case metadata.NatureString:
		item.Operator = filter.Contains
		item.Value = fmt.Sprint(value)

	case metadata.NatureStringWithDataSource, metadata.NatureEnumeration:
		v, err := p.Convert(value)
		if err != nil {
			return item, err
		}
		item.Operator = filter.Equal
		item.Value = fmt.Sprint(v)

	case metadata.NatureLocalizedString:
		item.Operator = filter.Contains
		switch v := value.(type) {
		case localized.String:
			item.Value = v.Text(ctx)
		case map[string]string:
			item.Value = localized.String(v).Text(ctx)
		default:
			item.Value = fmt.Sprint(value)
		}

	case metadata.NatureInteger, metadata.NatureManyToOne, metadata.NatureDecimal, metadata.NatureBoolean:
		v, err := p.Convert(value)
		if err != nil {
			return item, err
		}
		item.Operator = filter.Equal
		item.Value = v

	case metadata.NatureDateTime:
		v, err := p.Convert(value)
		if err != nil {
			return item, err
		}
		var day time.Time
		switch t := v.(type) {
		case time.Time:
			day = t
		case *time.Time:
			if t == nil {
				return item, apperror.NewInvalidInput(p.Name + ": a date is required")
			}
			day = *t
		default:
			return item, apperror.NewInvalidInput(p.Name + ": a date is required")
		}
		item.Operator = filter.SameDay
		item.Value = day

	case metadata.NatureManyToManyCreation, metadata.NatureManyToManySelection:
		v, err := p.Convert(value)
		if err != nil {
			return item, err
		}
		item.Operator = filter.MemberOf
		item.Value = v

	case metadata.NatureOneToMany:
		return item, apperror.NewUnsupportedCriterion(def.Name, p.Name, "one-to-many collections cannot be searched")

	default:
		return item, apperror.NewUnsupportedCriterion(def.Name, p.Name, "values of type "+p.Type.String()+" cannot be searched")
	}
	return item, nil
}
