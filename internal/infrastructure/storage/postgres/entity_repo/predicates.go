package entity_repo

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"gwin/internal/core/apperror"
	"gwin/internal/domain/filter"
	"gwin/internal/infrastructure/storage/postgres"
	"gwin/internal/metadata"
)

// where applies predicates on property names to q. Only configured properties
// reach the SQL text, values always go through placeholders.
func (r *Repo) where(q squirrel.SelectBuilder, items []filter.Item) (squirrel.SelectBuilder, error) {
	for _, item := range items {
		p, ok := r.def.Property(item.Field)
		if !ok {
			return q, apperror.NewUnsupportedCriterion(r.def.Name, item.Field, "no such property")
		}

		var pred squirrel.Sqlizer
		var err error
		if p.Relation != nil && p.Relation.Kind != metadata.ManyToOne {
			pred, err = r.collectionPredicate(p, item)
		} else {
			pred, err = r.columnPredicate(p, item)
		}
		if err != nil {
			return q, err
		}
		q = q.Where(pred)
	}
	return q, nil
}

func (r *Repo) columnPredicate(p *metadata.Property, item filter.Item) (squirrel.Sqlizer, error) {
	if !p.Persisted() {
		return nil, apperror.NewUnsupportedCriterion(r.def.Name, p.Name, "property is not stored")
	}
	col := p.Column

	switch item.Operator {
	case filter.Equal, filter.InList:
		return squirrel.Eq{col: item.Value}, nil
	case filter.NotEqual, filter.NotInList:
		return squirrel.NotEq{col: item.Value}, nil
	case filter.LessOrEqual:
		return squirrel.LtOrEq{col: item.Value}, nil
	case filter.GreaterOrEqual:
		return squirrel.GtOrEq{col: item.Value}, nil
	case filter.Less:
		return squirrel.Lt{col: item.Value}, nil
	case filter.Greater:
		return squirrel.Gt{col: item.Value}, nil
	case filter.IsNull:
		return squirrel.Eq{col: nil}, nil
	case filter.IsNotNull:
		return squirrel.NotEq{col: nil}, nil
	case filter.Contains, filter.NotContains:
		pattern := "%" + escapeLike(fmt.Sprint(item.Value)) + "%"
		if p.Nature == metadata.NatureLocalizedString {
			// any translation matches, keys are not searched
			op := "EXISTS"
			if item.Operator == filter.NotContains {
				op = "NOT EXISTS"
			}
			return squirrel.Expr(op+" (SELECT 1 FROM jsonb_each_text("+r.def.Table+"."+col+") WHERE value ILIKE ?)", pattern), nil
		}
		if item.Operator == filter.NotContains {
			return squirrel.NotILike{col: pattern}, nil
		}
		return squirrel.ILike{col: pattern}, nil
	case filter.SameDay:
		return squirrel.Expr(col+"::date = ?::date", item.Value), nil
	}
	return nil, apperror.NewUnsupportedCriterion(r.def.Name, p.Name, "operator "+string(item.Operator)+" is not supported here")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// collectionPredicate matches owners whose collection holds item.Value (an id
// or a list of ids).
func (r *Repo) collectionPredicate(p *metadata.Property, item filter.Item) (squirrel.Sqlizer, error) {
	if item.Operator != filter.MemberOf && item.Operator != filter.Equal && item.Operator != filter.InList {
		return nil, apperror.NewUnsupportedCriterion(r.def.Name, p.Name, "collections only support membership")
	}

	var sub squirrel.SelectBuilder
	switch rel := p.Relation; rel.Kind {
	case metadata.ManyToMany:
		sub = squirrel.Select(rel.JoinKey).
			From(rel.JoinTable).
			Where(squirrel.Eq{rel.TargetKey: item.Value})
	case metadata.OneToMany:
		child, err := r.target(p)
		if err != nil {
			return nil, err
		}
		sub = squirrel.Select(rel.ForeignKey).
			From(child.Table).
			Where(squirrel.Eq{postgres.IDColumn: item.Value})
	}

	sql, args, err := sub.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s membership: %w", p.Name, err)
	}
	return squirrel.Expr(r.def.Table+"."+postgres.IDColumn+" IN ("+sql+")", args...), nil
}

// parseOrderBy turns "Name" or "-Name" into a column ordering; the default is newest first.
func (r *Repo) parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		return postgres.IDColumn + " DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	p, ok := r.def.Property(field)
	if !ok || !p.Persisted() {
		return "", apperror.NewInvalidInput("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return p.Column + " " + direction, nil
}

// target returns the configuration of the relationship target of p.
func (r *Repo) target(p *metadata.Property) (*metadata.Entity, error) {
	def, ok := r.registry.Lookup(p.Relation.Target)
	if !ok {
		return nil, apperror.NewConfiguration(r.def.Name, p.Name,
			"relationship target "+p.Relation.Target+" is not registered")
	}
	return def, nil
}
