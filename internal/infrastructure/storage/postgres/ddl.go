package postgres

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"gwin/internal/core/apperror"
	"gwin/internal/metadata"
	"gwin/pkg/logger"
)

// OnDeletePolicy is the referential action of a many-to-one foreign key.
type OnDeletePolicy string

const (
	OnDeleteRestrict OnDeletePolicy = "RESTRICT"
	OnDeleteCascade  OnDeletePolicy = "CASCADE"
)

func ident(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

// columnType maps a persisted property to its column definition.
// Value columns are NOT NULL with a zero default: entities always write them.
func columnType(p *metadata.Property) (string, error) {
	switch p.Nature {
	case metadata.NatureString, metadata.NatureStringWithDataSource, metadata.NatureEnumeration:
		return "text NOT NULL DEFAULT ''", nil
	case metadata.NatureLocalizedString:
		return "jsonb", nil
	case metadata.NatureDateTime:
		if p.Type.Kind() == reflect.Ptr {
			return "timestamp with time zone", nil
		}
		return "timestamp with time zone NOT NULL DEFAULT now()", nil
	case metadata.NatureInteger:
		switch p.Type.Kind() {
		case reflect.Int8, reflect.Int16, reflect.Uint8:
			return "smallint NOT NULL DEFAULT 0", nil
		case reflect.Int32, reflect.Uint16:
			return "integer NOT NULL DEFAULT 0", nil
		}
		return "bigint NOT NULL DEFAULT 0", nil
	case metadata.NatureDecimal:
		return "numeric NOT NULL DEFAULT 0", nil
	case metadata.NatureBoolean:
		return "boolean NOT NULL DEFAULT false", nil
	case metadata.NatureManyToOne:
		return "bigint", nil
	}
	switch p.Type.Kind() {
	case reflect.Float32, reflect.Float64:
		return "double precision NOT NULL DEFAULT 0", nil
	case reflect.Slice:
		if p.Type.Elem().Kind() == reflect.Uint8 {
			return "bytea", nil
		}
	}
	return "", fmt.Errorf("no column type for %s", p.Type)
}

// GenerateDDL returns the statements creating the tables of defs: owner tables
// first, then many-to-one foreign keys and many-to-many link tables. Every
// relationship target must be in defs. Statements are idempotent except
// ADD CONSTRAINT, whose duplicate error ApplyDDL ignores.
func GenerateDDL(defs []*metadata.Entity) ([]string, error) {
	byName := make(map[string]*metadata.Entity, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	sorted := append([]*metadata.Entity(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	target := func(def *metadata.Entity, p *metadata.Property) (*metadata.Entity, error) {
		t, ok := byName[p.Relation.Target]
		if !ok {
			return nil, apperror.NewConfiguration(def.Name, p.Name,
				"relationship target "+p.Relation.Target+" is not part of the schema")
		}
		return t, nil
	}

	// --- Phase A: tables ---
	var tables []string
	for _, def := range sorted {
		cols := []string{ident(IDColumn) + " bigserial PRIMARY KEY"}
		for _, p := range def.Properties {
			if !p.Persisted() || p.Column == IDColumn {
				continue
			}
			typ, err := columnType(p)
			if p.Column == OrderColumn {
				typ, err = "integer NOT NULL DEFAULT 0", nil
			}
			if err != nil {
				return nil, apperror.NewConfiguration(def.Name, p.Name, err.Error())
			}
			cols = append(cols, ident(p.Column)+" "+typ)
		}
		tables = append(tables, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
			ident(def.Table), strings.Join(cols, ",\n  ")))
	}

	// --- Phase B: references (after every table exists) ---
	var refs []string
	for _, def := range sorted {
		for _, p := range def.Relations(metadata.ManyToOne) {
			t, err := target(def, p)
			if err != nil {
				return nil, err
			}
			refs = append(refs, fmt.Sprintf(
				"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
				ident(def.Table), ident(def.Table+"_"+p.Column+"_fk"), ident(p.Column),
				ident(t.Table), ident(IDColumn), OnDeleteRestrict))
			refs = append(refs, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				ident(def.Table+"_"+p.Column+"_idx"), ident(def.Table), ident(p.Column)))
		}
		for _, p := range def.Relations(metadata.ManyToMany) {
			t, err := target(def, p)
			if err != nil {
				return nil, err
			}
			rel := p.Relation
			refs = append(refs, fmt.Sprintf(
				"CREATE TABLE IF NOT EXISTS %s (\n"+
					"  %s bigint NOT NULL REFERENCES %s (%s) ON DELETE %s,\n"+
					"  %s bigint NOT NULL REFERENCES %s (%s) ON DELETE %s,\n"+
					"  PRIMARY KEY (%s, %s)\n)",
				ident(rel.JoinTable),
				ident(rel.JoinKey), ident(def.Table), ident(IDColumn), OnDeleteCascade,
				ident(rel.TargetKey), ident(t.Table), ident(IDColumn), OnDeleteCascade,
				ident(rel.JoinKey), ident(rel.TargetKey)))
		}
	}

	return append(tables, refs...), nil
}

// ApplyDDL executes stmts in order outside a transaction, so that an already
// existing constraint does not abort the remaining statements.
func ApplyDDL(ctx context.Context, db Querier, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			if isDuplicateObject(err) {
				logger.Debug(ctx, "schema object already exists", "statement", firstLine(stmt))
				continue
			}
			return fmt.Errorf("apply ddl %q: %w", firstLine(stmt), err)
		}
	}
	logger.Info(ctx, "schema applied", "statements", len(stmts))
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
