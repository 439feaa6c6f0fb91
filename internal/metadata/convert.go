package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
)

// DateLayout and DateTimeLayout are the accepted textual date formats besides RFC 3339.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

// New returns a pointer to a zero entity of def.
func (e *Entity) New() entity.Entity {
	return reflect.New(e.Type).Interface().(entity.Entity)
}

// Clone returns a detached copy of obj (a pointer to an entity of e). Slices
// and maps held by properties are copied, referenced entities are shared. A nil
// collection stays nil.
func (e *Entity) Clone(obj entity.Entity) entity.Entity {
	dst := reflect.New(e.Type)
	dst.Elem().Set(reflect.ValueOf(obj).Elem())
	for _, p := range e.Properties {
		f := dst.Elem().FieldByIndex(p.Index)
		switch f.Kind() {
		case reflect.Slice:
			if f.IsNil() {
				continue
			}
			cp := reflect.MakeSlice(f.Type(), f.Len(), f.Len())
			reflect.Copy(cp, f)
			f.Set(cp)
		case reflect.Map:
			if f.IsNil() {
				continue
			}
			cp := reflect.MakeMapWithSize(f.Type(), f.Len())
			iter := f.MapRange()
			for iter.Next() {
				cp.SetMapIndex(iter.Key(), iter.Value())
			}
			f.Set(cp)
		}
	}
	return dst.Interface().(entity.Entity)
}

// field returns the addressable field of p inside the entity pointed to by obj.
func (p *Property) field(obj any) reflect.Value {
	return reflect.ValueOf(obj).Elem().FieldByIndex(p.Index)
}

// Get returns the current value of p in obj (a pointer to the entity).
func (p *Property) Get(obj any) any {
	return p.field(obj).Interface()
}

// Set converts v to the property type and stores it in obj.
func (p *Property) Set(obj any, v any) error {
	converted, err := p.Convert(v)
	if err != nil {
		return err
	}
	f := p.field(obj)
	if converted == nil {
		f.Set(reflect.Zero(p.Type))
		return nil
	}
	val := reflect.ValueOf(converted)
	if val.Type() != p.Type && val.Type().ConvertibleTo(p.Type) {
		val = val.Convert(p.Type)
	}
	f.Set(val)
	return nil
}

// Convert turns v (Go value, JSON decoded value or text) into a value of the property type.
// nil converts to nil, meaning the zero value.
func (p *Property) Convert(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Type() == p.Type {
		return v, nil
	}

	out, err := p.convert(v)
	if err != nil {
		return nil, apperror.NewInvalidInput(fmt.Sprintf("%s: %v", p.Name, err)).
			WithDetail("field", p.Name)
	}
	return out, nil
}

func (p *Property) convert(v any) (any, error) {
	switch p.Nature {
	case NatureString, NatureStringWithDataSource:
		s := fmt.Sprint(v)
		return reflect.ValueOf(s).Convert(p.Type).Interface(), nil

	case NatureEnumeration:
		s := fmt.Sprint(v)
		if s != "" && !slices.Contains(p.Choices, s) {
			return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(p.Choices, ", "))
		}
		return reflect.ValueOf(s).Convert(p.Type).Interface(), nil

	case NatureLocalizedString:
		return toLocalized(v)

	case NatureDateTime:
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		if p.Type.Kind() == reflect.Ptr {
			if t.IsZero() {
				return nil, nil
			}
			return &t, nil
		}
		return t, nil

	case NatureInteger, NatureManyToOne:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		rv := reflect.New(p.Type).Elem()
		if (rv.CanInt() && rv.OverflowInt(n)) || (rv.CanUint() && (n < 0 || rv.OverflowUint(uint64(n)))) {
			return nil, fmt.Errorf("%d overflows %s", n, p.Type)
		}
		return reflect.ValueOf(n).Convert(p.Type).Interface(), nil

	case NatureDecimal:
		return toDecimal(v)

	case NatureBoolean:
		return toBool(v)

	case NatureManyToManyCreation, NatureManyToManySelection, NatureOneToMany:
		return toIDs(v)
	}
	return nil, fmt.Errorf("values of type %s cannot be converted", p.Type)
}

func toLocalized(v any) (localized.String, error) {
	switch x := v.(type) {
	case localized.String:
		return x, nil
	case map[string]string:
		return localized.String(x), nil
	case map[string]any:
		out := make(localized.String, len(x))
		for k, t := range x {
			out[k] = fmt.Sprint(t)
		}
		return out, nil
	case string:
		if x == "" {
			return nil, nil
		}
		return localized.New(localized.Default().String(), x), nil
	}
	return nil, fmt.Errorf("cannot use %T as localized text", v)
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, nil
		}
		return *x, nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339Nano, DateTimeLayout, DateLayout} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%q is not a date", x)
	}
	return time.Time{}, fmt.Errorf("cannot use %T as a date", v)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return 0, nil
		}
		return strconv.ParseInt(x, 10, 64)
	case json.Number:
		return x.Int64()
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		// float64(math.MaxInt64) rounds up to 2^63
		if x >= math.MaxInt64 || x < math.MinInt64 {
			return 0, fmt.Errorf("%v overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return toInt64(float64(x))
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	}
	return 0, fmt.Errorf("cannot use %T as an integer", v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(x)
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	}
	n, err := toInt64(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot use %T as a decimal", v)
	}
	return decimal.NewFromInt(n), nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return false, nil
		}
		return strconv.ParseBool(x)
	}
	return false, fmt.Errorf("cannot use %T as a boolean", v)
}

func toIDs(v any) ([]int64, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		id, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return []int64{id}, nil
	}
	out := make([]int64, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		id, err := toInt64(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// IsZeroValue reports whether v carries no information: nil, the zero value of its type,
// an empty collection or an empty localized text.
func IsZeroValue(v any) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case localized.String:
		return x.IsZero()
	case decimal.Decimal:
		return x.IsZero()
	case time.Time:
		return x.IsZero()
	case string:
		return strings.TrimSpace(x) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil() || IsZeroValue(rv.Elem().Interface())
	}
	return rv.IsZero()
}

// DisplayText renders a property value for grids and combo boxes.
func DisplayText(ctx context.Context, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case localized.String:
		return x.Text(ctx)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format(DateLayout)
		}
		return x.Format(DateTimeLayout)
	case *time.Time:
		if x == nil {
			return ""
		}
		return DisplayText(ctx, *x)
	case decimal.Decimal:
		return x.String()
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case []int64:
		parts := make([]string, len(x))
		for i, id := range x {
			parts[i] = strconv.FormatInt(id, 10)
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Display renders the display member of obj.
func (e *Entity) Display(ctx context.Context, obj any) string {
	if obj == nil || reflect.ValueOf(obj).IsNil() {
		return ""
	}
	p, ok := e.byName[e.DisplayMember]
	if !ok {
		return ""
	}
	return DisplayText(ctx, p.Get(obj))
}
