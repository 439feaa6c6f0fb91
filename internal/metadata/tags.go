package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag keys read from struct fields.
const (
	TagEntity  = "entity"
	TagDisplay = "display"
	TagEntry   = "entry"
	TagGrid    = "grid"
	TagFilter  = "filter"
	TagRel     = "rel"
	TagDB      = "db"
	TagSource  = "source"
	TagEnum    = "enum"
)

// options is a parsed tag value: bare flags map to "" and key=value pairs to value.
type options struct {
	// first bare token, used by rel for the relationship kind
	head   string
	values map[string]string
	order  []string
}

func parseOptions(tag string) options {
	o := options{values: make(map[string]string)}
	for i, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !hasValue && i == 0 {
			o.head = key
		}
		o.values[key] = strings.TrimSpace(value)
		o.order = append(o.order, key)
	}
	return o
}

func (o options) has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o options) get(key string) string {
	return o.values[key]
}

// unknown returns the first key outside allowed, or "". The head token is
// skipped when withHead is set.
func (o options) unknown(withHead bool, allowed ...string) string {
	for _, k := range o.order {
		if withHead && k == o.head {
			continue
		}
		if !contains(allowed, k) {
			return k
		}
	}
	return ""
}

func (o options) intValue(key string) (int, error) {
	raw, ok := o.values[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("option %s=%q is not an integer", key, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("option %s=%d must not be negative", key, n)
	}
	return n, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// dbColumn returns the column of a db tag, "" when absent or "-".
func dbColumn(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
