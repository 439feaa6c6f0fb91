// Package filter describes the predicates a gateway can push down to storage.
package filter

// ComparisonType is the kind of comparison applied to a property.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"        // equal
	NotEqual       ComparisonType = "neq"       // not equal
	Less           ComparisonType = "lt"        // less than
	Greater        ComparisonType = "gt"        // greater than
	LessOrEqual    ComparisonType = "lte"       // less or equal
	GreaterOrEqual ComparisonType = "gte"       // greater or equal
	InList         ComparisonType = "in"        // in list
	NotInList      ComparisonType = "nin"       // not in list
	Contains       ComparisonType = "contains"  // contains (ILIKE %val%)
	NotContains    ComparisonType = "ncontains" // does not contain (NOT ILIKE %val%)

	// SameDay matches date/time values on the same calendar day as Value.
	SameDay ComparisonType = "same_day"
	// MemberOf matches owners whose many-to-many collection contains Value.
	MemberOf ComparisonType = "member_of"

	IsNull    ComparisonType = "null"     // not filled
	IsNotNull ComparisonType = "not_null" // filled
)

// Item is one predicate.
type Item struct {
	Field    string         `json:"field"`    // property name (Go field name)
	Operator ComparisonType `json:"operator"` // comparison
	Value    any            `json:"value"`    // value (scalar, list of ids)
}

// Eq is shorthand for an equality item.
func Eq(field string, value any) Item {
	return Item{Field: field, Operator: Equal, Value: value}
}

// Valid reports whether op is a known comparison.
func (op ComparisonType) Valid() bool {
	switch op {
	case Equal, NotEqual, Less, Greater, LessOrEqual, GreaterOrEqual, InList, NotInList,
		Contains, NotContains, SameDay, MemberOf, IsNull, IsNotNull:
		return true
	}
	return false
}
