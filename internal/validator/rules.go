package validator

import "regexp"

// FieldKind is the expected type of a record attribute.
type FieldKind string

const (
	KindString   FieldKind = "string"
	KindDatetime FieldKind = "datetime"
	KindFloat    FieldKind = "float"
	KindInteger  FieldKind = "integer"
)

// FieldRule constrains one record attribute.
type FieldRule struct {
	Required bool
	Kind     FieldKind
	Pattern  *regexp.Regexp
	Min      *float64
	Max      *float64
	Allowed  []string
}

var metricTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// DefaultRules is the rule table for Apple Health exports. The value
// attribute is deliberately left as an unconstrained string: category
// records carry symbolic values that the importer coerces later.
func DefaultRules() map[string]FieldRule {
	return map[string]FieldRule{
		"type":         {Required: true, Kind: KindString, Pattern: metricTypePattern},
		"sourceName":   {Required: true, Kind: KindString},
		"startDate":    {Required: true, Kind: KindDatetime},
		"endDate":      {Required: true, Kind: KindDatetime},
		"creationDate": {Kind: KindDatetime},
		"unit":         {Kind: KindString},
		"value":        {Kind: KindString},
	}
}
