// Package species models one entry of the upstream species nutrition dataset
// and the filter and sort rules applied to it.
package species

import (
	"strconv"
	"strings"
)

// Upstream field names used by the catalog. Records carry many more fields;
// they are kept verbatim but never interpreted.
const (
	FieldName          = "Species Name"
	FieldCalories      = "Calories"
	FieldFatTotal      = "Fat, Total"
	FieldServingWeight = "Serving Weight"
)

// requiredFields must all be present for a record to be displayed.
var requiredFields = []string{FieldCalories, FieldFatTotal, FieldServingWeight}

// Record is one species entry, decoded verbatim from the upstream JSON object.
// Records are treated as immutable once fetched.
type Record map[string]any

// Name returns the species name, or "" if absent.
func (r Record) Name() string { return r.Text(FieldName) }

// Calories returns the raw calories text.
func (r Record) Calories() string { return r.Text(FieldCalories) }

// FatTotal returns the raw total fat text.
func (r Record) FatTotal() string { return r.Text(FieldFatTotal) }

// ServingWeight returns the raw serving weight text.
func (r Record) ServingWeight() string { return r.Text(FieldServingWeight) }

// Text renders a field as display text. Missing and null fields render as "".
func (r Record) Text(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Has reports whether field holds a non-empty value. null, "", false and 0
// all count as absent.
func (r Record) Has(field string) bool {
	switch v := r[field].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case float64:
		return v != 0
	case bool:
		return v
	default:
		return true
	}
}

// Valid reports whether calories, total fat and serving weight are all present.
func (r Record) Valid() bool {
	for _, f := range requiredFields {
		if !r.Has(f) {
			return false
		}
	}
	return true
}

// Match reports whether the species name contains query, ignoring case.
// An empty query matches every record.
func (r Record) Match(query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name()), strings.ToLower(query))
}

// KeepValid returns the valid records in their original order.
func KeepValid(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Filter returns the valid records whose name matches query, order preserved.
func Filter(records []Record, query string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Valid() && r.Match(query) {
			out = append(out, r)
		}
	}
	return out
}
