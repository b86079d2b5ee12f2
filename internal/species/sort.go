package species

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hpungsan/fishfacts/internal/errors"
)

// SortKey selects the field a catalog is ordered by.
type SortKey string

const (
	SortSpecies     SortKey = "Species"
	SortCalories    SortKey = "Calories"
	SortFat         SortKey = "Fat"
	SortServingSize SortKey = "Serving Size"
)

// SortKeys lists the selectable keys in display order.
var SortKeys = []SortKey{SortSpecies, SortCalories, SortFat, SortServingSize}

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, error) {
	key := SortKey(strings.TrimSpace(s))
	if slices.Contains(SortKeys, key) {
		return key, nil
	}
	if key == "" {
		return "", errors.NewInvalidRequest("sort key is required")
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("unknown sort key %q (want one of: Species, Calories, Fat, Serving Size)", s))
}

// Sort returns a copy of records ordered ascending by key. The input slice is
// not modified. Selecting the same key twice never reverses the order.
func Sort(records []Record, key SortKey) []Record {
	out := slices.Clone(records)
	switch key {
	case SortSpecies:
		slices.SortStableFunc(out, func(a, b Record) int {
			return strings.Compare(a.Name(), b.Name())
		})
	case SortCalories:
		sortNumeric(out, FieldCalories, parseLeadingInt)
	case SortFat:
		sortNumeric(out, FieldFatTotal, parseLeadingFloat)
	case SortServingSize:
		sortNumeric(out, FieldServingWeight, parseLeadingInt)
	}
	return out
}

// sortNumeric orders by a parsed numeric field. Values that do not parse sort
// after every parsable value and keep their relative order.
func sortNumeric(records []Record, field string, parse func(string) (float64, bool)) {
	slices.SortStableFunc(records, func(a, b Record) int {
		av, aok := parse(a.Text(field))
		bv, bok := parse(b.Text(field))
		switch {
		case aok && bok:
			return cmp.Compare(av, bv)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})
}

// parseLeadingInt parses the leading decimal integer of s, ignoring any
// trailing unit text: "100 g" -> 100, "45.9" -> 45.
func parseLeadingInt(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := signLen(s)
	digits := countDigits(s[end:])
	if digits == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end+digits], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseLeadingFloat parses the leading decimal number of s, ignoring any
// trailing unit text: "1.5 g" -> 1.5, ".5" -> 0.5, "2e1g" -> 20.
func parseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := signLen(s)
	intDigits := countDigits(s[end:])
	end += intDigits

	fracDigits := 0
	if end < len(s) && s[end] == '.' {
		fracDigits = countDigits(s[end+1:])
		if intDigits > 0 || fracDigits > 0 {
			end += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0, false
	}

	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		exp += signLen(s[exp:])
		if n := countDigits(s[exp:]); n > 0 {
			end = exp + n
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func signLen(s string) int {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		return 1
	}
	return 0
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
