package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeID coerces any incoming identifier into its canonical string form.
//
// Numeric values are formatted without a fractional part. Strings containing
// a decimal point are truncated at the first '.'; the fraction is an
// artifact of numeric round-tripping through a loosely-typed transport, not
// part of the identifier. Nil input yields the empty string.
//
// NormalizeID must be applied to every id before it is used as a primary or
// foreign key anywhere in the embedded store.
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return truncateFraction(id)
	case json.Number:
		return truncateFraction(id.String())
	case int:
		return strconv.Itoa(id)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float32:
		return strconv.FormatInt(int64(id), 10)
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return truncateFraction(fmt.Sprintf("%v", v))
	}
}

// truncateFraction cuts the string at the first decimal point.
func truncateFraction(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}
