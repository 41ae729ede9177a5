package filterfield

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
)

// PrepareValueForURL turns a submitted widget value into URL filter values:
// nothing for an empty value, one entry for a scalar, every element of a slice.
func PrepareValueForURL(value any) []string {
	if value == nil {
		return []string{}
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			if s := fmt.Sprint(rv.Index(i).Interface()); s != "" {
				out = append(out, s)
			}
		}
		return out
	case reflect.Map:
		keys := rv.MapKeys()
		out := make([]string, 0, len(keys))
		for _, k := range sortedKeys(keys) {
			if s := fmt.Sprint(rv.MapIndex(k).Interface()); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		s := fmt.Sprint(value)
		if s == "" || (rv.Kind() == reflect.Bool && !rv.Bool()) {
			return []string{}
		}
		return []string{s}
	}
}

// PrepareDefaultFilterValue builds an OR preset filter from a submitted widget value.
func PrepareDefaultFilterValue(facetID string, value any) domain.PresetFilter {
	return domain.NewPresetFilter(facetID, domain.OperatorOr, PrepareValueForURL(value))
}

func sortedKeys(keys []reflect.Value) []reflect.Value {
	out := slices.Clone(keys)
	slices.SortFunc(out, func(a, b reflect.Value) int {
		return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	})
	return out
}
