package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownField is returned when a record has no field of the given name.
var ErrUnknownField = errors.New("unknown field")

// stringValue converts a directory attribute value to a nullable column value.
// Multi-valued attributes keep their first value.
func stringValue(v any) *string {
	var s string
	switch value := v.(type) {
	case nil:
		return nil
	case string:
		s = value
	case *string:
		return value
	case []byte:
		s = string(value)
	case []string:
		if len(value) == 0 {
			return nil
		}
		s = value[0]
	case []any:
		if len(value) == 0 {
			return nil
		}
		return stringValue(value[0])
	case fmt.Stringer:
		s = value.String()
	default:
		s = fmt.Sprint(value)
	}
	return &s
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// touched records which relationship fields were overwritten.
type touched map[string]bool

func (t *touched) mark(field string) {
	if *t == nil {
		*t = make(touched)
	}
	(*t)[field] = true
}

func (t touched) names(associations map[string]string) []string {
	out := make([]string, 0, len(t))
	for field := range t {
		out = append(out, associations[field])
	}
	sort.Strings(out)
	return out
}
