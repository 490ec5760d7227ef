package types

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
)

// Selections maps a dimension key to the selected option values. An empty
// list means the dimension is inactive.
type Selections map[string][]string

func (s Selections) Set(key string, values ...string) {
	s[key] = slices.Clone(values)
}

func (s Selections) Clear() {
	clear(s)
}

// Values returns the trimmed, non-empty, de-duplicated values for key in the
// order they were first selected.
func (s Selections) Values(key string) []string {
	raw := s[key]
	if len(raw) == 0 {
		return nil
	}
	ret := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		ret = append(ret, v)
	}
	return ret
}

func (s Selections) IsActive(key string) bool {
	return len(s.Values(key)) > 0
}

func (s Selections) IsSelected(key, value string) bool {
	return slices.Contains(s.Values(key), value)
}

func (s Selections) HasAny() bool {
	for key := range s {
		if s.IsActive(key) {
			return true
		}
	}
	return false
}

// ActiveKeys returns the keys with a non-empty selection, sorted.
func (s Selections) ActiveKeys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		if s.IsActive(key) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func (s Selections) Clone() Selections {
	ret := make(Selections, len(s))
	for k, v := range s {
		ret[k] = slices.Clone(v)
	}
	return ret
}

// Without returns a copy lacking key, the receiver is not modified.
func (s Selections) Without(key string) Selections {
	ret := s.Clone()
	delete(ret, key)
	return ret
}

// Equal compares the effective (normalized, order independent) selections.
func (s Selections) Equal(other Selections) bool {
	a := s.normalized()
	b := other.normalized()
	return maps.EqualFunc(a, b, slices.Equal)
}

func (s Selections) normalized() map[string][]string {
	ret := make(map[string][]string, len(s))
	for key := range s {
		values := s.Values(key)
		if len(values) == 0 {
			continue
		}
		slices.Sort(values)
		ret[key] = values
	}
	return ret
}

// UnmarshalJSON accepts a single scalar or a list per key.
func (s *Selections) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := jsoncompat.Unmarshal(data, &raw); err != nil {
		return err
	}
	ret := make(Selections, len(raw))
	for key, value := range raw {
		values, err := selectionValues(value)
		if err != nil {
			return fmt.Errorf("selection %q: %w", key, err)
		}
		ret[key] = values
	}
	*s = ret
	return nil
}

func selectionValues(value any) ([]string, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{typed}, nil
	case bool:
		return []string{strconv.FormatBool(typed)}, nil
	case float64:
		return []string{strconv.FormatFloat(typed, 'f', -1, 64)}, nil
	case []any:
		ret := make([]string, 0, len(typed))
		for _, v := range typed {
			inner, err := selectionValues(v)
			if err != nil {
				return nil, err
			}
			ret = append(ret, inner...)
		}
		return ret, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", value)
}
