package index

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/matst80/slask-facets/pkg/types"
)

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// NormalizeValue brings a stored attribute value to the canonical form used
// by selections for the given value type. It returns false for values that
// cannot be represented, like "maybe" for a boolean.
func NormalizeValue(vt types.ValueType, value string) (string, bool) {
	value = strings.TrimSpace(value)
	switch vt {
	case types.ValueBoolean:
		if value == "" {
			return "false", true
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	case types.ValueNumber:
		n, ok := parseNumber(value)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case types.ValueText, types.ValueEnum, types.ValueNone:
		return value, value != ""
	}
	return "", false
}

func compareNumbers(op types.CompareOp, stored float64, wanted []float64) bool {
	switch op {
	case types.OpEqual, types.OpIn:
		return slices.Contains(wanted, stored)
	case types.OpNotEqual, types.OpNotIn:
		return !slices.Contains(wanted, stored)
	case types.OpGreater:
		return stored > wanted[0]
	case types.OpGreaterEqual:
		return stored >= wanted[0]
	case types.OpLess:
		return stored < wanted[0]
	case types.OpLessEqual:
		return stored <= wanted[0]
	case types.OpBetween:
		return stored >= wanted[0] && stored <= wanted[1]
	case types.OpNotBetween:
		return stored < wanted[0] || stored > wanted[1]
	}
	return false
}

func compareStrings(op types.CompareOp, stored string, wanted []string) bool {
	switch op {
	case types.OpEqual, types.OpIn:
		return slices.Contains(wanted, stored)
	case types.OpNotEqual, types.OpNotIn:
		return !slices.Contains(wanted, stored)
	case types.OpGreater:
		return stored > wanted[0]
	case types.OpGreaterEqual:
		return stored >= wanted[0]
	case types.OpLess:
		return stored < wanted[0]
	case types.OpLessEqual:
		return stored <= wanted[0]
	case types.OpBetween:
		return stored >= wanted[0] && stored <= wanted[1]
	case types.OpNotBetween:
		return stored < wanted[0] || stored > wanted[1]
	}
	return false
}

func containsFold(stored string, wanted []string) bool {
	lower := strings.ToLower(stored)
	for _, w := range wanted {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func numbers(values []string) ([]float64, bool) {
	ret := make([]float64, 0, len(values))
	for _, v := range values {
		n, ok := parseNumber(v)
		if !ok {
			return nil, false
		}
		ret = append(ret, n)
	}
	return ret, true
}

func negated(op types.CompareOp) bool {
	switch op {
	case types.OpNotEqual, types.OpNotIn, types.OpNotLike, types.OpNotBetween:
		return true
	}
	return false
}

// matchAttribute reports whether the item satisfies an attribute constraint.
// Multi valued attributes match when any stored value matches, negated
// operators require that no stored value matches the positive form.
func matchAttribute(item *types.Item, c *types.Constraint) bool {
	stored, has := item.Attribute(c.Field)
	switch c.Op {
	case types.OpExists:
		return has
	case types.OpNotExists:
		return !has
	}
	if !has {
		return false
	}
	if negated(c.Op) {
		positive := *c
		positive.Op = positiveOp(c.Op)
		return !matchAttribute(item, &positive)
	}
	for _, value := range stored {
		if matchValue(c, value) {
			return true
		}
	}
	return false
}

func positiveOp(op types.CompareOp) types.CompareOp {
	switch op {
	case types.OpNotEqual:
		return types.OpEqual
	case types.OpNotIn:
		return types.OpIn
	case types.OpNotLike:
		return types.OpLike
	case types.OpNotBetween:
		return types.OpBetween
	}
	return op
}

func matchValue(c *types.Constraint, value string) bool {
	switch c.ValueType {
	case types.ValueText:
		return containsFold(value, c.Values)
	case types.ValueNumber:
		n, ok := parseNumber(value)
		if !ok {
			return false
		}
		if len(c.Numbers) == 0 {
			return false
		}
		return compareNumbers(c.Op, n, c.Numbers)
	case types.ValueBoolean, types.ValueEnum:
		normalized, ok := NormalizeValue(c.ValueType, value)
		if !ok {
			return false
		}
		return slices.Contains(c.Values, normalized)
	case types.ValueNone:
		return matchUntyped(c, value)
	}
	return false
}

// matchUntyped handles base filters where no field type is known, numbers
// are compared numerically when both sides parse.
func matchUntyped(c *types.Constraint, value string) bool {
	if len(c.Values) == 0 {
		return false
	}
	if c.Op == types.OpLike {
		return containsFold(value, c.Values)
	}
	if n, ok := parseNumber(value); ok {
		if wanted, ok := numbers(c.Values); ok {
			return compareNumbers(c.Op, n, wanted)
		}
	}
	return compareStrings(c.Op, strings.TrimSpace(value), c.Values)
}
