package query

import (
	"fmt"
	"strings"

	"github.com/matst80/slask-facets/pkg/types"
)

// Config is the resolved, validated list of dimensions for one widget.
type Config []types.FilterDimension

func (c Config) Get(key string) (*types.FilterDimension, bool) {
	for i := range c {
		if c[i].Key == key {
			return &c[i], true
		}
	}
	return nil, false
}

// ResolveConfig turns the wire form into typed dimensions, failing with a
// ConfigurationError on unknown kinds, unknown keys or display modes that do
// not fit the value type.
func ResolveConfig(schema types.Schema, raw []types.DimensionConfig) (Config, error) {
	ret := make(Config, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, dc := range raw {
		key := strings.TrimSpace(dc.Key)
		if key == "" {
			return nil, &types.ConfigurationError{Message: "dimension without key"}
		}
		if _, ok := seen[key]; ok {
			return nil, &types.ConfigurationError{Message: fmt.Sprintf("duplicate dimension %q", key)}
		}
		seen[key] = struct{}{}
		dim, err := resolveDimension(schema, key, dc)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *dim)
	}
	return ret, nil
}

func resolveDimension(schema types.Schema, key string, dc types.DimensionConfig) (*types.FilterDimension, error) {
	dim := &types.FilterDimension{
		Key:         key,
		Label:       dc.Label,
		Kind:        dc.Kind,
		DisplayMode: dc.DisplayMode,
	}
	switch dc.Kind {
	case types.KindCategorical:
		tax, ok := schema.Taxonomy(key)
		if !ok {
			return nil, &types.ConfigurationError{Message: fmt.Sprintf("unknown taxonomy %q", key)}
		}
		if dim.Label == "" {
			dim.Label = tax.Label
		}
		dim.Options = make([]types.Option, 0, len(tax.Terms))
		for _, term := range tax.Terms {
			dim.Options = append(dim.Options, types.Option{Value: term.Slug, Label: term.Label})
		}
	case types.KindCustom:
		field, ok := schema.Field(key)
		if !ok {
			return nil, &types.ConfigurationError{Message: fmt.Sprintf("unknown custom field %q", key)}
		}
		if dim.Label == "" {
			dim.Label = field.Label
		}
		dim.ValueType = field.Type
		if dim.ValueType == types.ValueNumber {
			dim.Comparator = dc.Comparator
			if dim.Comparator == "" {
				dim.Comparator = types.CompareEqual
			}
			if !dim.Comparator.Valid() {
				return nil, &types.ConfigurationError{Message: fmt.Sprintf("unknown comparator %q for %q", dc.Comparator, key)}
			}
		}
		dim.Options = fieldOptions(field, dc.DisplayMode)
	default:
		return nil, &types.ConfigurationError{Message: fmt.Sprintf("unknown dimension kind %q", dc.Kind)}
	}
	if err := types.CheckDisplayMode(dim.Kind, dim.ValueType, dim.DisplayMode); err != nil {
		return nil, err
	}
	return dim, nil
}

func fieldOptions(field *types.CustomField, mode types.DisplayMode) []types.Option {
	switch field.Type {
	case types.ValueBoolean:
		trueLabel, falseLabel := "Yes", "No"
		for _, c := range field.Choices {
			switch c.Value {
			case "true":
				trueLabel = c.Label
			case "false":
				falseLabel = c.Label
			}
		}
		return []types.Option{{Value: "true", Label: trueLabel}, {Value: "false", Label: falseLabel}}
	case types.ValueEnum:
		return choiceOptions(field.Choices)
	case types.ValueText, types.ValueNumber:
		if mode == types.DisplayFreeText || mode == types.DisplayNumeric || len(field.Choices) == 0 {
			return nil
		}
		return choiceOptions(field.Choices)
	}
	return nil
}

func choiceOptions(choices []types.Choice) []types.Option {
	ret := make([]types.Option, 0, len(choices))
	for _, c := range choices {
		label := c.Label
		if label == "" {
			label = c.Value
		}
		ret = append(ret, types.Option{Value: c.Value, Label: label})
	}
	return ret
}
