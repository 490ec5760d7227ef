package types

import "fmt"

type DimensionKind string

const (
	KindCategorical DimensionKind = "categorical"
	KindCustom      DimensionKind = "custom"
)

type DisplayMode string

const (
	DisplayDropdown     DisplayMode = "dropdown"
	DisplayMultiSelect  DisplayMode = "multiSelect"
	DisplaySingleSelect DisplayMode = "singleSelect"
	DisplayFreeText     DisplayMode = "freeText"
	DisplayNumeric      DisplayMode = "numeric"
)

type ValueType string

const (
	ValueNone    ValueType = ""
	ValueText    ValueType = "text"
	ValueNumber  ValueType = "number"
	ValueBoolean ValueType = "boolean"
	ValueEnum    ValueType = "enum"
)

// Comparator is the operator used for numeric custom dimensions.
type Comparator string

const (
	CompareEqual        Comparator = "="
	CompareNotEqual     Comparator = "!="
	CompareGreater      Comparator = ">"
	CompareGreaterEqual Comparator = ">="
	CompareLess         Comparator = "<"
	CompareLessEqual    Comparator = "<="
	CompareBetween      Comparator = "between"
)

// DimensionConfig is the author supplied form of a dimension as it arrives
// from a widget.
type DimensionConfig struct {
	Key         string        `json:"dimensionKey" yaml:"key" schema:"dimensionKey"`
	Kind        DimensionKind `json:"kind" yaml:"kind" schema:"kind"`
	DisplayMode DisplayMode   `json:"displayMode" yaml:"displayMode" schema:"displayMode"`
	Comparator  Comparator    `json:"comparator,omitempty" yaml:"comparator,omitempty" schema:"comparator"`
	Label       string        `json:"label,omitempty" yaml:"label,omitempty" schema:"label"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterDimension is a resolved dimension, the value type and option universe
// are looked up once against the catalog schema.
type FilterDimension struct {
	Key         string
	Label       string
	Kind        DimensionKind
	DisplayMode DisplayMode
	ValueType   ValueType
	Comparator  Comparator
	Options     []Option
}

// HasUniverse reports whether the dimension has a discrete set of options to
// count facets over.
func (d *FilterDimension) HasUniverse() bool {
	switch d.DisplayMode {
	case DisplayFreeText, DisplayNumeric:
		return false
	case DisplayDropdown, DisplayMultiSelect, DisplaySingleSelect:
		return d.Options != nil
	}
	return false
}

// CheckDisplayMode validates the kind/value type against the display mode.
func CheckDisplayMode(kind DimensionKind, valueType ValueType, mode DisplayMode) error {
	var allowed []DisplayMode
	switch kind {
	case KindCategorical:
		allowed = []DisplayMode{DisplayDropdown, DisplayMultiSelect, DisplaySingleSelect}
	case KindCustom:
		switch valueType {
		case ValueText:
			allowed = []DisplayMode{DisplayFreeText, DisplayDropdown, DisplaySingleSelect}
		case ValueNumber:
			allowed = []DisplayMode{DisplayNumeric, DisplayDropdown, DisplaySingleSelect}
		case ValueBoolean, ValueEnum:
			allowed = []DisplayMode{DisplayDropdown, DisplaySingleSelect, DisplayMultiSelect}
		default:
			return &ConfigurationError{Message: fmt.Sprintf("unknown value type %q", valueType)}
		}
	default:
		return &ConfigurationError{Message: fmt.Sprintf("unknown dimension kind %q", kind)}
	}
	for _, m := range allowed {
		if m == mode {
			return nil
		}
	}
	return &ConfigurationError{Message: fmt.Sprintf("display mode %q not allowed for %s/%s", mode, kind, valueType)}
}

func (c Comparator) Valid() bool {
	switch c {
	case CompareEqual, CompareNotEqual, CompareGreater, CompareGreaterEqual, CompareLess, CompareLessEqual, CompareBetween:
		return true
	}
	return false
}
