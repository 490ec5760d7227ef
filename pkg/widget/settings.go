package widget

import (
	"time"

	"github.com/google/uuid"
	"github.com/matst80/slask-facets/pkg/types"
)

type Layout string

const (
	LayoutGrid     Layout = "grid"
	LayoutCarousel Layout = "carousel"
)

// OverlapPolicy decides what happens to a trigger that arrives while a
// request is in flight.
type OverlapPolicy int

const (
	// DropWhileInFlight ignores the trigger, the selection change it carried
	// is kept and goes out with the next request.
	DropWhileInFlight OverlapPolicy = iota
	// ReplaceInFlight cancels the running request and issues a new one,
	// responses of replaced requests are ignored.
	ReplaceInFlight
)

func (p OverlapPolicy) String() string {
	switch p {
	case DropWhileInFlight:
		return "drop"
	case ReplaceInFlight:
		return "replace"
	}
	return "unknown"
}

const (
	DefaultDebounce      = 500 * time.Millisecond
	DefaultLoadMoreLabel = "Load More"
	DefaultNoMoreLabel   = "No More Products"
	DefaultErrorFragment = `<p class="filter-error-message">Error loading products.</p>`
)

// Settings is the author configuration of one widget instance.
type Settings struct {
	WidgetId      string
	TemplateRef   string
	Base          types.BaseConstraints
	Dimensions    []types.DimensionConfig
	Mode          types.CombinationMode
	Layout        Layout
	LoadMore      bool
	LoadMoreLabel string
	NoMoreLabel   string
	History       bool
	Debounce      time.Duration
	Overlap       OverlapPolicy
	ErrorFragment string
}

func (s *Settings) Sanitize() {
	if s.WidgetId == "" {
		s.WidgetId = uuid.NewString()
	}
	s.Base.Sanitize()
	s.Mode = types.ParseCombinationMode(string(s.Mode))
	if s.Layout != LayoutCarousel {
		s.Layout = LayoutGrid
	}
	if s.LoadMoreLabel == "" {
		s.LoadMoreLabel = DefaultLoadMoreLabel
	}
	if s.NoMoreLabel == "" {
		s.NoMoreLabel = DefaultNoMoreLabel
	}
	if s.Debounce <= 0 {
		s.Debounce = DefaultDebounce
	}
	if s.ErrorFragment == "" {
		s.ErrorFragment = DefaultErrorFragment
	}
}

func (s *Settings) dimension(key string) (types.DimensionConfig, bool) {
	for _, d := range s.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return types.DimensionConfig{}, false
}

// debounced reports whether input on the dimension waits for the debounce
// window before a request is made.
func debounced(d types.DimensionConfig) bool {
	return d.DisplayMode == types.DisplayFreeText || d.DisplayMode == types.DisplayNumeric
}
