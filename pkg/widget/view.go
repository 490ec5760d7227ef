package widget

import (
	"cmp"
	"net/url"
	"slices"

	"github.com/matst80/slask-facets/pkg/types"
)

// OptionState is how one filter option should be presented after a response.
type OptionState struct {
	Value    string
	Label    string
	Count    int
	Selected bool
	Enabled  bool
}

type PaginationAffordance struct {
	Visible bool
	Enabled bool
	Label   string
}

// View is the presentation side of a widget. All calls happen on the
// synchronizer loop.
type View interface {
	RenderItems(html string, appendItems bool)
	ShowError(html string)
	SetLoading(loading bool)
	SetOptionAvailability(key string, options []OptionState)
	SetPaginationAffordance(p PaginationAffordance)
	SetClearAllVisible(visible bool)
	// ApplySelections moves the controls to the given state, used when the
	// state is restored from history or cleared.
	ApplySelections(sel types.Selections)
}

type History interface {
	Location() url.Values
	Push(location url.Values)
}

type Carousel interface {
	Close() error
}

// CarouselFactory attaches a carousel to the currently rendered items.
type CarouselFactory interface {
	NewCarousel() (Carousel, error)
}

// optionStates merges the facet counts with the selection. A selected option
// is always enabled, even when the server reports no matches for it.
func optionStates(counts map[string]types.FacetCount, selected []string) []OptionState {
	ret := make([]OptionState, 0, len(counts)+len(selected))
	for value, fc := range counts {
		isSelected := slices.Contains(selected, value)
		ret = append(ret, OptionState{
			Value:    value,
			Label:    fc.Label,
			Count:    fc.Count,
			Selected: isSelected,
			Enabled:  fc.Count > 0 || isSelected,
		})
	}
	for _, value := range selected {
		if _, ok := counts[value]; !ok {
			ret = append(ret, OptionState{Value: value, Label: value, Selected: true, Enabled: true})
		}
	}
	slices.SortFunc(ret, func(a, b OptionState) int {
		return cmp.Compare(a.Value, b.Value)
	})
	return ret
}
