package types

type FacetCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FacetResult maps dimension key to option value to its count under the
// query with that dimension's own selection lifted.
type FacetResult map[string]map[string]FacetCount

// OptionCounts builds a zeroed count map for the given options.
func OptionCounts(options []Option) map[string]FacetCount {
	ret := make(map[string]FacetCount, len(options))
	for _, o := range options {
		ret[o.Value] = FacetCount{Label: o.Label}
	}
	return ret
}
