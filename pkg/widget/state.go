package widget

import (
	"net/url"
	"strings"

	"github.com/matst80/slask-facets/pkg/types"
)

const (
	TaxonomyParamPrefix  = "tax."
	AttributeParamPrefix = "attr."
)

func paramName(d types.DimensionConfig) string {
	if d.Kind == types.KindCategorical {
		return TaxonomyParamPrefix + d.Key
	}
	return AttributeParamPrefix + d.Key
}

func isStateParam(key string) bool {
	return strings.HasPrefix(key, TaxonomyParamPrefix) || strings.HasPrefix(key, AttributeParamPrefix)
}

// EncodeState writes the selections into a copy of location. Parameters of
// other widgets and the page itself are kept, every value gets its own
// parameter so values containing commas survive.
func EncodeState(location url.Values, dims []types.DimensionConfig, sel types.Selections) url.Values {
	ret := url.Values{}
	for key, values := range location {
		if isStateParam(key) {
			continue
		}
		ret[key] = append([]string(nil), values...)
	}
	for _, d := range dims {
		for _, v := range sel.Values(d.Key) {
			ret.Add(paramName(d), v)
		}
	}
	return ret
}

// DecodeState reads the selections of the configured dimensions from a
// location, unknown parameters are ignored.
func DecodeState(location url.Values, dims []types.DimensionConfig) types.Selections {
	ret := types.Selections{}
	for _, d := range dims {
		values := location[paramName(d)]
		if len(values) == 0 {
			continue
		}
		ret.Set(d.Key, values...)
		if cleaned := ret.Values(d.Key); len(cleaned) > 0 {
			ret.Set(d.Key, cleaned...)
		} else {
			delete(ret, d.Key)
		}
	}
	return ret
}
