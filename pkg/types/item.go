package types

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
)

type ItemId uint32
type TermId uint32

// AttributeValue holds the stored representation of a custom attribute. Most
// attributes hold one value, checkbox style fields hold several.
type AttributeValue []string

func (v AttributeValue) First() string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func (v AttributeValue) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return jsoncompat.Marshal(v[0])
	}
	return jsoncompat.Marshal([]string(v))
}

func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := jsoncompat.Unmarshal(data, &raw); err != nil {
		return err
	}
	values, err := attributeValues(raw)
	if err != nil {
		return err
	}
	*v = values
	return nil
}

func attributeValues(raw any) (AttributeValue, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return AttributeValue{typed}, nil
	case bool:
		return AttributeValue{strconv.FormatBool(typed)}, nil
	case float64:
		return AttributeValue{strconv.FormatFloat(typed, 'f', -1, 64)}, nil
	case []any:
		ret := make(AttributeValue, 0, len(typed))
		for _, v := range typed {
			inner, err := attributeValues(v)
			if err != nil {
				return nil, err
			}
			ret = append(ret, inner...)
		}
		return ret, nil
	}
	return nil, fmt.Errorf("unsupported attribute value %T", raw)
}

// Item is a content entry as seen by the filter engine.
type Item struct {
	Id         ItemId                    `json:"id"`
	PostType   string                    `json:"postType"`
	Status     string                    `json:"status"`
	Title      string                    `json:"title"`
	Slug       string                    `json:"slug,omitempty"`
	Url        string                    `json:"url,omitempty"`
	Image      string                    `json:"image,omitempty"`
	Excerpt    string                    `json:"excerpt,omitempty"`
	MenuOrder  int                       `json:"menuOrder,omitempty"`
	Date       time.Time                 `json:"date"`
	Modified   time.Time                 `json:"modified"`
	Terms      map[string][]TermId       `json:"terms,omitempty"`
	Attributes map[string]AttributeValue `json:"attributes,omitempty"`
}

func (i *Item) GetId() ItemId {
	return i.Id
}

func (i *Item) HasTerm(taxonomy string, id TermId) bool {
	return slices.Contains(i.Terms[taxonomy], id)
}

func (i *Item) Attribute(key string) (AttributeValue, bool) {
	v, ok := i.Attributes[key]
	if !ok || len(v) == 0 {
		return nil, false
	}
	return v, true
}
