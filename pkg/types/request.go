package types

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/schema"
	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
)

const (
	SelectionParamPrefix = "sel."
	maxBodySize          = 1 << 20
)

// FilterRequest is what a widget sends for every filter, page or load more
// action.
type FilterRequest struct {
	TemplateRef string            `json:"templateRef" schema:"templateRef"`
	Nonce       string            `json:"nonce" schema:"nonce"`
	WidgetId    string            `json:"widgetId" schema:"widget"`
	PostType    string            `json:"postType,omitempty" schema:"postType"`
	PageSize    int               `json:"pageSize,omitempty" schema:"pageSize"`
	Page        int               `json:"page" schema:"page"`
	Base        BaseConstraints   `json:"baseConstraints" schema:"base"`
	Filters     []DimensionConfig `json:"filterConfig" schema:"-"`
	Mode        CombinationMode   `json:"combinationMode" schema:"mode"`
	Selections  Selections        `json:"selections" schema:"-"`
}

type FilterResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Items      string      `json:"items"`
	Page       int         `json:"page"`
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
	Facets     FacetResult `json:"facets"`
	Rejected   []string    `json:"rejected,omitempty"`
}

func FailedResponse(message string) *FilterResponse {
	return &FilterResponse{
		Success: false,
		Message: message,
		Facets:  FacetResult{},
	}
}

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// Sanitize moves the top level overrides into the base constraints and fills
// defaults.
func (r *FilterRequest) Sanitize() {
	if r.PostType != "" {
		r.Base.PostType = r.PostType
	}
	if r.PageSize > 0 {
		r.Base.PageSize = r.PageSize
	}
	r.Base.Sanitize()
	r.PostType = r.Base.PostType
	r.PageSize = r.Base.PageSize
	if r.Page < 1 {
		r.Page = 1
	}
	r.Mode = ParseCombinationMode(string(r.Mode))
	if r.Selections == nil {
		r.Selections = Selections{}
	}
	r.TemplateRef = strings.TrimSpace(r.TemplateRef)
}

// GetFilterRequest decodes a request from a JSON body, a form post or the
// query string.
func GetFilterRequest(r *http.Request) (*FilterRequest, error) {
	req := &FilterRequest{}
	var err error
	switch {
	case r.Method == http.MethodGet:
		err = DecodeFilterQuery(r.URL.Query(), req)
	case strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded"):
		if err = r.ParseForm(); err == nil {
			err = DecodeFilterQuery(r.PostForm, req)
		}
	default:
		var body []byte
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err == nil {
			err = jsoncompat.Unmarshal(body, req)
		}
	}
	if err != nil {
		return nil, &ValidationError{Message: "malformed filter request", Err: err}
	}
	req.Sanitize()
	return req, nil
}

// DecodeFilterQuery reads the url encoded form of a request. Besides the
// plain schema fields it understands:
//
//	dim=<key>:<kind>:<displayMode>[:<comparator>]
//	sel.<key>=<value> (repeatable)
//	af=<key>|<compare>|<value>
func DecodeFilterQuery(query url.Values, result *FilterRequest) error {
	if err := decoder.Decode(result, query); err != nil {
		return err
	}
	for _, v := range query["dim"] {
		parts := strings.Split(v, ":")
		if len(parts) < 3 {
			return fmt.Errorf("invalid dimension %q", v)
		}
		dim := DimensionConfig{
			Key:         strings.TrimSpace(parts[0]),
			Kind:        DimensionKind(strings.TrimSpace(parts[1])),
			DisplayMode: DisplayMode(strings.TrimSpace(parts[2])),
		}
		if len(parts) > 3 {
			dim.Comparator = Comparator(strings.TrimSpace(parts[3]))
		}
		result.Filters = append(result.Filters, dim)
	}
	for _, v := range query["af"] {
		parts := strings.SplitN(v, "|", 3)
		if len(parts) != 3 {
			continue
		}
		result.Base.AttributeFilters = append(result.Base.AttributeFilters, AttributeFilter{
			Key:     parts[0],
			Compare: parts[1],
			Value:   parts[2],
		})
	}
	for key, values := range query {
		if !strings.HasPrefix(key, SelectionParamPrefix) {
			continue
		}
		if result.Selections == nil {
			result.Selections = Selections{}
		}
		dimension := strings.TrimPrefix(key, SelectionParamPrefix)
		result.Selections[dimension] = append(result.Selections[dimension], values...)
	}
	return nil
}

// EncodeFilterQuery is the inverse of DecodeFilterQuery for the parts a
// widget varies per request.
func EncodeFilterQuery(req *FilterRequest) url.Values {
	ret := url.Values{}
	set := func(key, value string) {
		if value != "" {
			ret.Set(key, value)
		}
	}
	set("templateRef", req.TemplateRef)
	set("nonce", req.Nonce)
	set("widget", req.WidgetId)
	set("mode", string(req.Mode))
	if req.Page > 0 {
		ret.Set("page", fmt.Sprint(req.Page))
	}
	if req.PageSize > 0 {
		ret.Set("pageSize", fmt.Sprint(req.PageSize))
	}
	set("postType", req.PostType)
	for _, d := range req.Filters {
		v := fmt.Sprintf("%s:%s:%s", d.Key, d.Kind, d.DisplayMode)
		if d.Comparator != "" {
			v += ":" + string(d.Comparator)
		}
		ret.Add("dim", v)
	}
	for key, values := range req.Selections {
		for _, v := range values {
			ret.Add(SelectionParamPrefix+key, v)
		}
	}
	return ret
}
