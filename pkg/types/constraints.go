package types

import "strings"

const (
	DefaultPostType = "product"
	DefaultStatus   = "publish"
	DefaultPageSize = 9
	MaxPageSize     = 100

	TaxonomyCategory        = "category"
	TaxonomyProductCategory = "product_cat"
	TaxonomyProductTag      = "product_tag"
)

type CombinationMode string

const (
	ModeAnd CombinationMode = "AND"
	ModeOr  CombinationMode = "OR"
)

// ParseCombinationMode defaults to AND for anything it does not recognise.
func ParseCombinationMode(s string) CombinationMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeOr)) {
		return ModeOr
	}
	return ModeAnd
}

type SortKey string

const (
	SortDate      SortKey = "date"
	SortModified  SortKey = "modified"
	SortTitle     SortKey = "title"
	SortId        SortKey = "id"
	SortMenuOrder SortKey = "menu_order"
	SortPrice     SortKey = "price"
)

// PriceAttribute is the custom field the price sort reads.
const PriceAttribute = "price"

type SortDir string

const (
	SortAsc  SortDir = "ASC"
	SortDesc SortDir = "DESC"
)

// ParseSort resolves key and direction, falling back to most recent first.
func ParseSort(key, dir string) (SortKey, SortDir) {
	sk := SortKey(strings.ToLower(strings.TrimSpace(key)))
	switch sk {
	case SortDate, SortModified, SortTitle, SortId, SortMenuOrder, SortPrice:
	default:
		return SortDate, SortDesc
	}
	if strings.EqualFold(strings.TrimSpace(dir), string(SortAsc)) {
		return sk, SortAsc
	}
	return sk, SortDesc
}

type CompareOp string

const (
	OpEqual        CompareOp = "="
	OpNotEqual     CompareOp = "!="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpLike         CompareOp = "LIKE"
	OpNotLike      CompareOp = "NOT LIKE"
	OpIn           CompareOp = "IN"
	OpNotIn        CompareOp = "NOT IN"
	OpBetween      CompareOp = "BETWEEN"
	OpNotBetween   CompareOp = "NOT BETWEEN"
	OpExists       CompareOp = "EXISTS"
	OpNotExists    CompareOp = "NOT EXISTS"
)

func ParseCompareOp(s string) (CompareOp, bool) {
	op := CompareOp(strings.ToUpper(strings.Join(strings.Fields(s), " ")))
	if op == "" {
		return OpEqual, true
	}
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
		OpLike, OpNotLike, OpIn, OpNotIn, OpBetween, OpNotBetween, OpExists, OpNotExists:
		return op, true
	}
	return "", false
}

// TakesValue is false for the existence checks.
func (op CompareOp) TakesValue() bool {
	return op != OpExists && op != OpNotExists
}

// AttributeFilter is a selection independent filter on a custom attribute.
type AttributeFilter struct {
	Key     string `json:"key" yaml:"key" schema:"key"`
	Value   string `json:"value" yaml:"value" schema:"value"`
	Compare string `json:"compare" yaml:"compare" schema:"compare"`
}

// BaseConstraints are always applied and never lifted by facet counting.
type BaseConstraints struct {
	PostType         string            `json:"postType" yaml:"postType" schema:"postType"`
	IncludeIds       []ItemId          `json:"includeIds" yaml:"includeIds" schema:"includeIds"`
	ExcludeIds       []ItemId          `json:"excludeIds" yaml:"excludeIds" schema:"excludeIds"`
	TermsInclude     []TermId          `json:"termsInclude" yaml:"termsInclude" schema:"termsInclude"`
	TermsExclude     []TermId          `json:"termsExclude" yaml:"termsExclude" schema:"termsExclude"`
	FixedCategoryIds []TermId          `json:"fixedCategoryIds" yaml:"fixedCategoryIds" schema:"fixedCategoryIds"`
	FixedTagIds      []TermId          `json:"fixedTagIds" yaml:"fixedTagIds" schema:"fixedTagIds"`
	Status           []string          `json:"status" yaml:"status" schema:"status"`
	SortKey          string            `json:"sortKey" yaml:"sortKey" schema:"sortKey"`
	SortDir          string            `json:"sortDir" yaml:"sortDir" schema:"sortDir"`
	PageSize         int               `json:"pageSize" yaml:"pageSize" schema:"pageSize"`
	AttributeFilters []AttributeFilter `json:"customAttributeBaseFilters" yaml:"attributeFilters" schema:"-"`
}

func clamp[T int | float64](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Sanitize fills the documented defaults.
func (b *BaseConstraints) Sanitize() {
	b.PostType = strings.TrimSpace(b.PostType)
	if b.PostType == "" {
		b.PostType = DefaultPostType
	}
	status := make([]string, 0, len(b.Status))
	for _, s := range b.Status {
		if s = strings.TrimSpace(s); s != "" {
			status = append(status, s)
		}
	}
	b.Status = status
	if len(b.Status) == 0 {
		b.Status = []string{DefaultStatus}
	}
	if b.PageSize <= 0 {
		b.PageSize = DefaultPageSize
	}
	b.PageSize = clamp(b.PageSize, 1, MaxPageSize)
	key, dir := ParseSort(b.SortKey, b.SortDir)
	b.SortKey = string(key)
	b.SortDir = string(dir)
}
