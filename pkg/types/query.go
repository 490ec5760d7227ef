package types

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

type ConstraintKind uint8

const (
	ConstraintPostType ConstraintKind = iota + 1
	ConstraintStatus
	ConstraintIncludeIds
	ConstraintExcludeIds
	ConstraintTermsIn
	ConstraintTermsNotIn
	ConstraintAttribute
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintPostType:
		return "type"
	case ConstraintStatus:
		return "status"
	case ConstraintIncludeIds:
		return "in"
	case ConstraintExcludeIds:
		return "notin"
	case ConstraintTermsIn:
		return "terms"
	case ConstraintTermsNotIn:
		return "!terms"
	case ConstraintAttribute:
		return "attr"
	}
	return "unknown"
}

// Constraint is one node of a QuerySpec. Terms constraints match by term id
// when Ids is set and by slug otherwise.
type Constraint struct {
	Kind      ConstraintKind
	Field     string
	Op        CompareOp
	ValueType ValueType
	Values    []string
	Ids       []uint32
	Numbers   []float64
}

func (c *Constraint) String() string {
	sb := strings.Builder{}
	sb.WriteString(c.Kind.String())
	sb.WriteByte('(')
	sb.WriteString(c.Field)
	if c.Op != "" {
		sb.WriteByte(' ')
		sb.WriteString(string(c.Op))
	}
	if c.ValueType != ValueNone {
		sb.WriteByte(' ')
		sb.WriteString(string(c.ValueType))
	}
	for _, v := range c.Values {
		sb.WriteString(" s:")
		sb.WriteString(strconv.Quote(v))
	}
	for _, id := range c.Ids {
		sb.WriteString(" i:")
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	for _, n := range c.Numbers {
		sb.WriteString(" n:")
		sb.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
	}
	sb.WriteByte(')')
	return sb.String()
}

// QuerySpec is a ready to execute query. Base constraints are always joined
// conjunctively, Selection constraints are joined by Mode and the two groups
// are then intersected.
type QuerySpec struct {
	Base      []Constraint
	Selection []Constraint
	Mode      CombinationMode
	SortKey   SortKey
	SortDir   SortDir
	Page      int
	// PageSize <= 0 means unbounded.
	PageSize int
	IdsOnly  bool
	// Rejected lists dimensions whose selection could not be turned into a
	// constraint, like a non numeric value for a number field.
	Rejected []string
}

func (q *QuerySpec) String() string {
	sb := strings.Builder{}
	for i := range q.Base {
		sb.WriteString(q.Base[i].String())
		sb.WriteByte('&')
	}
	sb.WriteString(string(q.Mode))
	sb.WriteByte('[')
	for i := range q.Selection {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(q.Selection[i].String())
	}
	sb.WriteString("] sort:")
	sb.WriteString(string(q.SortKey))
	sb.WriteByte(' ')
	sb.WriteString(string(q.SortDir))
	sb.WriteString(" page:")
	sb.WriteString(strconv.Itoa(q.Page))
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(q.PageSize))
	if q.IdsOnly {
		sb.WriteString(" ids")
	}
	return sb.String()
}

// Fingerprint hashes the canonical form, equal specs give equal fingerprints.
func (q *QuerySpec) Fingerprint() uint64 {
	return xxhash.Sum64String(q.String())
}

// HasSelection reports whether any selection driven constraint exists.
func (q *QuerySpec) HasSelection() bool {
	return len(q.Selection) > 0
}

// ResultPage is the answer to an executed QuerySpec.
type ResultPage struct {
	Items      []*Item
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		if total > 0 {
			return 1
		}
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
