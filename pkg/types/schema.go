package types

type Term struct {
	Id    TermId `json:"id" yaml:"id"`
	Slug  string `json:"slug" yaml:"slug"`
	Label string `json:"label" yaml:"label"`
}

type Taxonomy struct {
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label" yaml:"label"`
	Terms []Term `json:"terms" yaml:"terms"`
}

func (t *Taxonomy) TermBySlug(slug string) (Term, bool) {
	for _, term := range t.Terms {
		if term.Slug == slug {
			return term, true
		}
	}
	return Term{}, false
}

type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// CustomField describes a custom attribute in the metadata store.
type CustomField struct {
	Key      string    `json:"key" yaml:"key"`
	Label    string    `json:"label" yaml:"label"`
	Type     ValueType `json:"type" yaml:"type"`
	Multiple bool      `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Choices  []Choice  `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Schema resolves dimension keys against the catalog.
type Schema interface {
	Taxonomy(name string) (*Taxonomy, bool)
	Field(key string) (*CustomField, bool)
}
