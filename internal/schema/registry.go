package schema

import (
	"fmt"
	"sort"
	"strings"
)

// SemanticType tells the normalizer which coercion applies to a column.
type SemanticType int

const (
	TypeString SemanticType = iota
	TypeText
	TypeTimestamp
	TypeDate
	TypeDuration
	TypeNumber
	TypeInteger
	TypeCategory
	TypeTags
	TypeMonth
)

var typeNames = map[SemanticType]string{
	TypeString:    "string",
	TypeText:      "text",
	TypeTimestamp: "timestamp",
	TypeDate:      "date",
	TypeDuration:  "duration",
	TypeNumber:    "number",
	TypeInteger:   "integer",
	TypeCategory:  "category",
	TypeTags:      "tags",
	TypeMonth:     "month",
}

func (t SemanticType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// CategoryValue is one canonical label of a categorical field. Synonyms are
// matched exactly (after NormalizeKey); Keywords are substring fallbacks tried
// only when no exact synonym matched.
type CategoryValue struct {
	Label    string   `yaml:"label"`
	Synonyms []string `yaml:"synonyms"`
	Keywords []string `yaml:"keywords"`
}

// Field declares one canonical column.
type Field struct {
	Name     string
	Type     SemanticType
	Required bool
	Aliases  []string
	// Values is the canonical value set of a TypeCategory field. A nil set
	// means the category is open and values are never flagged as unknown.
	Values []CategoryValue
}

// Registry resolves raw headers of one record kind to canonical fields.
// It is immutable once built.
type Registry struct {
	kind    string
	fields  []Field
	byName  map[string]int
	aliases map[string]string
}

// New builds a registry. The canonical name of every field is implicitly one
// of its aliases. Two fields claiming the same alias is an error.
func New(kind string, fields []Field) (*Registry, error) {
	r := &Registry{
		kind:    kind,
		fields:  make([]Field, len(fields)),
		byName:  make(map[string]int, len(fields)),
		aliases: make(map[string]string),
	}
	copy(r.fields, fields)
	for i, f := range r.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%s schema: field %d has no name", kind, i)
		}
		if _, dup := r.byName[f.Name]; dup {
			return nil, fmt.Errorf("%s schema: field %q declared twice", kind, f.Name)
		}
		r.byName[f.Name] = i
		for _, alias := range append([]string{f.Name}, f.Aliases...) {
			key := NormalizeKey(alias)
			if key == "" {
				continue
			}
			if owner, taken := r.aliases[key]; taken && owner != f.Name {
				return nil, fmt.Errorf("%s schema: alias %q claimed by both %q and %q", kind, alias, owner, f.Name)
			}
			r.aliases[key] = f.Name
		}
	}
	return r, nil
}

// Kind returns the record kind this registry describes ("tickets", "logins").
func (r *Registry) Kind() string { return r.kind }

// Fields returns the declared fields in declaration order.
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Field looks up a canonical field by name.
func (r *Registry) Field(name string) (Field, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

func (r *Registry) RequiredFields() []string {
	var out []string
	for _, f := range r.fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

func (r *Registry) OptionalFields() []string {
	var out []string
	for _, f := range r.fields {
		if !f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// ResolveAlias maps a raw header to its canonical field name. Matching ignores
// case, surrounding and repeated whitespace, punctuation and diacritics.
func (r *Registry) ResolveAlias(raw string) (string, bool) {
	name, ok := r.aliases[NormalizeKey(raw)]
	return name, ok
}

// Override extends a field list with configured synonyms and replaces the
// canonical value set of categorical fields. Unknown field names are rejected
// so a typo in the catalog surfaces at startup.
func Override(fields []Field, aliases map[string][]string, values map[string][]CategoryValue) ([]Field, error) {
	out := make([]Field, len(fields))
	copy(out, fields)
	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.Name] = i
	}
	for _, name := range sortedKeys(aliases) {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("column synonyms for unknown field %q", name)
		}
		out[i].Aliases = append(append([]string(nil), out[i].Aliases...), aliases[name]...)
	}
	for _, name := range sortedKeys(values) {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("category values for unknown field %q", name)
		}
		if out[i].Type != TypeCategory {
			return nil, fmt.Errorf("category values for non-categorical field %q", name)
		}
		out[i].Values = values[name]
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MismatchError reports required columns that no raw header resolves to.
// It aborts the load of that file.
type MismatchError struct {
	Kind    string
	Missing []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s report: required column(s) not found: %s", e.Kind, strings.Join(e.Missing, ", "))
}
