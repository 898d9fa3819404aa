package normalize

import (
	"strings"

	"ticket-kpi-exporter/internal/schema"
)

type keyword struct {
	key   string
	label string
}

type categorySet struct {
	exact    map[string]string
	keywords []keyword
}

// categoryIndex holds the canonical value lookups of a registry's closed
// categorical fields.
type categoryIndex map[string]*categorySet

func newCategoryIndex(reg *schema.Registry) categoryIndex {
	idx := make(categoryIndex)
	for _, f := range reg.Fields() {
		if f.Type != schema.TypeCategory || f.Values == nil {
			continue
		}
		set := &categorySet{exact: make(map[string]string)}
		for _, v := range f.Values {
			set.exact[schema.NormalizeKey(v.Label)] = v.Label
			for _, syn := range v.Synonyms {
				set.exact[schema.NormalizeKey(syn)] = v.Label
			}
		}
		for _, v := range f.Values {
			for _, kw := range v.Keywords {
				set.keywords = append(set.keywords, keyword{key: schema.NormalizeKey(kw), label: v.Label})
			}
		}
		idx[f.Name] = set
	}
	return idx
}

// lookup returns the canonical label and true, or the trimmed raw value and
// false when the field has a closed set that does not contain it. Open
// categories always report true.
func (idx categoryIndex) lookup(field, raw string) (string, bool) {
	set, ok := idx[field]
	if !ok {
		return collapse(raw), true
	}
	key := schema.NormalizeKey(raw)
	if label, ok := set.exact[key]; ok {
		return label, true
	}
	for _, kw := range set.keywords {
		if kw.key != "" && strings.Contains(key, kw.key) {
			return kw.label, true
		}
	}
	return collapse(raw), false
}
