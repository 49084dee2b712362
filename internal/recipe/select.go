package recipe

import (
	"github.com/leapstack-labs/leaplook/internal/attrs"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/samber/lo"
)

// Selection restricts which recipes may apply.
type Selection struct {
	Apply   []string
	Exclude []string
}

// Allows reports whether a recipe name passes the allow and deny lists.
func (s Selection) Allows(name string) bool {
	if len(s.Apply) > 0 && !lo.Contains(s.Apply, name) {
		return false
	}
	return !lo.Contains(s.Exclude, name)
}

// Match returns the payloads of every recipe that applies to field, in
// cookbook order, followed by the lexicon entry for the field's name unless
// an explicit allow-list is set. Recipes without a payload match but add
// nothing.
//
// Every filter sees the field as normalized; tags contributed by a matching
// recipe never change which other recipes match.
func (c *Cookbook) Match(field *core.Field, sel Selection, lex Lexicon) (names []string, payloads []attrs.Dimension) {
	for i := range c.Recipes {
		r := &c.Recipes[i]
		if !sel.Allows(r.Name) || !r.Filters.Matches(field) {
			continue
		}
		names = append(names, r.Name)
		if r.Dimension != nil {
			payloads = append(payloads, *r.Dimension)
		}
	}

	if lex != nil && len(sel.Apply) == 0 {
		if entry, ok := lex[field.Name]; ok {
			payloads = append(payloads, entry)
		}
	}
	return names, payloads
}
