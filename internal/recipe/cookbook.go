// Package recipe loads cookbooks and lexicons and decides which recipes
// apply to a canonical field.
package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/leaplook/internal/attrs"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Recipe pairs a filter with the attributes it contributes.
type Recipe struct {
	Name      string           `yaml:"name" validate:"required"`
	Filters   *Filter          `yaml:"filters" validate:"required"`
	Dimension *attrs.Dimension `yaml:"dimension"`
}

// Cookbook is the ordered list of recipes for a run.
type Cookbook struct {
	Recipes []Recipe `yaml:"recipes" validate:"dive"`
}

// Lexicon maps a field name to its override attributes.
type Lexicon map[string]attrs.Dimension

var validate = validator.New()

// LoadCookbook reads and validates a cookbook file.
func LoadCookbook(path string) (*Cookbook, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, core.NewConfigError(path, err)
	}
	return ParseCookbook(data, path)
}

// ParseCookbook decodes and validates cookbook YAML. Every failure is a
// *core.ConfigError.
func ParseCookbook(data []byte, source string) (*Cookbook, error) {
	var cb Cookbook
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cb); err != nil && !errors.Is(err, io.EOF) {
		return nil, core.NewConfigError(source, err)
	}
	if err := cb.Compile(); err != nil {
		return nil, core.NewConfigError(source, err)
	}
	return &cb, nil
}

// Compile validates every recipe and compiles its filter.
func (c *Cookbook) Compile() error {
	if len(c.Recipes) == 0 {
		return core.ErrEmptyCookbook
	}
	if err := validate.Struct(c); err != nil {
		return err
	}

	names := lo.Map(c.Recipes, func(r Recipe, _ int) string { return r.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("duplicate recipe names: %v", dups)
	}

	for i := range c.Recipes {
		r := &c.Recipes[i]
		if err := r.Filters.Compile(); err != nil {
			return fmt.Errorf("recipe %q: %w", r.Name, err)
		}
		if r.Dimension != nil {
			if err := checkPayload(r.Dimension); err != nil {
				return fmt.Errorf("recipe %q: %w", r.Name, err)
			}
		}
	}
	return nil
}

// Names returns the recipe names in cookbook order.
func (c *Cookbook) Names() []string {
	return lo.Map(c.Recipes, func(r Recipe, _ int) string { return r.Name })
}

// checkPayload rejects structurally invalid payloads at load time.
func checkPayload(d *attrs.Dimension) error {
	if d.Type != nil && !core.LookerType(*d.Type).Valid() {
		return fmt.Errorf("unknown dimension type %q", *d.Type)
	}
	for _, m := range d.Measures {
		if m.Type == nil {
			return errors.New("measure without type")
		}
		if !core.MeasureType(*m.Type).Valid() {
			return fmt.Errorf("unknown measure type %q", *m.Type)
		}
	}
	for i := range d.Variants {
		v := &d.Variants[i]
		if attrs.Value(v.Suffix) == "" {
			return errors.New("variant without suffix")
		}
		if err := checkPayload(v); err != nil {
			return fmt.Errorf("variant %q: %w", *v.Suffix, err)
		}
	}
	return nil
}

// LoadLexicon reads a lexicon file. An empty path yields a nil lexicon.
func LoadLexicon(path string) (Lexicon, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, core.NewConfigError(path, err)
	}
	return ParseLexicon(data, path)
}

// ParseLexicon decodes lexicon YAML.
func ParseLexicon(data []byte, source string) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, core.NewConfigError(source, err)
	}
	for name, entry := range lex {
		if err := checkPayload(&entry); err != nil {
			return nil, core.NewConfigError(source, fmt.Errorf("lexicon entry %q: %w", name, err))
		}
	}
	return lex, nil
}
