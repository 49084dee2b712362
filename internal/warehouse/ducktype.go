package warehouse

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplook/pkg/core"
)

// ParseDuckDBType turns a column's DuckDB type spelling into a raw field.
// STRUCT(...) becomes a STRUCT with children and a trailing [] or [N]
// marks the column REPEATED. Lists of lists collapse into one repeated
// level. Every other type is kept verbatim for the type mapper.
func ParseDuckDBType(name, dataType string) (core.RawField, error) {
	t := strings.TrimSpace(dataType)
	if t == "" {
		return core.RawField{}, fmt.Errorf("empty type")
	}

	if strings.HasSuffix(t, "]") {
		open := matchingOpen(t, len(t)-1, '[', ']')
		if open <= 0 {
			return core.RawField{}, fmt.Errorf("unbalanced brackets in %q", dataType)
		}
		elem, err := ParseDuckDBType(name, t[:open])
		if err != nil {
			return core.RawField{}, err
		}
		elem.Mode = core.ModeRepeated
		return elem, nil
	}

	upper := strings.ToUpper(t)
	if strings.HasPrefix(upper, "STRUCT(") && strings.HasSuffix(t, ")") {
		members, err := splitTopLevel(t[len("STRUCT(") : len(t)-1])
		if err != nil {
			return core.RawField{}, fmt.Errorf("%w in %q", err, dataType)
		}
		field := core.RawField{Name: name, Type: core.SourceTypeStruct}
		for _, m := range members {
			childName, childType, err := splitMember(m)
			if err != nil {
				return core.RawField{}, err
			}
			child, err := ParseDuckDBType(childName, childType)
			if err != nil {
				return core.RawField{}, err
			}
			field.Fields = append(field.Fields, child)
		}
		if len(field.Fields) == 0 {
			return core.RawField{}, fmt.Errorf("struct %q has no members", name)
		}
		return field, nil
	}

	return core.RawField{Name: name, Type: t}, nil
}

// matchingOpen returns the index of the open delimiter matching the close
// delimiter at end, or -1.
func matchingOpen(s string, end int, open, close byte) int {
	depth := 0
	for i := end; i >= 0; i-- {
		switch s[i] {
		case close:
			depth++
		case open:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits on commas outside parentheses, brackets and quotes.
func splitTopLevel(s string) ([]string, error) {
	var (
		parts  []string
		depth  int
		quoted bool
		start  int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses")
			}
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if depth != 0 || quoted {
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts, nil
}

// splitMember splits a struct member into its name and type. Quoted names
// may contain spaces and doubled quotes.
func splitMember(m string) (name, typ string, err error) {
	if strings.HasPrefix(m, `"`) {
		var b strings.Builder
		for i := 1; i < len(m); i++ {
			if m[i] != '"' {
				b.WriteByte(m[i])
				continue
			}
			if i+1 < len(m) && m[i+1] == '"' {
				b.WriteByte('"')
				i++
				continue
			}
			return b.String(), strings.TrimSpace(m[i+1:]), nil
		}
		return "", "", fmt.Errorf("unterminated member name in %q", m)
	}

	i := strings.IndexAny(m, " \t")
	if i <= 0 {
		return "", "", fmt.Errorf("struct member %q has no type", m)
	}
	return m[:i], strings.TrimSpace(m[i+1:]), nil
}
