package lookml

import (
	"bytes"
	"strconv"
	"strings"
)

const indentSize = 2

// printer writes LookML blocks with indentation. Parameters with empty
// values are skipped, so callers pass every attribute unconditionally.
type printer struct {
	output *bytes.Buffer
	depth  int
	// pendingBlank separates sibling blocks with one blank line.
	pendingBlank bool
}

func newPrinter() *printer {
	return &printer{output: &bytes.Buffer{}}
}

// String returns the formatted output.
func (p *printer) String() string {
	return strings.TrimRight(p.output.String(), "\n") + "\n"
}

func (p *printer) line(s string) {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.output.WriteString(s)
	p.output.WriteByte('\n')
}

// open starts a block such as `view: orders {`.
func (p *printer) open(kind, name string) {
	if p.pendingBlank {
		p.output.WriteByte('\n')
		p.pendingBlank = false
	}
	p.line(kind + ": " + name + " {")
	p.depth++
}

func (p *printer) close() {
	if p.depth > 0 {
		p.depth--
	}
	p.line("}")
	p.pendingBlank = true
}

// bare writes an unquoted value: types, names, yes/no.
func (p *printer) bare(key, value string) {
	if value == "" {
		return
	}
	p.pendingBlank = false
	p.line(key + ": " + value)
}

// quoted writes a string value in double quotes.
func (p *printer) quoted(key, value string) {
	if value == "" {
		return
	}
	p.pendingBlank = false
	p.line(key + ": " + quote(value))
}

// sql writes a value terminated by the LookML ;; marker.
func (p *printer) sql(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	p.pendingBlank = false
	p.line(key + ": " + value + " ;;")
}

func (p *printer) yesno(key string, value *bool) {
	if value == nil {
		return
	}
	if *value {
		p.bare(key, "yes")
	} else {
		p.bare(key, "no")
	}
}

func (p *printer) integer(key string, value *int) {
	if value == nil {
		return
	}
	p.bare(key, strconv.Itoa(*value))
}

// quotedList writes ["a", "b"].
func (p *printer) quotedList(key string, values []string) {
	if len(values) == 0 {
		return
	}
	quotedValues := make([]string, len(values))
	for i, v := range values {
		quotedValues[i] = quote(v)
	}
	p.bare(key, "["+strings.Join(quotedValues, ", ")+"]")
}

// bareList writes [a, b].
func (p *printer) bareList(key string, values []string) {
	if len(values) == 0 {
		return
	}
	p.bare(key, "["+strings.Join(values, ", ")+"]")
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}
