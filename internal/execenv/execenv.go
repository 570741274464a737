package execenv

import (
	"github.com/akshaymalik1995/llm-agent/models"
)

// Environment is the per-execution name -> value store. Bindings are
// write-once; it is owned by a single interpreter goroutine and never
// shared across executions.
type Environment struct {
	names  []string
	values map[string]string
}

// New creates an empty environment.
func New() *Environment {
	return &Environment{values: make(map[string]string)}
}

// Seed installs a system-provided variable before execution starts,
// replacing any previous value with the same name.
func (e *Environment) Seed(name, value string) {
	if _, ok := e.values[name]; !ok {
		e.names = append(e.names, name)
	}
	e.values[name] = value
}

// Bind adds a step output. Rebinding a name fails with duplicate_binding;
// the environment is write-once for the lifetime of an execution.
func (e *Environment) Bind(name, value string) error {
	if _, ok := e.values[name]; ok {
		return models.NewError(models.KindDuplicateBinding, "variable %q is already bound", name)
	}
	e.names = append(e.names, name)
	e.values[name] = value
	return nil
}

// Lookup returns the value bound to name.
func (e *Environment) Lookup(name string) (string, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Snapshot returns the bindings in insertion order.
func (e *Environment) Snapshot() []Binding {
	out := make([]Binding, 0, len(e.names))
	for _, name := range e.names {
		out = append(out, Binding{Name: name, Value: e.values[name]})
	}
	return out
}

// Binding is one name/value pair in a snapshot.
type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Render resolves {name} placeholders in template against the environment.
// Doubled braces escape to literal single braces. An unmatched reference
// substitutes the empty string and is reported in missing. Substituted
// values are inserted verbatim; there is no recursive expansion.
func (e *Environment) Render(template string) (text string, used []string, missing []string) {
	var out []byte
	for i := 0; i < len(template); {
		ch := template[i]
		switch ch {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				out = append(out, '{')
				i += 2
				continue
			}
			name, end := scanIdentifier(template, i+1)
			if end < len(template) && template[end] == '}' && name != "" {
				if v, ok := e.values[name]; ok {
					out = append(out, v...)
					used = append(used, name)
				} else {
					missing = append(missing, name)
				}
				i = end + 1
				continue
			}
			out = append(out, '{')
			i++
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				out = append(out, '}')
				i += 2
				continue
			}
			out = append(out, '}')
			i++
		default:
			out = append(out, ch)
			i++
		}
	}
	return string(out), used, missing
}

// scanIdentifier reads an identifier ([A-Za-z_][A-Za-z0-9_]*) starting at
// pos, returning it and the index one past its end.
func scanIdentifier(s string, pos int) (string, int) {
	start := pos
	for pos < len(s) {
		ch := s[pos]
		isAlpha := ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
		isDigit := ch >= '0' && ch <= '9'
		if pos == start {
			if !isAlpha {
				break
			}
		} else if !isAlpha && !isDigit {
			break
		}
		pos++
	}
	return s[start:pos], pos
}
