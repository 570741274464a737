package tooling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/akshaymalik1995/llm-agent/models"
)

type entry struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry maps tool names to handlers with compiled input schemas.
// Registration order is preserved for the catalog.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]entry
	order  []string
	logger *log.Logger
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]entry),
		logger: log.New(log.Writer(), "[TOOLS] ", log.LstdFlags),
	}
}

// Register compiles the tool's input schema and adds it to the registry.
// Re-registering a name replaces the previous handler.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name must not be empty")
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(tool.InputSchema())); err != nil {
		return fmt.Errorf("add schema resource for %s: %w", name, err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile input schema for %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		r.logger.Printf("tool %q already registered, overwriting", name)
	} else {
		r.order = append(r.order, name)
	}
	r.tools[name] = entry{tool: tool, schema: schema}
	return nil
}

// Has reports whether a tool name resolves in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Catalog returns tool infos in registration order.
func (r *Registry) Catalog() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].tool
		infos = append(infos, Info{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	return infos
}

// Dispatch validates args against the tool's input schema and invokes it.
// Handler panics and errors are wrapped as tool_runtime_error; a handler
// cannot crash the caller.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]interface{}) (result string, err error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", models.NewError(models.KindUnknownTool, "tool %q is not registered", name)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	doc, err := normalizeArgs(args)
	if err != nil {
		return "", models.WrapError(models.KindInvalidArguments, err, "arguments for %s are not valid JSON", name)
	}
	if err := e.schema.Validate(doc); err != nil {
		return "", models.WrapError(models.KindInvalidArguments, err, "arguments for %s do not match input schema", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = models.NewError(models.KindToolRuntimeError, "%v", rec)
		}
	}()
	out, err := e.tool.Execute(ctx, args)
	if err != nil {
		return "", models.WrapError(models.KindToolRuntimeError, err, "tool %s failed", name)
	}
	return out, nil
}

// normalizeArgs round-trips args through JSON so schema validation sees
// canonical types (float64 numbers, no Go ints).
func normalizeArgs(args map[string]interface{}) (interface{}, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
