package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "embed"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/akshaymalik1995/llm-agent/models"
)

//go:embed plan_schema.json
var planSchemaJSON string

var (
	compileOnce sync.Once
	planSchema  *jsonschema.Schema
	compileErr  error
)

// PlanSchema returns the compiled JSON Schema for plan documents.
func PlanSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("plan_schema.json", strings.NewReader(planSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("plan_schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile plan schema: %w", err)
			return
		}
		planSchema = schema
	})
	return planSchema, compileErr
}

// ParsePlan validates the raw document against the plan schema and decodes
// it into a typed Plan. Semantic invariants are checked separately by
// Validate.
func ParsePlan(data []byte) (*Plan, error) {
	schema, err := PlanSchema()
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, models.WrapError(models.KindMalformedJSON, err, "plan is not valid JSON")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, models.WrapError(models.KindSchemaViolation, err, "plan does not match schema")
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, models.WrapError(models.KindSchemaViolation, err, "plan does not decode")
	}
	return &plan, nil
}
