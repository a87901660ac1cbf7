package tool

import (
	"bytes"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// validator checks invocation parameters against a tool's JSON schema.
type validator struct {
	schema *jsonschema.Schema
}

// compileSchema compiles raw. An empty schema yields a nil validator,
// which accepts anything.
func compileSchema(raw []byte) (*validator, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("parameters.json", doc); err != nil {
		return nil, err
	}
	schema, err := c.Compile("parameters.json")
	if err != nil {
		return nil, err
	}
	return &validator{schema: schema}, nil
}

// validate returns one message per problem, or nil when params conform.
func (v *validator) validate(params map[string]any) []string {
	if v == nil {
		return nil
	}

	err := v.schema.Validate(params)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	// The first line names the schema; each following line is one problem.
	lines := strings.Split(ve.Error(), "\n")
	var problems []string
	for _, line := range lines[1:] {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			problems = append(problems, line)
		}
	}
	if len(problems) == 0 {
		problems = []string{ve.Error()}
	}
	return problems
}
