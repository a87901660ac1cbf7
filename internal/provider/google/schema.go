package google

import (
	"encoding/json"

	"google.golang.org/genai"
)

// jsonSchema is the part of JSON Schema Gemini understands.
type jsonSchema struct {
	// Type is a name, or a list of names such as ["string", "null"].
	Type        any                    `json:"type"`
	Description string                 `json:"description"`
	Enum        []any                  `json:"enum"`
	Properties  map[string]*jsonSchema `json:"properties"`
	Required    []string               `json:"required"`
	Items       *jsonSchema            `json:"items"`
}

var geminiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

// geminiSchema translates a JSON schema. Keywords Gemini lacks are
// dropped; an undecodable schema yields nil, meaning no parameters.
func geminiSchema(raw json.RawMessage) *genai.Schema {
	if len(raw) == 0 {
		return nil
	}
	var s jsonSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return s.gemini()
}

func (s *jsonSchema) gemini() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        s.geminiType(),
		Description: s.Description,
		Required:    s.Required,
		Items:       s.Items.gemini(),
	}
	for _, v := range s.Enum {
		if str, ok := v.(string); ok {
			out.Enum = append(out.Enum, str)
		}
	}
	if s.Properties != nil {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			if prop != nil {
				out.Properties[name] = prop.gemini()
			}
		}
	}
	return out
}

// geminiType picks the first known type name; with ["string", "null"]
// that is string. Nullability is not expressed, and an unknown type is
// left unset.
func (s *jsonSchema) geminiType() genai.Type {
	names := []any{s.Type}
	if list, ok := s.Type.([]any); ok {
		names = list
	}
	for _, n := range names {
		if name, ok := n.(string); ok {
			if t, ok := geminiTypes[name]; ok {
				return t
			}
		}
	}
	return ""
}
