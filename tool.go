package relay

import "encoding/json"

// Tool declares a function the model may call.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string `json:"name"`
	// Description explains what the tool does (helps the model decide when to use it).
	Description string `json:"description"`
	// Parameters is a JSON Schema object defining the function parameters.
	// The bytes are sent to backends unchanged.
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// ParametersOrEmpty returns the declared schema, or an empty object schema
// when the tool takes no parameters.
func (t Tool) ParametersOrEmpty() json.RawMessage {
	if len(t.Parameters) == 0 {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return t.Parameters
}
