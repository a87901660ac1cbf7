package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeSchema(t *testing.T, schema json.RawMessage) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal(schema, &result))
	return result
}

func TestSchemaFor_Types(t *testing.T) {
	type Args struct {
		Name    string         `json:"name"`
		Count   int            `json:"count"`
		Price   float64        `json:"price"`
		Active  bool           `json:"active"`
		Tags    []string       `json:"tags"`
		Limit   *int           `json:"limit,omitempty"`
		Extra   map[string]any `json:"extra"`
		NoTag   string
		private string
	}

	schema, err := SchemaFor[Args]()
	require.NoError(t, err)

	result := decodeSchema(t, schema)
	assert.Equal(t, "object", result["type"])
	assert.NotContains(t, result, "required")

	props := result["properties"].(map[string]any)
	typeOf := func(name string) any { return props[name].(map[string]any)["type"] }
	assert.Equal(t, "string", typeOf("name"))
	assert.Equal(t, "integer", typeOf("count"))
	assert.Equal(t, "number", typeOf("price"))
	assert.Equal(t, "boolean", typeOf("active"))
	assert.Equal(t, "array", typeOf("tags"))
	assert.Equal(t, "integer", typeOf("limit"))
	assert.Equal(t, "object", typeOf("extra"))
	assert.Equal(t, "string", typeOf("NoTag"))
	assert.NotContains(t, props, "private")

	items := props["tags"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, "string", items["type"])
}

func TestSchemaFor_Tags(t *testing.T) {
	type ReadArgs struct {
		Path   string `json:"path" desc:"File to read" required:"true"`
		Mode   string `json:"mode" desc:"Read mode" enum:"text, lines"`
		Offset int    `json:"offset,omitempty"`
	}

	schema, err := SchemaFor[ReadArgs]()
	require.NoError(t, err)

	result := decodeSchema(t, schema)
	props := result["properties"].(map[string]any)
	path := props["path"].(map[string]any)
	assert.Equal(t, "string", path["type"])
	assert.Equal(t, "File to read", path["description"])

	mode := props["mode"].(map[string]any)
	assert.Equal(t, []any{"text", "lines"}, mode["enum"])

	assert.Equal(t, "integer", props["offset"].(map[string]any)["type"])
	assert.Equal(t, []any{"path"}, result["required"])
}

func TestSchemaFor_NestedStruct(t *testing.T) {
	type Address struct {
		Street string `json:"street" required:"true"`
		City   string `json:"city"`
	}
	type Args struct {
		Name    string    `json:"name"`
		Address Address   `json:"address" desc:"Where to ship"`
		Stops   []Address `json:"stops"`
	}

	schema, err := SchemaFor[Args]()
	require.NoError(t, err)

	props := decodeSchema(t, schema)["properties"].(map[string]any)
	addr := props["address"].(map[string]any)
	assert.Equal(t, "object", addr["type"])
	assert.Equal(t, "Where to ship", addr["description"])
	assert.Equal(t, []any{"street"}, addr["required"])

	addrProps := addr["properties"].(map[string]any)
	assert.Equal(t, "string", addrProps["city"].(map[string]any)["type"])

	stops := props["stops"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, "object", stops["type"])
}

func TestSchemaFor_EmptyStruct(t *testing.T) {
	schema, err := SchemaFor[struct{}]()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(schema))
}

func TestSchemaFor_JSONTagOmit(t *testing.T) {
	type Args struct {
		Public  string `json:"public"`
		Private string `json:"-"`
	}

	schema, err := SchemaFor[Args]()
	require.NoError(t, err)

	props := decodeSchema(t, schema)["properties"].(map[string]any)
	assert.Contains(t, props, "public")
	assert.NotContains(t, props, "Private")
	assert.NotContains(t, props, "-")
}

func TestSchemaFor_PointerType(t *testing.T) {
	type Args struct {
		Name string `json:"name"`
	}

	schema, err := SchemaFor[*Args]()
	require.NoError(t, err)
	assert.Contains(t, string(schema), `"name"`)
}

func TestSchemaFor_RejectsNonStruct(t *testing.T) {
	_, err := SchemaFor[string]()
	assert.Error(t, err)

	assert.Panics(t, func() { MustSchemaFor[[]int]() })
}
