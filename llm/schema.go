package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// DocumentSchema returns the indented JSON Schema of v's type, as used to
// describe the persisted documents.
func DocumentSchema(v any) ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(v)
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
