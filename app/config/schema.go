package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects the json schema of the profile file. Field names follow the yaml tags,
// durations are described as strings the way yaml accepts them.
func GenerateSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{Type: "string", Pattern: `^(\d+(\.\d+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "duration like 500ms, 30s or 1m"}
			}
			return nil
		},
	}
	schema := r.Reflect(&Profile{})
	schema.Title = "fleetcheck profile"
	schema.Description = "Run profile of the fleet ui suite"
	return schema
}

// SchemaJSON returns the indented schema document
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
