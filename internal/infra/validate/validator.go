package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"tooldeck/internal/domain"
)

type compiledSchema struct {
	resolved *jsonschema.Resolved
	defaults map[string]any
}

// Registry maps each tool to its compiled input schema. Compile runs once
// per tool during startup registration; Validate runs per dispatch and is
// side-effect-free.
type Registry struct {
	mu      sync.RWMutex
	schemas map[domain.ToolName]compiledSchema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[domain.ToolName]compiledSchema)}
}

// Compile resolves the JSON-Schema document for name and pre-extracts the
// top-level property defaults. The document must describe an object.
func (r *Registry) Compile(name domain.ToolName, schema map[string]any) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return domain.E(domain.CodeInternal, "validate.Compile", fmt.Sprintf("tool %s: encode schema", name), err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.E(domain.CodeInternal, "validate.Compile", fmt.Sprintf("tool %s: decode schema", name), err)
	}
	if typ, _ := doc["type"].(string); !strings.EqualFold(typ, "object") {
		return domain.E(domain.CodeInternal, "validate.Compile", fmt.Sprintf("tool %s: input schema must describe an object", name), nil)
	}

	var parsed jsonschema.Schema
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.E(domain.CodeInternal, "validate.Compile", fmt.Sprintf("tool %s: parse schema", name), err)
	}
	resolved, err := parsed.Resolve(nil)
	if err != nil {
		return domain.E(domain.CodeInternal, "validate.Compile", fmt.Sprintf("tool %s: resolve schema", name), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = compiledSchema{
		resolved: resolved,
		defaults: extractDefaults(doc),
	}
	return nil
}

// Validate decodes raw against the schema registered for name, fills
// declared defaults for omitted fields, and returns the validated bag.
// Unknown tools yield NotFound; every schema violation yields InvalidParams
// with the validator's field-level message.
func (r *Registry) Validate(name domain.ToolName, raw json.RawMessage) (domain.Args, error) {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.E(domain.CodeNotFound, "validate.Validate", fmt.Sprintf("unknown tool: %s", name), nil)
	}

	args := map[string]any{}
	if len(raw) > 0 {
		decoded := any(nil)
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, domain.E(domain.CodeInvalidParams, "validate.Validate", "arguments are not valid JSON", err)
		}
		switch v := decoded.(type) {
		case nil:
		case map[string]any:
			args = v
		default:
			return nil, domain.E(domain.CodeInvalidParams, "validate.Validate", "arguments must be a JSON object", nil)
		}
	}

	for field, value := range schema.defaults {
		if _, present := args[field]; !present {
			args[field] = value
		}
	}

	if err := schema.resolved.Validate(args); err != nil {
		return nil, domain.E(domain.CodeInvalidParams, "validate.Validate", err.Error(), err)
	}
	return domain.Args(args), nil
}

// extractDefaults pulls "default" values off the top-level properties of an
// object schema document. Values come from a JSON round trip, so their types
// match what decoding the arguments produces.
func extractDefaults(doc map[string]any) map[string]any {
	properties, ok := doc["properties"].(map[string]any)
	if !ok {
		return nil
	}
	defaults := make(map[string]any)
	for field, rawProp := range properties {
		prop, ok := rawProp.(map[string]any)
		if !ok {
			continue
		}
		if value, ok := prop["default"]; ok {
			defaults[field] = value
		}
	}
	if len(defaults) == 0 {
		return nil
	}
	return defaults
}
