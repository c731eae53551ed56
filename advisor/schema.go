package advisor

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ResponseSchema asks backends that support it to constrain output to a JSON
// schema. Backends without schema support ignore it.
type ResponseSchema struct {
	Name   string
	Schema map[string]interface{}
}

// adviceEnvelope is the strict-mode wrapper around an advice list; strict
// schemas must have an object at the top level. The single-key unwrap in
// decodeAdviceList strips it again.
type adviceEnvelope struct {
	Advice []adviceWire `json:"advice" jsonschema:"required,description=Advice items in order of importance"`
}

type adviceWire struct {
	Extract string `json:"extract" jsonschema:"required,description=Verbatim excerpt of the paragraph the advice refers to"`
	Advice  string `json:"advice" jsonschema:"required,description=Question or critique for the writer"`
}

var adviceSchema = &ResponseSchema{Name: "paragraph_advice", Schema: SchemaFor[adviceEnvelope]()}

// SchemaFor reflects T into an OpenAI strict-mode compatible JSON schema.
func SchemaFor[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	ensureStrict(m)
	return m
}

// ensureStrict marks every object closed and every property required, as the
// strict structured-output mode demands.
func ensureStrict(schema map[string]interface{}) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]interface{}); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]interface{}); ok {
				ensureStrict(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		ensureStrict(items)
	}
}
