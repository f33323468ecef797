package catalog

import "github.com/invopop/jsonschema"

// Schema describes the catalog document. Unknown keys are rejected by Parse,
// so the schema forbids additional properties too.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(new(File))
	schema.Title = "Cluster Clash Card Catalog"
	schema.Description = "Validates the card table loaded by the session engine"
	return schema
}
