package api

import (
	"fmt"
	"strings"
	"sync"

	"github.com/FairForge/s3connector/internal/host"
	"github.com/xeipuuv/gojsonschema"
)

// schemaCache compiles one request schema per node class on first use.
type schemaCache struct {
	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{schemas: make(map[string]*gojsonschema.Schema)}
}

func (c *schemaCache) get(def host.Definition) (*gojsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schemas[def.Class]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(requestSchema(def)))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", def.Class, err)
	}
	c.schemas[def.Class] = s
	return s, nil
}

// validateRequest checks an execute body against the schema of def.
func (c *schemaCache) validateRequest(def host.Definition, body []byte) error {
	schema, err := c.get(def)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return invalid("malformed request body: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return invalid("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// requestSchema describes the ExecuteRequest envelope for one node. Input
// names are closed to the declared sockets and tensors must carry a shape
// and data.
func requestSchema(def host.Definition) map[string]any {
	props := map[string]any{}
	var required []string
	for _, in := range def.Required {
		props[in.Name] = socketSchema(in.Type)
		if in.Type != host.TypeString {
			required = append(required, in.Name)
		}
	}
	for _, in := range def.Optional {
		props[in.Name] = socketSchema(in.Type)
	}
	for _, in := range def.Hidden {
		props[in.Name] = map[string]any{}
	}

	inputs := map[string]any{
		"type":                 []string{"object", "null"},
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		inputs["required"] = required
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"inputs": inputs,
			"context": map[string]any{
				"type": []string{"object", "null"},
				"properties": map[string]any{
					"prompt_id":     map[string]any{"type": "string"},
					"extra_data":    map[string]any{"type": []string{"object", "null"}},
					"extra_pnginfo": map[string]any{"type": []string{"object", "null"}},
				},
			},
		},
	}
}

func socketSchema(t host.IOType) map[string]any {
	switch t {
	case host.TypeString:
		return map[string]any{"type": "string"}
	case host.TypeImage:
		return tensorSchema([]string{"object"}, 3, 4)
	case host.TypeMask:
		return tensorSchema([]string{"object", "null"}, 2, 3)
	default:
		return map[string]any{}
	}
}

// tensorSchema matches {"shape": [...], "data": [...]}; element types of
// data are left to the decoder.
func tensorSchema(types []string, minDims, maxDims int) map[string]any {
	return map[string]any{
		"type":     types,
		"required": []string{"shape", "data"},
		"properties": map[string]any{
			"shape": map[string]any{
				"type":     "array",
				"minItems": minDims,
				"maxItems": maxDims,
				"items":    map[string]any{"type": "integer", "minimum": 1},
			},
			"data": map[string]any{"type": "array"},
		},
	}
}
