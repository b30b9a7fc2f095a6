package domain

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const canvasSchemaURL = "https://canvaslink.local/canvas.schema.json"

// canvasSchemaJSON describes the subset of JSON Canvas the engine relies on.
// Nodes may be an array (JSON Canvas) or an object keyed by node id.
const canvasSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "nodes": {
      "oneOf": [
        {"type": "array", "items": {"$ref": "#/$defs/identifiedNode"}},
        {"type": "object", "additionalProperties": {"$ref": "#/$defs/node"}}
      ]
    },
    "edges": {"type": "array", "items": {"$ref": "#/$defs/edge"}}
  },
  "$defs": {
    "node": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {"enum": ["text", "file", "link", "group"]},
        "x": {"type": "number"},
        "y": {"type": "number"},
        "width": {"type": "number"},
        "height": {"type": "number"},
        "text": {"type": "string"},
        "file": {"type": "string"},
        "url": {"type": "string"}
      }
    },
    "identifiedNode": {
      "allOf": [{"$ref": "#/$defs/node"}],
      "required": ["id"]
    },
    "edge": {
      "type": "object",
      "required": ["fromNode", "toNode"],
      "properties": {
        "id": {"type": "string"},
        "fromNode": {"type": "string"},
        "toNode": {"type": "string"}
      }
    }
  }
}`

var compileCanvasSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(canvasSchemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(canvasSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(canvasSchemaURL)
})

// ValidateCanvas checks content against the canvas schema. Failures wrap
// ErrMalformedCanvas.
func ValidateCanvas(data []byte) error {
	schema, err := compileCanvasSchema()
	if err != nil {
		return fmt.Errorf("compile canvas schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCanvas, err)
	}

	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCanvas, err)
	}
	return nil
}
