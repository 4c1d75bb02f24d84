package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema is the JSON Schema for incoming workflow documents.
// Structural graph checks (dangling edges, start node) happen later at
// graph construction; this catches malformed documents at the boundary.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "name": {"type": "string"},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "data"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "data": {
            "type": "object",
            "required": ["type"],
            "properties": {
              "type": {"type": "string"},
              "label": {"type": "string"},
              "action": {"type": "string"},
              "description": {"type": "string"},
              "engine": {"type": "string", "enum": ["", "jq", "expr"]},
              "expression": {"type": "string"},
              "model": {"type": "string"},
              "temperature": {"type": "number"},
              "maxTokens": {"type": "integer"},
              "messages": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["role", "content"],
                  "properties": {
                    "role": {"type": "string"},
                    "content": {"type": "string"}
                  }
                }
              },
              "ip": {"type": "string"},
              "port": {"type": "integer"}
            }
          }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {"type": "string", "minLength": 1},
          "target": {"type": "string", "minLength": 1},
          "sourceHandle": {"type": ["string", "null"]}
        }
      }
    },
    "context": {
      "type": "object",
      "properties": {
        "vars": {"type": "object"},
        "secrets": {"type": "object"}
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(documentSchema)))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal document schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("workflow-document.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add document schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("workflow-document.schema.json")
	})
	return compiledSchema, compileErr
}

// ValidateDocumentJSON checks raw JSON against the workflow document schema.
// Returns a VALIDATION_ERROR FlowError describing the first problem found.
func ValidateDocumentJSON(raw []byte) error {
	sch, err := compiledDocumentSchema()
	if err != nil {
		return NewErrorf(ErrCodeValidation, "document schema unavailable: %s", err.Error()).WithCause(err)
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return NewErrorf(ErrCodeValidation, "invalid JSON: %s", err.Error()).WithCause(err)
	}

	if err := sch.Validate(value); err != nil {
		return NewErrorf(ErrCodeValidation, "workflow document invalid: %s", err.Error()).WithCause(err)
	}
	return nil
}
