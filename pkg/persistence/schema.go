package persistence

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// dumpSchema is the JSON schema a raw dump document must satisfy before it
// is unmarshaled. Structural rules the schema cannot express (ordering,
// parent references, block pairing) are checked while materializing.
const dumpSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "head_ids", "nodes"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "complete": {"type": "boolean"},
    "head_ids": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    },
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "kind"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "kind": {
            "type": "string",
            "enum": ["flow_start", "flow_end", "block_start", "block_end", "step"]
          },
          "display_name": {"type": "string"},
          "parent_ids": {"type": "array", "items": {"type": "string"}},
          "start_id": {"type": "string"},
          "actions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["kind"],
              "properties": {
                "kind": {
                  "type": "string",
                  "enum": ["status", "error", "label", "stage", "workspace"]
                },
                "value": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRaw checks a raw dump document against the JSON schema.
func ValidateRaw(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(dumpSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDump, err)
	}

	if !result.Valid() {
		detail := ""
		for _, desc := range result.Errors() {
			if detail != "" {
				detail += "; "
			}

			detail += desc.String()
		}

		return &DumpError{Op: "Validate", Err: ErrInvalidDump, Message: detail}
	}

	return nil
}

// ValidateDump checks an unmarshaled dump's field constraints.
func ValidateDump(dump *ExecutionDump) error {
	if err := validate.Struct(dump); err != nil {
		return &DumpError{Op: "Validate", ExecutionID: dump.ID, Err: ErrInvalidDump, Message: err.Error()}
	}

	return nil
}
