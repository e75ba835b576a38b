package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	vwerrors "github.com/keeperops/vaultward/internal/errors"
)

// Targets is the optional allow-list file restricting which vault entries
// are evaluated. Both lists are ORed within and ANDed across.
type Targets struct {
	Collections []string `json:"collections"`
	Users       []string `json:"users"`
}

// targetsSchema validates the raw targets document. Unknown top-level keys
// are rejected so typos surface at startup instead of silently widening the
// evaluated set.
const targetsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "collections": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "users": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  }
}`

// LoadTargetsFile reads and validates a YAML targets file.
func LoadTargetsFile(path string) (*Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vwerrors.ConfigError{
			Field:      "ROTATION_TARGETS_FILE",
			Value:      path,
			Message:    fmt.Sprintf("failed to read targets file: %v", err),
			Suggestion: "Check that the file exists and is readable",
		}
	}

	var document map[string]interface{}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, vwerrors.ConfigError{
			Field:      "ROTATION_TARGETS_FILE",
			Value:      path,
			Message:    fmt.Sprintf("failed to parse targets file: %v", err),
			Suggestion: "The file must be YAML with 'collections' and 'users' string lists",
		}
	}

	if document == nil {
		return &Targets{}, nil
	}

	jsonData, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to convert targets file for validation: %w", err)
	}

	if err := validateTargets(jsonData); err != nil {
		return nil, vwerrors.ConfigError{
			Field:      "ROTATION_TARGETS_FILE",
			Value:      path,
			Message:    err.Error(),
			Suggestion: "The file must be YAML with 'collections' and 'users' string lists",
		}
	}

	var targets Targets
	if err := json.Unmarshal(jsonData, &targets); err != nil {
		return nil, fmt.Errorf("failed to decode targets file: %w", err)
	}
	return &targets, nil
}

func validateTargets(jsonData []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(targetsSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return fmt.Errorf("schema validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}
	return nil
}
