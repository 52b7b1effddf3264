package waveform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// File is the persisted waveform record. Only the inputs to a fit are
// stored — method, key points, limits — never derived samples, so a saved
// waveform reproduces consistent results across fitting-code changes.
type File struct {
	Version int        `json:"version"`
	Method  string     `json:"method"`
	Points  []KeyPoint `json:"points"`
	Limits  Limits     `json:"limits"`
}

const fileVersion = 1

const fileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "method", "points", "limits"],
  "properties": {
    "version": {"const": 1},
    "method": {"enum": ["Lagrange", "CubicSpline"]},
    "points": {
      "type": "array",
      "minItems": 2,
      "items": {
        "type": "object",
        "required": ["time", "position"],
        "properties": {
          "time": {"type": "number", "minimum": 0},
          "position": {"type": "number"}
        }
      }
    },
    "limits": {
      "type": "object",
      "required": ["min_position", "max_position"],
      "properties": {
        "min_position": {"type": "number"},
        "max_position": {"type": "number"},
        "max_velocity": {"type": "number", "minimum": 0},
        "max_accel": {"type": "number", "minimum": 0}
      }
    }
  }
}`

var compiledFileSchema = jsonschema.MustCompileString("waveform.schema.json", fileSchema)

// Save writes the waveform record to path.
func Save(path string, f File) error {
	f.Version = fileVersion
	if _, err := ParseMethod(f.Method); err != nil {
		return err
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	return os.WriteFile(path, data, 0o644)
}

// Load reads and schema-validates a waveform record. The caller still runs
// Validate and Fit; Load only guarantees the file is well-formed.
func Load(path string) (File, error) {
	var f File

	raw, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return f, fmt.Errorf("waveform file %s: %w", path, err)
	}
	if err := compiledFileSchema.Validate(doc); err != nil {
		return f, fmt.Errorf("waveform file %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("waveform file %s: %w", path, err)
	}
	return f, nil
}
