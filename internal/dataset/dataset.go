// internal/dataset/dataset.go
// Package dataset loads the golden dataset of patient cases that drives an
// evaluation run. Dataset problems are fatal: a run cannot proceed without a
// readable cases collection.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Case is one benchmark item: a patient presentation plus the expert ground
// truth it is scored against. Cases are immutable once loaded.
type Case struct {
	CaseID                string            `json:"case_id"`
	PatientPresentation   string            `json:"patient_presentation"`
	RelevantHistory       string            `json:"relevant_history"`
	LabResults            map[string]string `json:"lab_results,omitempty"`
	ExpertDiagnosis       string            `json:"expert_diagnosis"`
	ExpertReasoning       string            `json:"expert_reasoning"`
	DifferentialDiagnoses []string          `json:"differential_diagnoses,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
}

// Error describes a fatal problem with the golden dataset. Dataset errors
// abort the run; they are never converted into per-case failures.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("dataset %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads the golden dataset at path. The file must be a JSON object with
// a top-level "cases" array; anything else is a fatal *Error. An empty cases
// array is allowed and produces a run with zero cases.
func Load(path string) ([]Case, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Path: path, Reason: "golden dataset not found", Err: err}
		}
		return nil, &Error{Path: path, Reason: "could not read golden dataset", Err: err}
	}
	return Parse(path, raw)
}

// Parse decodes golden dataset JSON. Split from Load so callers holding raw
// bytes (tests, future remote datasets) share the same checks.
func Parse(path string, raw []byte) ([]Case, error) {
	var doc struct {
		Cases *[]Case `json:"cases"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Path: path, Reason: "invalid dataset JSON", Err: err}
	}
	if doc.Cases == nil {
		return nil, &Error{Path: path, Reason: "invalid dataset format: missing 'cases' key"}
	}
	return *doc.Cases, nil
}

// Subset returns the first n cases in dataset order. Non-positive n or n
// beyond the available count leaves the slice untouched.
func Subset(cases []Case, n int) []Case {
	if n <= 0 || n >= len(cases) {
		return cases
	}
	return cases[:n]
}

// schemaJSON is the strict golden dataset schema applied by ValidateStrict.
// Runtime loading is deliberately more lenient: a case missing a field fails
// during processing, for that case only.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["cases"],
  "properties": {
    "cases": {
      "type": "array",
      "items": {
        "type": "object",
        "required": [
          "case_id",
          "patient_presentation",
          "relevant_history",
          "expert_diagnosis",
          "expert_reasoning",
          "differential_diagnoses"
        ],
        "properties": {
          "case_id": {"type": "string", "minLength": 1},
          "patient_presentation": {"type": "string", "minLength": 1},
          "relevant_history": {"type": "string"},
          "lab_results": {"type": "object", "additionalProperties": {"type": "string"}},
          "expert_diagnosis": {"type": "string", "minLength": 1},
          "expert_reasoning": {"type": "string"},
          "differential_diagnoses": {"type": "array", "items": {"type": "string"}},
          "metadata": {"type": "object", "additionalProperties": {"type": "string"}}
        }
      }
    }
  }
}`

// ValidateStrict checks the dataset at path against the full schema,
// including per-case required fields. Used by the dataset lint command as a
// preflight before burning tokens on a run.
func ValidateStrict(path string) ([]Case, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Path: path, Reason: "golden dataset not found", Err: err}
		}
		return nil, &Error{Path: path, Reason: "could not read golden dataset", Err: err}
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &Error{Path: path, Reason: "schema validation error", Err: err}
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, &Error{Path: path, Reason: fmt.Sprintf("dataset failed validation: %s", strings.Join(details, "; "))}
	}

	cases, err := Parse(path, raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cases))
	for _, c := range cases {
		if seen[c.CaseID] {
			return nil, &Error{Path: path, Reason: fmt.Sprintf("duplicate case_id %q", c.CaseID)}
		}
		seen[c.CaseID] = true
	}

	return cases, nil
}
