// Package report persists, loads and validates the JSON triage artifact.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ai-dev-2024/labtriage/internal/model"
)

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON Schema every artifact conforms to.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

// Encode writes r as two-space indented JSON followed by a newline.
func Encode(w io.Writer, r model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

func Save(path string, r model.Report) error {
	if path == "" {
		return fmt.Errorf("report path required")
	}
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func Load(path string) (model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Report{}, err
	}
	return Decode(data)
}

func Decode(data []byte) (model.Report, error) {
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return model.Report{}, fmt.Errorf("parse report: %w", err)
	}
	return r, nil
}

// ValidationError lists every schema violation found in an artifact.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "report does not match schema: " + strings.Join(e.Problems, "; ")
}

// Validate checks data against the embedded schema. A violation is returned
// as *ValidationError; anything else means data was not JSON at all.
func Validate(data []byte) error {
	res, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, re := range res.Errors() {
		problems = append(problems, re.String())
	}
	return &ValidationError{Problems: problems}
}

// IsValidationError reports whether err carries schema violations.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
