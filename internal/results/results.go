// Package results parses structured test-result documents produced by
// assorted test runners. No schema is assumed beyond JUnit-style element
// names for XML.
package results

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ai-dev-2024/labtriage/internal/model"
	"github.com/ai-dev-2024/labtriage/internal/textdecode"
)

const (
	unknownTestName = "Unknown"
	noMessage       = "No message"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ErrUnsupported marks files whose extension has no parser.
var ErrUnsupported = errors.New("unsupported result format")

// Parser turns result files into structured records.
type Parser struct {
	// MessageLimit caps failure messages, in characters.
	MessageLimit int
}

// ParseFile dispatches on the extension of rel. Files that are neither
// .xml nor .json return ErrUnsupported.
func (p Parser) ParseFile(root, rel string) (model.StructuredResult, error) {
	switch path.Ext(rel) {
	case ".xml", ".json":
	default:
		return model.StructuredResult{}, fmt.Errorf("%s: %w", rel, ErrUnsupported)
	}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return model.StructuredResult{}, err
	}
	if path.Ext(rel) == ".xml" {
		return p.ParseXML(rel, bytes.NewReader(data))
	}
	return ParseJSON(rel, bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
}

// ParseXML counts testcase, failure and error elements anywhere below the
// document element and collects a FailureDetail per failure, in document
// order.
func (p Parser) ParseXML(file string, r io.Reader) (model.StructuredResult, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = textdecode.CharsetReader

	var (
		tests, failures, errs int
		details               []model.FailureDetail
		depth                 int
		sawRoot, rootClosed   bool
		open                  []*failureState
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.StructuredResult{}, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootClosed {
				return model.StructuredResult{}, fmt.Errorf("parse xml: content after document element")
			}
			// a child element ends the leading text of any open failure
			if n := len(open); n > 0 {
				open[n-1].textDone = true
			}
			if depth > 0 {
				switch t.Name.Local {
				case "testcase":
					tests++
				case "failure":
					failures++
				case "error":
					errs++
				}
			}
			sawRoot = true
			depth++
			if depth > 1 && t.Name.Local == "failure" {
				// the slot is taken at the start tag so nested failures follow their parent
				details = append(details, model.FailureDetail{})
				open = append(open, &failureState{depth: depth, index: len(details) - 1, name: attr(t, "name")})
			}
		case xml.CharData:
			if rootClosed && len(bytes.TrimSpace(t)) > 0 {
				return model.StructuredResult{}, fmt.Errorf("parse xml: content after document element")
			}
			if n := len(open); n > 0 && !open[n-1].textDone {
				open[n-1].text.Write(t)
			}
		case xml.EndElement:
			if n := len(open); n > 0 && open[n-1].depth == depth {
				details[open[n-1].index] = p.detail(file, open[n-1])
				open = open[:n-1]
			}
			depth--
			if depth == 0 {
				rootClosed = true
			}
		}
	}

	if !sawRoot {
		return model.StructuredResult{}, fmt.Errorf("parse xml: no document element")
	}

	return model.StructuredResult{
		File:           file,
		Type:           model.ResultXML,
		TotalTests:     &tests,
		Failures:       &failures,
		Errors:         &errs,
		FailureDetails: details,
	}, nil
}

type failureState struct {
	depth    int
	index    int
	name     string
	text     strings.Builder
	textDone bool
}

func (p Parser) detail(file string, f *failureState) model.FailureDetail {
	name := f.name
	if name == "" {
		name = unknownTestName
	}
	msg := truncate(strings.TrimSpace(f.text.String()), p.MessageLimit)
	if msg == "" {
		msg = noMessage
	}
	return model.FailureDetail{TestName: name, Message: msg, File: file}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// truncate keeps at most limit runes. A non-positive limit keeps everything.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// ParseJSON checks that r holds exactly one JSON document and keeps it as
// raw bytes, so key order, number literals and a bare null survive.
func ParseJSON(file string, r io.Reader) (model.StructuredResult, error) {
	dec := json.NewDecoder(r)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return model.StructuredResult{}, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return model.StructuredResult{}, fmt.Errorf("parse json: trailing data after document")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return model.StructuredResult{}, fmt.Errorf("parse json: %w", err)
	}

	return model.StructuredResult{
		File: file,
		Type: model.ResultJSON,
		Data: json.RawMessage(buf.Bytes()),
	}, nil
}
