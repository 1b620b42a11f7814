package model

import (
	"encoding/json"
	"time"
)

// SignatureKind names the crash pattern a block was matched by.
type SignatureKind string

const (
	FatalException SignatureKind = "FATAL EXCEPTION"
	RuntimeFatal   SignatureKind = "AndroidRuntime"
)

// ResultKind names the document format a structured result came from.
type ResultKind string

const (
	ResultXML  ResultKind = "XML Test Results"
	ResultJSON ResultKind = "JSON Test Results"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Report is the top-level JSON artifact written into the results directory.
type Report struct {
	Summary          Summary            `json:"summary"`
	Crashes          []CrashRecord      `json:"crashes"`
	TestResults      []StructuredResult `json:"test_results"`
	MediaFiles       MediaFiles         `json:"media_files"`
	PerformanceFiles []string           `json:"performance_files"`
}

type Summary struct {
	TotalCrashes     int       `json:"total_crashes"`
	TotalTestFiles   int       `json:"total_test_files"`
	TotalScreenshots int       `json:"total_screenshots"`
	TotalVideos      int       `json:"total_videos"`
	PerformanceFiles int       `json:"performance_files"`
	ScanTime         time.Time `json:"scan_time"`
}

type CrashRecord struct {
	File      string        `json:"file"`
	Type      SignatureKind `json:"type"`
	Details   string        `json:"details"`
	Timestamp *string       `json:"timestamp"`
}

// StructuredResult carries counts for XML documents and the raw payload for
// JSON documents. Only the fields of its Type are populated; a JSON null
// payload is kept as the literal null.
type StructuredResult struct {
	File           string          `json:"file"`
	Type           ResultKind      `json:"type"`
	TotalTests     *int            `json:"total_tests,omitempty"`
	Failures       *int            `json:"failures,omitempty"`
	Errors         *int            `json:"errors,omitempty"`
	FailureDetails []FailureDetail `json:"failure_details,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// HasCounts reports whether the result carries testcase/failure/error counts.
func (r StructuredResult) HasCounts() bool {
	return r.TotalTests != nil
}

type FailureDetail struct {
	TestName string `json:"test_name"`
	Message  string `json:"message"`
	File     string `json:"file"`
}

type MediaFiles struct {
	Screenshots []MediaEntry `json:"screenshots"`
	Videos      []MediaEntry `json:"videos"`
}

type MediaEntry struct {
	Path   string    `json:"path"`
	SizeMB float64   `json:"size_mb"`
	Type   MediaKind `json:"type"`
}

// CountFailures sums failure and error counts across XML results.
func CountFailures(results []StructuredResult) (failures int, errors int) {
	for _, r := range results {
		if r.Failures != nil {
			failures += *r.Failures
		}
		if r.Errors != nil {
			errors += *r.Errors
		}
	}
	return failures, errors
}
