package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-dev-2024/labtriage/internal/model"
)

func intp(n int) *int { return &n }

func strp(s string) *string { return &s }

// compactJSON ignores the indentation a saved payload picks up.
var compactJSON = cmp.Transformer("compactJSON", func(m json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, m); err != nil {
		return string(m)
	}
	return buf.String()
})

func sampleReport() model.Report {
	return model.Report{
		Summary: model.Summary{
			TotalCrashes:     1,
			TotalTestFiles:   2,
			TotalScreenshots: 1,
			PerformanceFiles: 1,
			ScanTime:         time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		},
		Crashes: []model.CrashRecord{
			{File: "logcat", Type: model.FatalException, Details: "FATAL EXCEPTION: main", Timestamp: strp("06-01 10:00:00")},
		},
		TestResults: []model.StructuredResult{
			{
				File: "a/result.xml", Type: model.ResultXML,
				TotalTests: intp(3), Failures: intp(1), Errors: intp(0),
				FailureDetails: []model.FailureDetail{{TestName: "t", Message: "boom", File: "a/result.xml"}},
			},
			{File: "a/perf.json", Type: model.ResultJSON, Data: json.RawMessage(`{"zeta":1,"fps":59.94}`)},
		},
		MediaFiles: model.MediaFiles{
			Screenshots: []model.MediaEntry{{Path: "s.png", SizeMB: 0.01, Type: model.MediaImage}},
			Videos:      []model.MediaEntry{},
		},
		PerformanceFiles: []string{"a/perf.json"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firebase_analysis_report.json")
	want := sampleReport()
	require.NoError(t, Save(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"summary\": {\n    \"total_crashes\": 1,"))
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
	assert.Contains(t, string(data), `"fps": 59.94`)
	assert.Less(t, strings.Index(string(data), `"zeta"`), strings.Index(string(data), `"fps"`))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, compactJSON); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveNullTimestamp(t *testing.T) {
	r := sampleReport()
	r.Crashes[0].Timestamp = nil
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, Save(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp": null`)
	assert.NoError(t, Validate(data))
}

func TestSaveKeepsNullPayload(t *testing.T) {
	r := sampleReport()
	r.TestResults[1].Data = json.RawMessage("null")
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, Save(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data": null`)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), got.TestResults[1].Data)
	assert.Nil(t, got.TestResults[0].Data)
}

func TestSaveRequiresPath(t *testing.T) {
	assert.Error(t, Save("", sampleReport()))
}

func TestSaveIntoMissingDirectory(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "gone", "r.json"), sampleReport())
	assert.Error(t, err)
}

func TestValidateAcceptsEncodedReport(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Encode(&sb, sampleReport()))
	assert.NoError(t, Validate([]byte(sb.String())))
}

func TestValidateRejectsBrokenReports(t *testing.T) {
	cases := map[string]string{
		"missing summary": `{"crashes": [], "test_results": [], "media_files": {"screenshots": [], "videos": []}, "performance_files": []}`,
		"bad crash kind":  `{"summary": {"total_crashes": 1, "total_test_files": 0, "total_screenshots": 0, "total_videos": 0, "performance_files": 0, "scan_time": "2024-06-01T10:00:00Z"}, "crashes": [{"file": "x", "type": "OOM", "details": "", "timestamp": null}], "test_results": [], "media_files": {"screenshots": [], "videos": []}, "performance_files": []}`,
		"negative count":  `{"summary": {"total_crashes": -1, "total_test_files": 0, "total_screenshots": 0, "total_videos": 0, "performance_files": 0, "scan_time": "2024-06-01T10:00:00Z"}, "crashes": [], "test_results": [], "media_files": {"screenshots": [], "videos": []}, "performance_files": []}`,
		"null crash list": `{"summary": {"total_crashes": 0, "total_test_files": 0, "total_screenshots": 0, "total_videos": 0, "performance_files": 0, "scan_time": "2024-06-01T10:00:00Z"}, "crashes": null, "test_results": [], "media_files": {"screenshots": [], "videos": []}, "performance_files": []}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate([]byte(doc))
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "%v", err)
		})
	}
}

func TestValidateRejectsNonJSON(t *testing.T) {
	err := Validate([]byte("not json"))
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse report")
}
