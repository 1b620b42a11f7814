package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const DefaultReportFileName = "firebase_analysis_report.json"

type Policy struct {
	Version  string         `yaml:"version"`
	Classify ClassifyPolicy `yaml:"classify"`
	Crash    CrashPolicy    `yaml:"crash"`
	Results  ResultsPolicy  `yaml:"results"`
	Display  DisplayPolicy  `yaml:"display"`
	Report   ReportPolicy   `yaml:"report"`
}

// ClassifyPolicy holds the per-role glob sets matched against file base names.
type ClassifyPolicy struct {
	Logs         []string `yaml:"logs"`
	Results      []string `yaml:"results"`
	Performance  []string `yaml:"performance"`
	Images       []string `yaml:"images"`
	Videos       []string `yaml:"videos"`
	ExcludePaths []string `yaml:"exclude_paths"`
}

type CrashPolicy struct {
	TimestampPatterns []string `yaml:"timestamp_patterns"`
	TimestampWindow   int      `yaml:"timestamp_window"`
}

type ResultsPolicy struct {
	MessageLimit int `yaml:"message_limit"`
}

type DisplayPolicy struct {
	CrashesPerKind int `yaml:"crashes_per_kind"`
	ResultFiles    int `yaml:"result_files"`
	MediaItems     int `yaml:"media_items"`
	SummaryWidth   int `yaml:"summary_width"`
}

type ReportPolicy struct {
	FileName string `yaml:"file_name"`
}

// Character classes for the default timestamp patterns. RE2's \d, \s and \w
// are ASCII only; these also accept non-ASCII digits, letters and spaces such
// as a no-break space or a localized month name.
const (
	digit = `\p{Nd}`
	space = `[\s\v\p{Z}]`
	word  = `[\p{L}\p{N}_]`
	clock = digit + `{2}:` + digit + `{2}:` + digit + `{2}`
)

func DefaultPolicy() Policy {
	return Policy{
		Version: "1",
		Classify: ClassifyPolicy{
			Logs:        []string{"*.log", "logcat*", "*test*log*"},
			Results:     []string{"*.xml", "*.json", "*test*result*"},
			Performance: []string{"*perf*", "*performance*", "metrics*"},
			Images:      []string{"*.png", "*.jpg", "*.jpeg"},
			Videos:      []string{"*.mp4", "*.avi", "*.mov"},
		},
		Crash: CrashPolicy{
			TimestampPatterns: []string{
				digit + `{4}-` + digit + `{2}-` + digit + `{2}` + space + `+` + clock,
				digit + `{2}-` + digit + `{2}` + space + `+` + clock,
				word + `{3}` + space + `+` + digit + `{1,2}` + space + `+` + clock,
			},
			TimestampWindow: 200,
		},
		Results: ResultsPolicy{MessageLimit: 200},
		Display: DisplayPolicy{
			CrashesPerKind: 3,
			ResultFiles:    5,
			MediaItems:     3,
			SummaryWidth:   100,
		},
		Report: ReportPolicy{FileName: DefaultReportFileName},
	}
}

// LoadPolicy reads a YAML policy on top of the defaults. A missing file is
// not an error.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return policy, nil
		}
		return Policy{}, err
	}

	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	def := DefaultPolicy()
	if policy.Version == "" {
		policy.Version = "1"
	}
	if len(policy.Classify.Logs) == 0 {
		policy.Classify.Logs = def.Classify.Logs
	}
	if len(policy.Classify.Results) == 0 {
		policy.Classify.Results = def.Classify.Results
	}
	if len(policy.Classify.Performance) == 0 {
		policy.Classify.Performance = def.Classify.Performance
	}
	if len(policy.Classify.Images) == 0 {
		policy.Classify.Images = def.Classify.Images
	}
	if len(policy.Classify.Videos) == 0 {
		policy.Classify.Videos = def.Classify.Videos
	}
	if len(policy.Crash.TimestampPatterns) == 0 {
		policy.Crash.TimestampPatterns = def.Crash.TimestampPatterns
	}
	if policy.Crash.TimestampWindow <= 0 {
		policy.Crash.TimestampWindow = def.Crash.TimestampWindow
	}
	if policy.Results.MessageLimit <= 0 {
		policy.Results.MessageLimit = def.Results.MessageLimit
	}
	if policy.Display.CrashesPerKind <= 0 {
		policy.Display.CrashesPerKind = def.Display.CrashesPerKind
	}
	if policy.Display.ResultFiles <= 0 {
		policy.Display.ResultFiles = def.Display.ResultFiles
	}
	if policy.Display.MediaItems <= 0 {
		policy.Display.MediaItems = def.Display.MediaItems
	}
	if policy.Display.SummaryWidth <= 0 {
		policy.Display.SummaryWidth = def.Display.SummaryWidth
	}
	if policy.Report.FileName == "" {
		policy.Report.FileName = def.Report.FileName
	}

	return policy, nil
}

// ValidatePolicy loads the policy and checks every glob and regex compiles.
func ValidatePolicy(path string) error {
	policy, err := LoadPolicy(path)
	if err != nil {
		return err
	}
	if policy.Version != "1" {
		return fmt.Errorf("unsupported policy version: %s", policy.Version)
	}

	groups := map[string][]string{
		"classify.logs":          policy.Classify.Logs,
		"classify.results":       policy.Classify.Results,
		"classify.performance":   policy.Classify.Performance,
		"classify.images":        policy.Classify.Images,
		"classify.videos":        policy.Classify.Videos,
		"classify.exclude_paths": policy.Classify.ExcludePaths,
	}
	for key, patterns := range groups {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("%s: invalid glob %q", key, p)
			}
		}
	}

	if _, err := policy.CompileTimestampPatterns(); err != nil {
		return err
	}
	return nil
}

func (p Policy) CompileTimestampPatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(p.Crash.TimestampPatterns))
	for _, expr := range p.Crash.TimestampPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile timestamp pattern %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}
