package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ai-dev-2024/labtriage/internal/config"
	"github.com/ai-dev-2024/labtriage/internal/model"
	"github.com/ai-dev-2024/labtriage/internal/report"
)

const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

type Options struct {
	Format  string
	Color   bool
	Display config.DisplayPolicy
	// Version is reported as the SARIF driver version.
	Version string
}

func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatHuman, FormatJSON, FormatSARIF:
		return true
	}
	return false
}

func Write(r model.Report, opts Options, w io.Writer) error {
	switch strings.ToLower(opts.Format) {
	case "", FormatHuman:
		newPrinter(w, opts).summaries(r)
		return nil
	case FormatJSON:
		return report.Encode(w, r)
	case FormatSARIF:
		return writeSARIF(r, opts.Version, w)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

// Banner prints the lines shown before a human-readable scan.
func Banner(w io.Writer, root string) {
	fmt.Fprintln(w, "🔍 Firebase Test Lab Results Parser")
	fmt.Fprintf(w, "📁 Scanning directory: %s\n", root)
}

// Saved prints the outcome of persisting the report artifact.
func Saved(w io.Writer, path string, err error) {
	if err != nil {
		fmt.Fprintf(w, "⚠️  Could not save report file: %v\n", err)
		return
	}
	fmt.Fprintf(w, "\n📄 Detailed report saved to: %s\n", path)
}

// Verdict prints the closing line that mirrors the exit status.
func Verdict(w io.Writer, crashes int) {
	if crashes > 0 {
		fmt.Fprintf(w, "\n❌ Analysis complete: %d crashes detected\n", crashes)
		return
	}
	fmt.Fprintln(w, "\n✅ Analysis complete: No crashes detected")
}

type printer struct {
	w       io.Writer
	display config.DisplayPolicy
	heading func(string) string
	alert   func(string) string
	ok      func(string) string
}

func newPrinter(w io.Writer, opts Options) printer {
	d := opts.Display
	def := config.DefaultPolicy().Display
	if d.CrashesPerKind <= 0 {
		d.CrashesPerKind = def.CrashesPerKind
	}
	if d.ResultFiles <= 0 {
		d.ResultFiles = def.ResultFiles
	}
	if d.MediaItems <= 0 {
		d.MediaItems = def.MediaItems
	}
	if d.SummaryWidth <= 0 {
		d.SummaryWidth = def.SummaryWidth
	}

	p := printer{w: w, display: d, heading: plain, alert: plain, ok: plain}
	if opts.Color {
		re := lipgloss.NewRenderer(w)
		p.heading = styled(re.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3")))
		p.alert = styled(re.NewStyle().Bold(true).Foreground(lipgloss.Color("#e53935")))
		p.ok = styled(re.NewStyle().Foreground(lipgloss.Color("#8BC34A")))
	}
	return p
}

func plain(s string) string { return s }

func styled(st lipgloss.Style) func(string) string {
	return func(s string) string { return st.Render(s) }
}

func (p printer) summaries(r model.Report) {
	p.crashes(r.Crashes)
	p.tests(r.TestResults)
	p.media(r.MediaFiles)
}

func (p printer) section(title string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, p.heading(title))
	fmt.Fprintln(p.w, rule)
}

func (p printer) crashes(crashes []model.CrashRecord) {
	p.section("🚨 FIREBASE TEST LAB - CRASH ANALYSIS")
	if len(crashes) == 0 {
		fmt.Fprintln(p.w, p.ok("✅ NO CRASHES DETECTED"))
		fmt.Fprintln(p.w, "All Firebase Test Lab runs completed without FATAL exceptions.")
		return
	}

	fmt.Fprintln(p.w, p.alert(fmt.Sprintf("⚠️  CRASHES DETECTED: %d total", len(crashes))))
	fmt.Fprintln(p.w)

	kinds, groups := groupByKind(crashes)
	for _, kind := range kinds {
		group := groups[kind]
		fmt.Fprintf(p.w, "📋 %s: %d incidents\n", kind, len(group))
		fmt.Fprintln(p.w, strings.Repeat("-", 40))
		for i, c := range head(group, p.display.CrashesPerKind) {
			fmt.Fprintf(p.w, "%d. File: %s\n", i+1, c.File)
			if c.Timestamp != nil && *c.Timestamp != "" {
				fmt.Fprintf(p.w, "   Time: %s\n", *c.Timestamp)
			}
			if c.Details != "" {
				first, _, _ := strings.Cut(c.Details, "\n")
				fmt.Fprintf(p.w, "   Summary: %s...\n", truncateRunes(first, p.display.SummaryWidth))
			}
			fmt.Fprintln(p.w)
		}
	}
}

// groupByKind keeps kinds in order of first appearance.
func groupByKind(crashes []model.CrashRecord) ([]model.SignatureKind, map[model.SignatureKind][]model.CrashRecord) {
	var kinds []model.SignatureKind
	groups := make(map[model.SignatureKind][]model.CrashRecord)
	for _, c := range crashes {
		if _, ok := groups[c.Type]; !ok {
			kinds = append(kinds, c.Type)
		}
		groups[c.Type] = append(groups[c.Type], c)
	}
	return kinds, groups
}

func (p printer) tests(results []model.StructuredResult) {
	p.section("📊 TEST RESULTS SUMMARY")
	if len(results) == 0 {
		fmt.Fprintln(p.w, "ℹ️  No test result files found.")
		return
	}

	failures, errs := model.CountFailures(results)
	fmt.Fprintf(p.w, "📁 Test Result Files: %d\n", len(results))
	fmt.Fprintf(p.w, "❌ Total Failures: %d\n", failures)
	fmt.Fprintf(p.w, "🚨 Total Errors: %d\n", errs)
	for _, r := range head(results, p.display.ResultFiles) {
		fmt.Fprintf(p.w, "  - %s\n", r.File)
		if r.HasCounts() {
			fmt.Fprintf(p.w, "    Tests: %d, Failures: %d, Errors: %d\n", deref(r.TotalTests), deref(r.Failures), deref(r.Errors))
		}
	}
}

func (p printer) media(m model.MediaFiles) {
	p.section("📸 MEDIA FILES SUMMARY")
	fmt.Fprintf(p.w, "🖼️  Screenshots: %d files\n", len(m.Screenshots))
	for _, e := range head(m.Screenshots, p.display.MediaItems) {
		fmt.Fprintf(p.w, "  - %s (%s MB)\n", e.Path, formatMB(e.SizeMB))
	}
	fmt.Fprintf(p.w, "\n🎬 Videos: %d files\n", len(m.Videos))
	for _, e := range head(m.Videos, p.display.MediaItems) {
		fmt.Fprintf(p.w, "  - %s (%s MB)\n", e.Path, formatMB(e.SizeMB))
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// formatMB always keeps a decimal point, so 1 MiB prints as "1.0".
func formatMB(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func writeSARIF(r model.Report, version string, w io.Writer) error {
	type artifactLocation struct {
		URI string `json:"uri"`
	}
	type physicalLocation struct {
		ArtifactLocation artifactLocation `json:"artifactLocation"`
	}
	type location struct {
		PhysicalLocation physicalLocation `json:"physicalLocation"`
	}
	type result struct {
		RuleID     string            `json:"ruleId"`
		Level      string            `json:"level"`
		Message    map[string]string `json:"message"`
		Locations  []location        `json:"locations"`
		Properties map[string]string `json:"properties,omitempty"`
	}

	results := make([]result, 0, len(r.Crashes))
	for _, c := range r.Crashes {
		first, _, _ := strings.Cut(c.Details, "\n")
		res := result{
			RuleID:  ruleID(c.Type),
			Level:   "error",
			Message: map[string]string{"text": fmt.Sprintf("%s: %s", c.Type, first)},
			Locations: []location{{
				PhysicalLocation: physicalLocation{ArtifactLocation: artifactLocation{URI: c.File}},
			}},
		}
		if c.Timestamp != nil {
			res.Properties = map[string]string{"timestamp": *c.Timestamp}
		}
		results = append(results, res)
	}

	rules := []map[string]any{
		{"id": ruleID(model.FatalException), "name": string(model.FatalException)},
		{"id": ruleID(model.RuntimeFatal), "name": string(model.RuntimeFatal)},
	}
	sarif := map[string]any{
		"$schema": "https://json.schemastore.org/sarif-2.1.0.json",
		"version": "2.1.0",
		"runs": []any{
			map[string]any{
				"tool": map[string]any{
					"driver": map[string]any{
						"name":            "labtriage",
						"semanticVersion": version,
						"rules":           rules,
					},
				},
				"results": results,
			},
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarif)
}

func ruleID(kind model.SignatureKind) string {
	switch kind {
	case model.FatalException:
		return "fatal-exception"
	case model.RuntimeFatal:
		return "android-runtime-fatal"
	default:
		return strings.ToLower(strings.ReplaceAll(string(kind), " ", "-"))
	}
}
