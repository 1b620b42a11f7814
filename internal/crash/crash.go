// Package crash pulls crash signature blocks out of device logs.
package crash

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ai-dev-2024/labtriage/internal/model"
	"github.com/ai-dev-2024/labtriage/internal/textdecode"
)

const (
	fatalMarker   = "FATAL EXCEPTION:"
	runtimeMarker = "AndroidRuntime"
	runtimeFatal  = "FATAL"
	blockEnd      = "\n\n"
)

// Extractor scans decoded log text. The zero value finds crashes but never
// recovers timestamps.
type Extractor struct {
	TimestampPatterns []*regexp.Regexp
	// TimestampWindow is the number of characters searched on each side of
	// a block start.
	TimestampWindow int
}

// ExtractFile reads root/rel and returns its crash records. Paths in the
// records stay relative.
func (e Extractor) ExtractFile(root, rel string) ([]model.CrashRecord, error) {
	text, err := textdecode.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	return e.Extract(rel, text), nil
}

// Extract runs both signature scans over text. FATAL EXCEPTION blocks come
// first, then AndroidRuntime blocks; overlapping blocks are all kept.
func (e Extractor) Extract(file, text string) []model.CrashRecord {
	records := make([]model.CrashRecord, 0)
	for _, span := range fatalExceptionBlocks(text) {
		records = append(records, e.record(file, model.FatalException, text, span))
	}
	for _, span := range runtimeFatalBlocks(text) {
		records = append(records, e.record(file, model.RuntimeFatal, text, span))
	}
	return records
}

func (e Extractor) record(file string, kind model.SignatureKind, text string, s span) model.CrashRecord {
	return model.CrashRecord{
		File:      file,
		Type:      kind,
		Details:   strings.TrimSpace(text[s.start:s.end]),
		Timestamp: e.timestamp(text, s.start),
	}
}

type span struct{ start, end int }

func fatalExceptionBlocks(text string) []span {
	var spans []span
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], fatalMarker)
		if i < 0 {
			break
		}
		start := pos + i
		end := blockEndFrom(text, start+len(fatalMarker))
		spans = append(spans, span{start, end})
		pos = end
	}
	return spans
}

// runtimeFatalBlocks finds each AndroidRuntime token that has a FATAL
// somewhere after it. The block runs to the first blank line after that
// FATAL, which may lie beyond earlier blank lines.
func runtimeFatalBlocks(text string) []span {
	var spans []span
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], runtimeMarker)
		if i < 0 {
			break
		}
		start := pos + i
		afterToken := start + len(runtimeMarker)
		f := strings.Index(text[afterToken:], runtimeFatal)
		if f < 0 {
			break
		}
		end := blockEndFrom(text, afterToken+f+len(runtimeFatal))
		spans = append(spans, span{start, end})
		pos = end
	}
	return spans
}

func blockEndFrom(text string, from int) int {
	if from >= len(text) {
		return len(text)
	}
	j := strings.Index(text[from:], blockEnd)
	if j < 0 {
		return len(text)
	}
	return from + j
}

func (e Extractor) timestamp(text string, pos int) *string {
	if len(e.TimestampPatterns) == 0 {
		return nil
	}
	window := runeWindow(text, pos, e.TimestampWindow)
	for _, re := range e.TimestampPatterns {
		if m := re.FindString(window); m != "" {
			return &m
		}
	}
	return nil
}

// runeWindow returns up to n runes before and after byte offset pos.
func runeWindow(text string, pos, n int) string {
	start := pos
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	end := pos
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}
