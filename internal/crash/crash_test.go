package crash

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-dev-2024/labtriage/internal/config"
	"github.com/ai-dev-2024/labtriage/internal/model"
)

func defaultExtractor(t *testing.T) Extractor {
	t.Helper()
	p := config.DefaultPolicy()
	patterns, err := p.CompileTimestampPatterns()
	require.NoError(t, err)
	return Extractor{TimestampPatterns: patterns, TimestampWindow: p.Crash.TimestampWindow}
}

func TestExtractSingleFatalException(t *testing.T) {
	block := "FATAL EXCEPTION: main\nProcess: com.example.app, PID: 4242\njava.lang.NullPointerException\n\tat com.example.Foo.bar(Foo.java:12)"
	text := "I/ActivityManager: start\n" + block + "\n\nI/ActivityManager: done\n"

	got := defaultExtractor(t).Extract("logcat", text)

	require.Len(t, got, 1)
	assert.Equal(t, model.FatalException, got[0].Type)
	assert.Equal(t, block, got[0].Details)
	assert.Equal(t, "logcat", got[0].File)
	assert.Nil(t, got[0].Timestamp)
}

func TestExtractRunsToEndOfText(t *testing.T) {
	text := "FATAL EXCEPTION: worker\nstack line"

	got := defaultExtractor(t).Extract("a.log", text)

	require.Len(t, got, 1)
	assert.Equal(t, text, got[0].Details)
}

func TestExtractOverlappingPatternsAreNotDeduplicated(t *testing.T) {
	text := "06-01 10:11:12.345  4242  4242 E AndroidRuntime: FATAL EXCEPTION: main\n" +
		"06-01 10:11:12.345  4242  4242 E AndroidRuntime: java.lang.IllegalStateException\n\n" +
		"06-01 10:11:13.000  1000  1000 I Other: fine\n"

	got := defaultExtractor(t).Extract("logcat", text)

	require.Len(t, got, 2)
	assert.Equal(t, model.FatalException, got[0].Type)
	assert.True(t, strings.HasPrefix(got[0].Details, "FATAL EXCEPTION: main"))
	assert.Equal(t, model.RuntimeFatal, got[1].Type)
	assert.True(t, strings.HasPrefix(got[1].Details, "AndroidRuntime: FATAL EXCEPTION: main"))
	for _, r := range got {
		require.NotNil(t, r.Timestamp)
		assert.Equal(t, "06-01 10:11:12", *r.Timestamp)
	}
}

func TestExtractMultipleBlocks(t *testing.T) {
	text := "FATAL EXCEPTION: one\na\n\nnoise\n\nFATAL EXCEPTION: two\nb\n\n"

	got := defaultExtractor(t).Extract("x.log", text)

	require.Len(t, got, 2)
	assert.Equal(t, "FATAL EXCEPTION: one\na", got[0].Details)
	assert.Equal(t, "FATAL EXCEPTION: two\nb", got[1].Details)
}

func TestExtractRuntimeFatalSpansBlankLines(t *testing.T) {
	text := "AndroidRuntime: starting\n\nunrelated\nFATAL signal 11\ntrace\n\ntail"

	got := defaultExtractor(t).Extract("x.log", text)

	require.Len(t, got, 1)
	assert.Equal(t, model.RuntimeFatal, got[0].Type)
	assert.Equal(t, "AndroidRuntime: starting\n\nunrelated\nFATAL signal 11\ntrace", got[0].Details)
}

func TestExtractRuntimeWithoutFatalIsIgnored(t *testing.T) {
	text := "E AndroidRuntime: shutting down VM\n\nall good\n"

	assert.Empty(t, defaultExtractor(t).Extract("x.log", text))
}

func TestExtractIsCaseSensitive(t *testing.T) {
	text := "fatal exception: main\nandroidruntime fatal\n"

	assert.Empty(t, defaultExtractor(t).Extract("x.log", text))
}

func TestTimestampPatternOrder(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"full date", "2024-03-05 08:09:10 boot\n", "2024-03-05 08:09:10"},
		{"short date", "03-05 08:09:10.111 boot\n", "03-05 08:09:10"},
		{"month day", "Mar  5 08:09:10 host boot\n", "Mar  5 08:09:10"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := defaultExtractor(t).Extract("x.log", tc.prefix+"FATAL EXCEPTION: main\n")
			require.Len(t, got, 1)
			require.NotNil(t, got[0].Timestamp)
			assert.Equal(t, tc.want, *got[0].Timestamp)
		})
	}
}

func TestTimestampMatchesUnicodeClasses(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"no-break space", "2024-03-05\u00a008:09:10 boot\n", "2024-03-05\u00a008:09:10"},
		{"localized month", "Mär  5 08:09:10 host boot\n", "Mär  5 08:09:10"},
		{"arabic-indic digits", "٠٣-٠٥ ٠٨:٠٩:١٠ boot\n", "٠٣-٠٥ ٠٨:٠٩:١٠"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := defaultExtractor(t).Extract("x.log", tc.prefix+"FATAL EXCEPTION: main\n")
			require.Len(t, got, 1)
			require.NotNil(t, got[0].Timestamp)
			assert.Equal(t, tc.want, *got[0].Timestamp)
		})
	}
}

func TestTimestampOutsideWindowIsIgnored(t *testing.T) {
	text := "2024-03-05 08:09:10\n" + strings.Repeat("x", 300) + "\nFATAL EXCEPTION: main\n"

	got := defaultExtractor(t).Extract("x.log", text)

	require.Len(t, got, 1)
	assert.Nil(t, got[0].Timestamp)
}

func TestTimestampWindowCountsCharacters(t *testing.T) {
	// 170 two-byte runes sit between the timestamp and the marker; a byte
	// window of 200 would miss it.
	text := "2024-03-05 08:09:10 " + strings.Repeat("é", 170) + "FATAL EXCEPTION: main\n"

	got := defaultExtractor(t).Extract("x.log", text)

	require.Len(t, got, 1)
	require.NotNil(t, got[0].Timestamp)
	assert.Equal(t, "2024-03-05 08:09:10", *got[0].Timestamp)
}

func TestExtractWithoutPatternsLeavesTimestampEmpty(t *testing.T) {
	got := Extractor{}.Extract("x.log", "2024-03-05 08:09:10 FATAL EXCEPTION: main")
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Timestamp)
}

func TestExtractFileDecodesPermissively(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "run1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := []byte("\xffbad\r\nFATAL EXCEPTION: main\r\nboom\r\n\r\nafter")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logcat"), content, 0o644))

	got, err := defaultExtractor(t).ExtractFile(root, "run1/logcat")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "FATAL EXCEPTION: main\nboom", got[0].Details)
	assert.Equal(t, "run1/logcat", got[0].File)
}

func TestExtractFileMissing(t *testing.T) {
	_, err := defaultExtractor(t).ExtractFile(t.TempDir(), "gone.log")
	assert.Error(t, err)
}

func TestExtractLargeLogIsLinear(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20000; i++ {
		b.WriteString("AndroidRuntime: line without the keyword\n")
	}
	got := Extractor{TimestampPatterns: []*regexp.Regexp{regexp.MustCompile(`\d+`)}, TimestampWindow: 200}.Extract("big.log", b.String())
	assert.Empty(t, got)
}
