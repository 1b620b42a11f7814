// Package textdecode turns arbitrary device output into text without ever
// failing on bad bytes.
package textdecode

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Text decodes content as UTF-8, honoring a UTF-8 or UTF-16 byte order mark.
// Invalid sequences become U+FFFD and line endings are normalized to "\n".
func Text(content []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), decoder))
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return newlines.Replace(string(out)), nil
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Text(data)
}

// CharsetReader resolves the encoding declared in an XML prolog. It plugs
// into xml.Decoder.CharsetReader.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	r, err := charset.NewReaderLabel(label, input)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return r, nil
}
