package textdecode

import (
	"bytes"
	"encoding/xml"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextReplacesInvalidBytes(t *testing.T) {
	got, err := Text([]byte("FATAL \xff\xfe EXCEPTION"))
	require.NoError(t, err)
	assert.Equal(t, "FATAL �� EXCEPTION", got)
}

func TestTextNormalizesLineEndings(t *testing.T) {
	got, err := Text([]byte("a\r\nb\rc\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n\n", got)
}

func TestTextDecodesUTF16WithBOM(t *testing.T) {
	// "hi\n" as UTF-16LE with BOM
	in := []byte{0xff, 0xfe, 'h', 0, 'i', 0, '\n', 0}
	got, err := Text(in)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", got)
}

func TestTextStripsUTF8BOM(t *testing.T) {
	got, err := Text([]byte("\xef\xbb\xbfhello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestCharsetReaderLatin1(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><a>caf\xe9</a>")
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.CharsetReader = CharsetReader

	var text string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if cd, ok := tok.(xml.CharData); ok {
			text += string(cd)
		}
	}
	assert.Equal(t, "café", text)
}
