// Package charset turns uploaded bytes into text. Decoding never fails:
// input that is not valid UTF-8 is read as Latin-1.
package charset

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names the character set an upload was decoded with.
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	Latin1 Encoding = "latin-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns data as a string. A leading UTF-8 byte order mark is dropped.
func Decode(data []byte) (string, Encoding) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), UTF8
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// ISO-8859-1 maps every byte, so this is unreachable in practice.
		return string(bytes.ToValidUTF8(data, []byte("�"))), Latin1
	}
	return string(out), Latin1
}
