package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode_UTF8(t *testing.T) {
	text, enc := Decode([]byte("ra,dec,nombre\n10,20,Estrella Á\n"))
	assert.Equal(t, UTF8, enc)
	assert.Contains(t, text, "Estrella Á")
}

func TestDecode_StripsBOM(t *testing.T) {
	text, enc := Decode([]byte("\xEF\xBB\xBFra,dec\n"))
	assert.Equal(t, UTF8, enc)
	assert.Equal(t, "ra,dec\n", text)
}

func TestDecode_Latin1Fallback(t *testing.T) {
	// 0xC1 is "Á" in ISO-8859-1 and an invalid lone byte in UTF-8.
	text, enc := Decode([]byte("id,ra,dec\nestrella \xC1,1,2\n"))
	assert.Equal(t, Latin1, enc)
	assert.Contains(t, text, "estrella Á")
}

func TestDecode_Empty(t *testing.T) {
	text, enc := Decode(nil)
	assert.Equal(t, UTF8, enc)
	assert.Empty(t, text)
}
