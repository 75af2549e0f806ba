package nfe

import (
	"bytes"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUTF8Latin1(t *testing.T) {
	raw := readFixture(t, "latin1.xml")
	require.False(t, utf8.Valid(raw))

	out, err := ToUTF8(raw)
	require.NoError(t, err)

	assert.True(t, utf8.Valid(out))
	assert.Contains(t, string(out), "AÇÚCAR CRISTAL")
	assert.True(t, bytes.HasPrefix(out, []byte(`<?xml version="1.0" encoding="UTF-8"?>`)))

	// o documento convertido continua parseando igual
	parsed, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, parsed.Items, 1)
	assert.Equal(t, "AÇÚCAR CRISTAL", parsed.Items[0].Description)
}

func TestToUTF8Windows1252(t *testing.T) {
	// 0x80 é o euro em cp1252
	raw := []byte("<?xml version='1.0' encoding='windows-1252'?><NFe><infNFe><det><prod><xProd>CAF\xc9 \x80</xProd></prod></det></infNFe></NFe>")

	out, err := ToUTF8(raw)
	require.NoError(t, err)
	assert.True(t, utf8.Valid(out))
	assert.Contains(t, string(out), "encoding='UTF-8'")
	assert.Contains(t, string(out), "CAFÉ €")
}

func TestToUTF8KeepsUTF8(t *testing.T) {
	raw := readFixture(t, "nfeproc_minimal.xml")

	out, err := ToUTF8(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, raw...)
	out, err = ToUTF8(withBOM)
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	noProlog := []byte(`<NFe><infNFe/></NFe>`)
	out, err = ToUTF8(noProlog)
	require.NoError(t, err)
	assert.Equal(t, noProlog, out)
}

func TestToUTF8UnknownCharset(t *testing.T) {
	_, err := ToUTF8([]byte(`<?xml version="1.0" encoding="EBCDIC"?><NFe/>`))
	assert.Error(t, err)
}
