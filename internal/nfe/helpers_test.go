package nfe

import (
	"os"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	w := decimal.RequireFromString(want)
	assert.Truef(t, w.Equal(got), "esperado %s, obtido %s %v", w, got, msgAndArgs)
}

// freezeClock fixa "hoje" em 2026-10-15 durante o teste.
func freezeClock(t *testing.T) {
	t.Helper()
	old := now
	now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local) }
	t.Cleanup(func() { now = old })
}

func mustDoc(t *testing.T, xml string) *etree.Document {
	t.Helper()
	doc, err := readDocument([]byte(xml))
	require.NoError(t, err)
	return doc
}

func mustInvoice(t *testing.T, xml string) *etree.Element {
	t.Helper()
	inv := Locate(&mustDoc(t, xml).Element)
	require.NotNil(t, inv, "NFe não localizada")
	return inv
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}
