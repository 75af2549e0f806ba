package nfe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHeader(t *testing.T) {
	inv := mustInvoice(t, string(readFixture(t, "nfeproc_minimal.xml")))

	h := ExtractHeader(inv)

	require.NotNil(t, h.AccessKey)
	assert.Equal(t, "35240312345678000199550010000001001234567890", *h.AccessKey)
	assert.Equal(t, "100", h.Number)
	assert.Equal(t, "1", h.Series)
	assert.Equal(t, "2024-03-15", h.IssueDate)
	assertDecimal(t, "250.75", h.TotalValue)
	assertDecimal(t, "200.00", h.TaxBaseValue)
	assertDecimal(t, "36.00", h.TotalTaxValue)
	assert.Equal(t, StatusImported, h.Status)
	assert.Equal(t, DirectionInbound, h.Direction)
}

func TestExtractHeaderDefaults(t *testing.T) {
	freezeClock(t)

	h := ExtractHeader(mustInvoice(t, `<NFe><infNFe/></NFe>`))

	assert.Nil(t, h.AccessKey)
	assert.Equal(t, "", h.Number)
	assert.Equal(t, "", h.Series)
	assert.Equal(t, "2026-10-15", h.IssueDate)
	assertDecimal(t, "0", h.TotalValue)
	assertDecimal(t, "0", h.TaxBaseValue)
	assertDecimal(t, "0", h.TotalTaxValue)
	assert.Equal(t, StatusImported, h.Status)
	assert.Equal(t, DirectionInbound, h.Direction)
}

func TestExtractHeaderKeepsKeyWithoutPrefix(t *testing.T) {
	h := ExtractHeader(mustInvoice(t, `<NFe><infNFe Id="35240312345678000199550010000001001234567890"/></NFe>`))
	require.NotNil(t, h.AccessKey)
	assert.Equal(t, "35240312345678000199550010000001001234567890", *h.AccessKey)
}

// Trocar o nome oficial pelo apelido não pode mudar o valor extraído.
func TestExtractHeaderAliasEquivalence(t *testing.T) {
	const tmpl = `<NFe><%[1]s %[2]s="NFe123">
		<%[3]s><%[4]s>55</%[4]s><%[5]s>3</%[5]s><%[6]s>2024-01-02T08:00:00-03:00</%[6]s></%[3]s>
		<%[7]s><%[8]s><%[9]s>10,50</%[9]s><%[10]s>8.00</%[10]s><%[11]s>1.44</%[11]s></%[8]s></%[7]s>
	</%[1]s></NFe>`

	canonical := fmt.Sprintf(tmpl, "infNFe", "Id", "ide", "nNF", "serie", "dhEmi", "total", "ICMSTot", "vNF", "vBC", "vICMS")
	want := ExtractHeader(mustInvoice(t, canonical))

	variants := map[string][]any{
		"InfNFe":        {"InfNFe", "Id", "ide", "nNF", "serie", "dhEmi", "total", "ICMSTot", "vNF", "vBC", "vICMS"},
		"id minúsculo":  {"infNFe", "id", "ide", "nNF", "serie", "dhEmi", "total", "ICMSTot", "vNF", "vBC", "vICMS"},
		"identificacao": {"infNFe", "Id", "identificacao", "numero", "series", "dataEmissao", "total", "ICMSTot", "vNF", "vBC", "vICMS"},
		"dEmi":          {"infNFe", "Id", "ide", "nNF", "serie", "dEmi", "total", "ICMSTot", "vNF", "vBC", "vICMS"},
		"totais":        {"infNFe", "Id", "ide", "nNF", "serie", "dhEmi", "totais", "icmsTot", "valorTotal", "baseCalculo", "valorICMS"},
	}

	for name, args := range variants {
		t.Run(name, func(t *testing.T) {
			got := ExtractHeader(mustInvoice(t, fmt.Sprintf(tmpl, args...)))
			assert.Equal(t, *want.AccessKey, *got.AccessKey)
			assert.Equal(t, want.Number, got.Number)
			assert.Equal(t, want.Series, got.Series)
			assert.Equal(t, want.IssueDate, got.IssueDate)
			assert.True(t, want.TotalValue.Equal(got.TotalValue))
			assert.True(t, want.TaxBaseValue.Equal(got.TaxBaseValue))
			assert.True(t, want.TotalTaxValue.Equal(got.TotalTaxValue))
		})
	}

	assert.Equal(t, "55", want.Number)
	assert.Equal(t, "2024-01-02", want.IssueDate)
	assertDecimal(t, "10.5", want.TotalValue)
}

func TestExtractHeaderCanonicalWins(t *testing.T) {
	h := ExtractHeader(mustInvoice(t, `<NFe><infNFe><ide><numero>9</numero><nNF>1</nNF></ide></infNFe></NFe>`))
	assert.Equal(t, "1", h.Number)
}

func TestExtractHeaderEmptyCanonicalFallsBack(t *testing.T) {
	h := ExtractHeader(mustInvoice(t, `<NFe><infNFe><ide><nNF></nNF><numero>9</numero></ide></infNFe></NFe>`))
	assert.Equal(t, "9", h.Number)
}
