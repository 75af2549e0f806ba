package nfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totalsXML(icmsTot string) string {
	return `<NFe><infNFe><total><ICMSTot>` + icmsTot + `</ICMSTot></total></infNFe></NFe>`
}

func TestExtractTaxesSparse(t *testing.T) {
	taxes := ExtractTaxes(mustInvoice(t, totalsXML(`<vBC>1000.00</vBC><vICMS>0.00</vICMS><vIPI>50.00</vIPI>`)))

	require.Len(t, taxes, 1)
	assert.Equal(t, TaxIPI, taxes[0].Kind)
	assertDecimal(t, "1000", taxes[0].TaxBase)
	assertDecimal(t, "50", taxes[0].Value)
	assertDecimal(t, "5", taxes[0].Rate)
}

func TestExtractTaxesAllKinds(t *testing.T) {
	taxes := ExtractTaxes(mustInvoice(t, totalsXML(
		`<vBC>200.00</vBC><vICMS>36.00</vICMS><vIPI>10.00</vIPI><vPIS>3.30</vPIS><vCOFINS>15.20</vCOFINS>`,
	)))

	require.Len(t, taxes, 4)
	assert.Equal(t, TaxICMS, taxes[0].Kind)
	assert.Equal(t, TaxIPI, taxes[1].Kind)
	assert.Equal(t, TaxPIS, taxes[2].Kind)
	assert.Equal(t, TaxCOFINS, taxes[3].Kind)

	for _, tax := range taxes {
		assertDecimal(t, "200", tax.TaxBase, tax.Kind)
	}
	assertDecimal(t, "18", taxes[0].Rate)
	assertDecimal(t, "5", taxes[1].Rate)
	assertDecimal(t, "1.65", taxes[2].Rate)
	assertDecimal(t, "7.6", taxes[3].Rate)
}

func TestExtractTaxesZeroBase(t *testing.T) {
	taxes := ExtractTaxes(mustInvoice(t, totalsXML(`<vIPI>12.00</vIPI>`)))

	require.Len(t, taxes, 1)
	assertDecimal(t, "0", taxes[0].TaxBase)
	assertDecimal(t, "0", taxes[0].Rate)
	assertDecimal(t, "12", taxes[0].Value)
}

func TestExtractTaxesNoTotals(t *testing.T) {
	taxes := ExtractTaxes(mustInvoice(t, `<NFe><infNFe/></NFe>`))
	assert.Empty(t, taxes)
}

func TestExtractTaxesAliases(t *testing.T) {
	xml := `<NFe><infNFe><totais><icmsTot><baseCalculo>100</baseCalculo><valorICMS>7</valorICMS><valorCOFINS>3</valorCOFINS></icmsTot></totais></infNFe></NFe>`

	taxes := ExtractTaxes(mustInvoice(t, xml))

	require.Len(t, taxes, 2)
	assert.Equal(t, TaxICMS, taxes[0].Kind)
	assertDecimal(t, "7", taxes[0].Rate)
	assert.Equal(t, TaxCOFINS, taxes[1].Kind)
	assertDecimal(t, "3", taxes[1].Rate)
}
