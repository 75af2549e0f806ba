package nfe

import (
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

var taxFields = []struct {
	kind TaxKind
	keys []string
}{
	{TaxICMS, icmsValueKeys},
	{TaxIPI, ipiValueKeys},
	{TaxPIS, pisValueKeys},
	{TaxCOFINS, cofinsValueKeys},
}

// ExtractTaxes lê os quatro tributos do ICMSTot. Só entra na lista o
// tributo com valor > 0.
//
// O ICMSTot não traz base própria para IPI/PIS/COFINS, então todos usam
// vBC e a alíquota sai como valor/base*100. Isso é a alíquota efetiva
// sobre a base do ICMS e diverge da alíquota legal quando as bases reais
// forem diferentes.
func ExtractTaxes(inv *etree.Element) []TaxEntry {
	tot := icmsTotals(technicalInfo(inv))
	base := numberAt(tot, taxBaseValueKeys...)

	taxes := make([]TaxEntry, 0, len(taxFields))
	for _, f := range taxFields {
		value := numberAt(tot, f.keys...)
		if !value.IsPositive() {
			continue
		}
		taxes = append(taxes, TaxEntry{
			Kind:    f.kind,
			TaxBase: base,
			Rate:    effectiveRate(value, base),
			Value:   value,
		})
	}
	return taxes
}

func effectiveRate(value, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return value.Div(base).Mul(hundred)
}
