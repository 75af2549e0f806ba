package nfe

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// ExtractHeader lê chave, número/série, emissão e totais do elemento NFe.
// Campo ausente nunca é erro: vira "", zero ou a data de hoje.
func ExtractHeader(inv *etree.Element) InvoiceHeader {
	info := technicalInfo(inv)
	ide := firstChild(info, identificationKeys...)
	tot := icmsTotals(info)

	return InvoiceHeader{
		AccessKey:     accessKey(info),
		Number:        firstText(ide, numberKeys...),
		Series:        firstText(ide, seriesKeys...),
		IssueDate:     ToISODate(firstText(ide, issueDateKeys...)),
		TotalValue:    numberAt(tot, totalValueKeys...),
		TaxBaseValue:  numberAt(tot, taxBaseValueKeys...),
		TotalTaxValue: numberAt(tot, icmsValueKeys...),
		Status:        StatusImported,
		Direction:     DirectionInbound,
	}
}

// technicalInfo devolve o infNFe. Se o documento já veio sem esse nível
// (exportações que achatam a estrutura), usa o próprio nó.
func technicalInfo(inv *etree.Element) *etree.Element {
	if info := firstChild(inv, technicalInfoKeys...); info != nil {
		return info
	}
	return inv
}

// icmsTotals devolve total/ICMSTot, ou nil.
func icmsTotals(info *etree.Element) *etree.Element {
	return firstChild(firstChild(info, totalsKeys...), icmsTotalsKeys...)
}

// accessKey lê o Id ("NFe3514...") e tira o prefixo literal.
func accessKey(info *etree.Element) *string {
	id := firstAttr(info, accessKeyAttrs...)
	if id == "" {
		return nil
	}
	key := strings.TrimPrefix(id, accessKeyPrefix)
	return &key
}

func numberAt(el *etree.Element, aliases ...string) decimal.Decimal {
	return ToNumber(firstText(el, aliases...))
}
