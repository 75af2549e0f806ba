package nfe

import (
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// ExtractItems devolve os itens (det) na ordem do documento. Nota sem itens
// devolve slice vazio.
func ExtractItems(inv *etree.Element) []LineItem {
	nodes := itemNodes(technicalInfo(inv))

	items := make([]LineItem, 0, len(nodes))
	for _, node := range nodes {
		items = append(items, buildItem(node))
	}
	return items
}

// itemNodes resolve as duas formas de lista: elementos repetidos
// (<det/><det/>) ou um invólucro único com os itens dentro
// (<itens><item/><item/></itens>).
func itemNodes(info *etree.Element) []*etree.Element {
	nodes := children(info, itemListKeys...)
	if len(nodes) != 1 {
		return nodes
	}

	wrapper := nodes[0]
	if firstChild(wrapper, productKeys...) != nil {
		return nodes
	}
	if nested := children(wrapper, nestedItemKeys...); len(nested) > 0 {
		return nested
	}
	return nodes
}

func buildItem(node *etree.Element) LineItem {
	prod := firstChild(node, productKeys...)
	if prod == nil {
		prod = node
	}

	quantity := decimal.NewFromInt(1)
	if q := firstText(prod, quantityKeys...); q != "" {
		quantity = ToNumber(q)
	}

	return LineItem{
		Description:    firstText(prod, descriptionKeys...),
		ProductCode:    firstText(prod, productCodeKeys...),
		CommercialUnit: firstText(prod, commercialUnitKeys...),
		CFOPCode:       firstText(prod, cfopKeys...),
		Quantity:       quantity,
		UnitValue:      numberAt(prod, unitValueKeys...),
		TotalValue:     numberAt(prod, itemTotalKeys...),
		ICMSRate:       icmsRate(node, prod),
	}
}

// icmsRate procura pICMS dentro de imposto/ICMS. O grupo muda conforme o
// CST (ICMS00, ICMS20, ICMSSN900...), então olha o próprio ICMS e cada
// grupo filho. Sem pICMS, tenta o apelido no item e no produto.
func icmsRate(node, prod *etree.Element) decimal.Decimal {
	icms := firstChild(firstChild(node, itemTaxKeys...), icmsGroupKeys...)
	if icms != nil {
		if v := firstText(icms, icmsRateKeys...); v != "" {
			return ToNumber(v)
		}
		for _, group := range icms.ChildElements() {
			if v := firstText(group, icmsRateKeys...); v != "" {
				return ToNumber(v)
			}
		}
	}

	for _, el := range []*etree.Element{node, prod} {
		if v := firstText(el, icmsRateAliasKeys...); v != "" {
			return ToNumber(v)
		}
	}
	return decimal.Zero
}
