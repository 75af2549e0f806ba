package nfe

import "github.com/shopspring/decimal"

// ============================================================================
// Tipos de saída – o que o parser entrega para o resto do sistema
// ============================================================================

const (
	StatusImported   = "imported"
	DirectionInbound = "inbound"
)

// TaxKind identifica um dos quatro tributos lidos do bloco de totais.
type TaxKind string

const (
	TaxICMS   TaxKind = "ICMS"
	TaxIPI    TaxKind = "IPI"
	TaxPIS    TaxKind = "PIS"
	TaxCOFINS TaxKind = "COFINS"
)

// ParsedInvoice é o resultado completo de Parse: cabeçalho, itens e impostos.
// O parser não liga itens/impostos ao cabeçalho; quem persiste insere o
// cabeçalho primeiro e usa o id gerado.
type ParsedInvoice struct {
	Header InvoiceHeader `json:"header"`
	Items  []LineItem    `json:"items"`
	Taxes  []TaxEntry    `json:"taxes"`
}

type InvoiceHeader struct {
	AccessKey     *string         `json:"accessKey"` // nil quando o Id não existe no XML
	Number        string          `json:"number"`
	Series        string          `json:"series"`
	IssueDate     string          `json:"issueDate"` // YYYY-MM-DD
	TotalValue    decimal.Decimal `json:"totalValue"`
	TaxBaseValue  decimal.Decimal `json:"taxBaseValue"`
	TotalTaxValue decimal.Decimal `json:"totalTaxValue"`
	Status        string          `json:"status"`
	Direction     string          `json:"direction"`
}

type LineItem struct {
	Description    string          `json:"description"`
	ProductCode    string          `json:"productCode"` // NCM
	CommercialUnit string          `json:"commercialUnit"`
	CFOPCode       string          `json:"cfopCode"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitValue      decimal.Decimal `json:"unitValue"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	ICMSRate       decimal.Decimal `json:"icmsRate"` // percentual
}

// TaxEntry só existe para tributos com valor > 0.
// Rate é a alíquota efetiva sobre a base compartilhada (vBC), não a
// alíquota legal do tributo.
type TaxEntry struct {
	Kind    TaxKind         `json:"kind"`
	TaxBase decimal.Decimal `json:"taxBase"`
	Rate    decimal.Decimal `json:"rate"`
	Value   decimal.Decimal `json:"value"`
}

// BasicInfo é a leitura leve usada para pré-visualização.
type BasicInfo struct {
	AccessKey  *string         `json:"accessKey"`
	Number     string          `json:"number"`
	TotalValue decimal.Decimal `json:"totalValue"`
}
