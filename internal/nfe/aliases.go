package nfe

// Apelidos aceitos para cada campo, na ordem de preferência. O primeiro
// nome é sempre o do leiaute oficial; os demais aparecem em exportações de
// ERPs e em versões antigas do schema.
var (
	// localização do documento
	invoiceKeys   = []string{"NFe", "nfe:NFe"}
	envelopeKeys  = []string{"nfeProc", "nfe:nfeProc"}
	searchMarkers = []string{"nfe", "notafiscal"}

	// cabeçalho
	technicalInfoKeys  = []string{"infNFe", "InfNFe"}
	accessKeyAttrs     = []string{"Id", "id"}
	accessKeyPrefix    = "NFe"
	identificationKeys = []string{"ide", "identificacao"}
	numberKeys         = []string{"nNF", "numero"}
	seriesKeys         = []string{"serie", "series"}
	issueDateKeys      = []string{"dhEmi", "dEmi", "dataEmissao"}

	// totais
	totalsKeys       = []string{"total", "totais"}
	icmsTotalsKeys   = []string{"ICMSTot", "icmsTot"}
	totalValueKeys   = []string{"vNF", "valorTotal"}
	taxBaseValueKeys = []string{"vBC", "baseCalculo"}
	icmsValueKeys    = []string{"vICMS", "valorICMS"}
	ipiValueKeys     = []string{"vIPI", "valorIPI"}
	pisValueKeys     = []string{"vPIS", "valorPIS"}
	cofinsValueKeys  = []string{"vCOFINS", "valorCOFINS"}

	// itens
	itemListKeys       = []string{"det", "item", "itens"}
	nestedItemKeys     = []string{"det", "item"}
	productKeys        = []string{"prod", "produto", "product"}
	descriptionKeys    = []string{"xProd", "descricao"}
	productCodeKeys    = []string{"NCM", "ncm"}
	commercialUnitKeys = []string{"uCom", "unidade"}
	cfopKeys           = []string{"CFOP", "cfop"}
	quantityKeys       = []string{"qCom", "quantidade"}
	unitValueKeys      = []string{"vUnCom", "valorUnitario"}
	itemTotalKeys      = []string{"vProd", "valorTotal"}
	itemTaxKeys        = []string{"imposto", "impostos"}
	icmsGroupKeys      = []string{"ICMS", "icms"}
	icmsRateKeys       = []string{"pICMS"}
	icmsRateAliasKeys  = []string{"aliquotaICMS"}
)
