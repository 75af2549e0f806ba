package nfe

import (
	"errors"
	"fmt"
)

// ErrInvoiceNotFound: o XML é válido mas não tem uma NF-e reconhecível.
var ErrInvoiceNotFound = errors.New("NFe não encontrada no XML")

// ProcessingError embrulha falhas de leitura do XML (sintaxe, charset,
// estrutura inesperada) mantendo a mensagem original.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("erro ao processar XML: %v", e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Parse lê o XML, localiza a NF-e e extrai cabeçalho, itens e impostos.
// Devolve ErrInvoiceNotFound ou *ProcessingError; ausência de campo não é
// erro.
func Parse(data []byte) (parsed *ParsedInvoice, err error) {
	defer func() {
		if r := recover(); r != nil {
			parsed = nil
			err = &ProcessingError{Err: fmt.Errorf("%v", r)}
		}
	}()

	doc, err := readDocument(data)
	if err != nil {
		return nil, &ProcessingError{Err: err}
	}

	inv := Locate(&doc.Element)
	if inv == nil {
		return nil, ErrInvoiceNotFound
	}

	return &ParsedInvoice{
		Header: ExtractHeader(inv),
		Items:  ExtractItems(inv),
		Taxes:  ExtractTaxes(inv),
	}, nil
}

// Validate só diz se dá pra importar: lê e localiza, sem extrair nada.
func Validate(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	doc, err := readDocument(data)
	if err != nil {
		return false
	}
	return Locate(&doc.Element) != nil
}

// ExtractBasicInfo lê só chave, número e valor total, para pré-visualização.
// Em qualquer falha devolve o valor zero.
func ExtractBasicInfo(data []byte) (info BasicInfo) {
	defer func() {
		if recover() != nil {
			info = BasicInfo{}
		}
	}()

	doc, err := readDocument(data)
	if err != nil {
		return BasicInfo{}
	}
	inv := Locate(&doc.Element)
	if inv == nil {
		return BasicInfo{}
	}

	tech := technicalInfo(inv)
	return BasicInfo{
		AccessKey:  accessKey(tech),
		Number:     firstText(firstChild(tech, identificationKeys...), numberKeys...),
		TotalValue: numberAt(icmsTotals(tech), totalValueKeys...),
	}
}
