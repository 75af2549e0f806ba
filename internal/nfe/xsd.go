package nfe

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	xsdvalidate "github.com/form3tech-oss/go-xsd-validate"
)

var xsdInitOnce sync.Once
var xsdInitErr error

// XSDValidator valida o XML bruto contra o schema oficial (procNFe_v4.00.xsd
// e dependências). O schema é carregado uma vez; Validate pode ser chamado
// de várias goroutines.
type XSDValidator struct {
	path    string
	handler *xsdvalidate.XsdHandler
}

func NewXSDValidator(dir, mainFile string) (*XSDValidator, error) {
	xsdPath, err := ResolveXSDPath(dir, mainFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(xsdPath); err != nil {
		return nil, fmt.Errorf("XSD não encontrado em %s: %w", xsdPath, err)
	}

	xsdInitOnce.Do(func() {
		xsdInitErr = xsdvalidate.Init()
	})
	if xsdInitErr != nil {
		return nil, fmt.Errorf("erro inicializando validador XSD: %w", xsdInitErr)
	}

	handler, err := xsdvalidate.NewXsdHandlerUrl(xsdPath, xsdvalidate.ParsErrDefault)
	if err != nil {
		return nil, fmt.Errorf("erro carregando XSD %s: %w", xsdPath, err)
	}

	return &XSDValidator{path: xsdPath, handler: handler}, nil
}

func (v *XSDValidator) Validate(data []byte) error {
	if err := v.handler.ValidateMem(data, xsdvalidate.ValidErrDefault); err != nil {
		return fmt.Errorf("XML inválido segundo XSD (%s): %w", v.path, err)
	}
	return nil
}

func (v *XSDValidator) Close() {
	v.handler.Free()
}

// ResolveXSDPath junta dir e arquivo, a não ser que o arquivo já seja
// absoluto.
func ResolveXSDPath(dir, mainFile string) (string, error) {
	if mainFile == "" {
		return "", fmt.Errorf("NFE_XSD_MAIN não definido (ex: procNFe_v4.00.xsd)")
	}
	if filepath.IsAbs(mainFile) {
		return mainFile, nil
	}
	if dir == "" {
		return "", fmt.Errorf("NFE_XSD_DIR não definido")
	}
	return filepath.Join(dir, mainFile), nil
}
