package nfe

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readDocument monta a árvore genérica do XML. Emissores antigos ainda
// mandam ISO-8859-1 / Windows-1252 no prólogo, então o charset é resolvido
// aqui.
func readDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(bytes.TrimPrefix(data, utf8BOM)); err != nil {
		return nil, err
	}
	return doc, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if isUTF8Label(label) {
		return input, nil
	}
	cm := legacyCharmap(label)
	if cm == nil {
		return nil, fmt.Errorf("charset não suportado: %s", label)
	}
	return cm.NewDecoder().Reader(input), nil
}

func isUTF8Label(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "":
		return true
	}
	return false
}

func legacyCharmap(label string) *charmap.Charmap {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	}
	return nil
}

// O prólogo é sempre ASCII, então os índices do casamento continuam
// válidos depois da decodificação.
var encodingDecl = regexp.MustCompile(`^\s*<\?xml[^>]*?\bencoding\s*=\s*["']([^"']*)["']`)

// ToUTF8 devolve o documento em UTF-8, sem BOM, com o prólogo declarando
// UTF-8. Documentos já em UTF-8 voltam sem cópia.
func ToUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	m := encodingDecl.FindSubmatchIndex(data)
	if m == nil {
		return data, nil
	}
	label := string(data[m[2]:m[3]])
	if isUTF8Label(label) {
		return data, nil
	}
	cm := legacyCharmap(label)
	if cm == nil {
		return nil, fmt.Errorf("charset não suportado: %s", label)
	}

	decoded, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("convertendo %s para UTF-8: %w", label, err)
	}

	out := make([]byte, 0, len(decoded)+len("UTF-8"))
	out = append(out, decoded[:m[2]]...)
	out = append(out, "UTF-8"...)
	out = append(out, decoded[m[3]:]...)
	return out, nil
}

// ----------------------------------------------------------------------------
// Busca por nome com lista de apelidos
// ----------------------------------------------------------------------------

// matchTag compara o nome do elemento com a chave. Chave com prefixo
// ("nfe:NFe") exige o mesmo prefixo; sem prefixo, compara só o nome local,
// então <nfe:ide> e <ide> casam com "ide".
func matchTag(el *etree.Element, key string) bool {
	if strings.Contains(key, ":") {
		return el.FullTag() == key
	}
	return el.Tag == key
}

// firstChild devolve o primeiro filho que casa com algum apelido, na ordem
// dos apelidos.
func firstChild(el *etree.Element, aliases ...string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, key := range aliases {
		for _, ch := range el.ChildElements() {
			if matchTag(ch, key) {
				return ch
			}
		}
	}
	return nil
}

// children devolve todos os filhos com o primeiro apelido que tiver
// ocorrência, na ordem do documento.
func children(el *etree.Element, aliases ...string) []*etree.Element {
	if el == nil {
		return nil
	}
	for _, key := range aliases {
		var out []*etree.Element
		for _, ch := range el.ChildElements() {
			if matchTag(ch, key) {
				out = append(out, ch)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// firstText devolve o primeiro texto não vazio entre os apelidos.
func firstText(el *etree.Element, aliases ...string) string {
	if el == nil {
		return ""
	}
	for _, key := range aliases {
		for _, ch := range el.ChildElements() {
			if !matchTag(ch, key) {
				continue
			}
			if v := strings.TrimSpace(ch.Text()); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstAttr é o equivalente de firstText para atributos (Id, versao).
func firstAttr(el *etree.Element, aliases ...string) string {
	if el == nil {
		return ""
	}
	for _, key := range aliases {
		for _, a := range el.Attr {
			if a.Key == key {
				if v := strings.TrimSpace(a.Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}
