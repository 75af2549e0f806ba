package nfe

import (
	"strings"

	"github.com/beevik/etree"
)

// Locate encontra o elemento NFe dentro da árvore, qualquer que seja o
// envelope usado pelo emissor. Primeiro tenta os invólucros conhecidos
// (NFe solta, nfeProc/NFe, nfe:NFe); se nada casar, desce por todo filho
// cujo nome lembre uma nota fiscal. Devolve nil se não achar.
func Locate(n *etree.Element) *etree.Element {
	if n == nil {
		return nil
	}

	if proc := firstChild(n, envelopeKeys...); proc != nil {
		if inv := firstChild(proc, invoiceKeys...); inv != nil {
			return inv
		}
	}
	if inv := firstChild(n, invoiceKeys...); inv != nil {
		return inv
	}

	for _, ch := range n.ChildElements() {
		if !looksLikeInvoice(ch.FullTag()) {
			continue
		}
		if found := Locate(ch); found != nil {
			return found
		}
	}
	return nil
}

func looksLikeInvoice(tag string) bool {
	lower := strings.ToLower(tag)
	for _, marker := range searchMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
