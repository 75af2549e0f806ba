package migrations

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A migrator roda em todo deploy (--auto), então nada pode falhar numa
// segunda execução.
func TestStatementsAreIdempotent(t *testing.T) {
	for i, stmt := range Statements {
		guarded := strings.Contains(stmt, "IF NOT EXISTS") ||
			strings.Contains(stmt, "ALTER TABLE IF EXISTS")
		assert.True(t, guarded, "migration %d", i+1)
		assert.NotContains(t, strings.ToUpper(stmt), "DROP ", "migration %d", i+1)
	}
}

// Colunas preenchidas a partir do XML não podem recusar o que o parser
// aceita: número com apelido longo, CFOP fora do padrão, alíquota derivada
// de base quase zero (vBC=0.01, vIPI=20000 → 2e8).
func TestXMLFedColumnsAreUnbounded(t *testing.T) {
	cols := map[string][]string{
		"invoices":      {"access_key", "number", "series", "filename", "total_value", "tax_base_value", "total_tax_value"},
		"invoice_items": {"description", "product_code", "commercial_unit", "cfop_code", "quantity", "unit_value", "total_value", "icms_rate"},
		"invoice_taxes": {"tax_base", "rate", "value"},
	}

	for table, names := range cols {
		create := createStatement(t, table)
		for _, col := range names {
			re := regexp.MustCompile(`(?m)^\s*` + col + `\s+(TEXT|NUMERIC)\b[^(]`)
			assert.Regexp(t, re, create, "%s.%s", table, col)
		}
	}

	for i, stmt := range Statements {
		assert.NotContains(t, stmt, "NUMERIC(", "migration %d", i+1)
		assert.NotContains(t, stmt, "VARCHAR(255)", "migration %d", i+1)
	}
}

func TestLegacyColumnsAreWidened(t *testing.T) {
	var alters []string
	for _, stmt := range Statements {
		if strings.Contains(stmt, "ALTER TABLE IF EXISTS") {
			alters = append(alters, stmt)
		}
	}
	all := strings.Join(alters, "\n")

	for _, want := range []string{
		"ALTER COLUMN number TYPE TEXT",
		"ALTER COLUMN product_code TYPE TEXT",
		"ALTER COLUMN cfop_code TYPE TEXT",
		"ALTER COLUMN rate TYPE NUMERIC",
	} {
		assert.Contains(t, all, want)
	}
}

func createStatement(t *testing.T, table string) string {
	t.Helper()
	for _, stmt := range Statements {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			return stmt
		}
	}
	t.Fatalf("tabela %s não criada", table)
	return ""
}

func TestChildTablesCascade(t *testing.T) {
	for _, table := range []string{"invoice_xml", "invoice_items", "invoice_taxes"} {
		var found bool
		for _, stmt := range Statements {
			if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				found = true
				assert.Contains(t, stmt, "REFERENCES invoices(id)")
				assert.Contains(t, stmt, "ON DELETE CASCADE")
			}
		}
		assert.True(t, found, "tabela %s não criada", table)
	}
}
