package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// Statements são as migrations na ordem de execução. Todas idempotentes.
var Statements = []string{
	// invoices
	`
CREATE TABLE IF NOT EXISTS invoices (
    id BIGSERIAL PRIMARY KEY,
    access_key TEXT,
    hash_integridade CHAR(64) NOT NULL,

    number TEXT NOT NULL DEFAULT '',
    series TEXT NOT NULL DEFAULT '',
    issue_date DATE NOT NULL,

    total_value NUMERIC NOT NULL DEFAULT 0,
    tax_base_value NUMERIC NOT NULL DEFAULT 0,
    total_tax_value NUMERIC NOT NULL DEFAULT 0,

    status VARCHAR(20) NOT NULL,
    direction VARCHAR(20) NOT NULL,
    source VARCHAR(10) NOT NULL,
    filename TEXT,
    xml_url TEXT,

    created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    updated_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),

    CONSTRAINT uk_invoices_access_key UNIQUE (access_key),
    CONSTRAINT uk_invoices_hash_integridade UNIQUE (hash_integridade)
);
`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_issue_date ON invoices (issue_date);`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_series_number ON invoices (series, number);`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status);`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_created_at ON invoices (created_at);`,

	// invoice_xml
	`
CREATE TABLE IF NOT EXISTS invoice_xml (
    invoice_id BIGINT PRIMARY KEY,
    xml_raw TEXT NOT NULL,

    created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),

    CONSTRAINT fk_invoice_xml_invoice
        FOREIGN KEY (invoice_id) REFERENCES invoices(id)
        ON DELETE CASCADE
);
`,

	// invoice_items
	`
CREATE TABLE IF NOT EXISTS invoice_items (
    id BIGSERIAL PRIMARY KEY,
    invoice_id BIGINT NOT NULL,
    n_item INTEGER NOT NULL,

    description TEXT NOT NULL DEFAULT '',
    product_code TEXT NOT NULL DEFAULT '',
    commercial_unit TEXT NOT NULL DEFAULT '',
    cfop_code TEXT NOT NULL DEFAULT '',

    quantity NUMERIC NOT NULL,
    unit_value NUMERIC NOT NULL,
    total_value NUMERIC NOT NULL,
    icms_rate NUMERIC NOT NULL DEFAULT 0,

    created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),

    CONSTRAINT uk_invoice_item UNIQUE (invoice_id, n_item),
    CONSTRAINT fk_invoice_item_invoice
        FOREIGN KEY (invoice_id) REFERENCES invoices(id)
        ON DELETE CASCADE
);
`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice ON invoice_items (invoice_id);`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_items_product_code ON invoice_items (product_code);`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_items_cfop ON invoice_items (cfop_code);`,

	// invoice_taxes
	`
CREATE TABLE IF NOT EXISTS invoice_taxes (
    id BIGSERIAL PRIMARY KEY,
    invoice_id BIGINT NOT NULL,

    kind VARCHAR(10) NOT NULL,
    tax_base NUMERIC NOT NULL,
    rate NUMERIC NOT NULL,
    value NUMERIC NOT NULL,

    created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),

    CONSTRAINT ck_invoice_taxes_kind CHECK (kind IN ('ICMS', 'IPI', 'PIS', 'COFINS')),
    CONSTRAINT ck_invoice_taxes_value CHECK (value > 0),
    CONSTRAINT uk_invoice_tax UNIQUE (invoice_id, kind),
    CONSTRAINT fk_invoice_tax_invoice
        FOREIGN KEY (invoice_id) REFERENCES invoices(id)
        ON DELETE CASCADE
);
`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_taxes_invoice ON invoice_taxes (invoice_id);`,

	// Bancos criados com as colunas limitadas: o conteúdo do XML não tem
	// tamanho nem escala garantidos. Reexecutar é inofensivo.
	`
ALTER TABLE IF EXISTS invoices
    ALTER COLUMN access_key TYPE TEXT,
    ALTER COLUMN number TYPE TEXT,
    ALTER COLUMN series TYPE TEXT,
    ALTER COLUMN filename TYPE TEXT,
    ALTER COLUMN total_value TYPE NUMERIC,
    ALTER COLUMN tax_base_value TYPE NUMERIC,
    ALTER COLUMN total_tax_value TYPE NUMERIC;
`,
	`
ALTER TABLE IF EXISTS invoice_items
    ALTER COLUMN description TYPE TEXT,
    ALTER COLUMN product_code TYPE TEXT,
    ALTER COLUMN commercial_unit TYPE TEXT,
    ALTER COLUMN cfop_code TYPE TEXT,
    ALTER COLUMN quantity TYPE NUMERIC,
    ALTER COLUMN unit_value TYPE NUMERIC,
    ALTER COLUMN total_value TYPE NUMERIC,
    ALTER COLUMN icms_rate TYPE NUMERIC;
`,
	`
ALTER TABLE IF EXISTS invoice_taxes
    ALTER COLUMN tax_base TYPE NUMERIC,
    ALTER COLUMN rate TYPE NUMERIC,
    ALTER COLUMN value TYPE NUMERIC;
`,
}

// Run executa todas as migrations necessárias no banco da aplicação.
func Run(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("erro executando migration %d: %w", i+1, err)
		}
	}
	return nil
}
