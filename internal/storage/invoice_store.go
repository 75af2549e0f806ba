package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"nfe-gestor/internal/nfe"
)

// ErrDuplicateDocument indica que a NF-e já está no banco (chave de acesso
// ou hash do XML repetidos).
var ErrDuplicateDocument = errors.New("nfe já existe")

// ErrNotFound: id inexistente.
var ErrNotFound = errors.New("nfe não encontrada")

// ImportedFile descreve o arquivo de origem de uma importação.
type ImportedFile struct {
	Filename string
	Source   string // xml|zip|api
	Hash     string // SHA-256 do XML bruto, hex
	XMLRaw   []byte // documento já em UTF-8 (nfe.ToUTF8); a coluna é TEXT
	BlobURL  string // vazio quando o storage de blobs está desligado
}

// InvoiceRecord é a NF-e como está no banco.
type InvoiceRecord struct {
	ID        int64             `json:"id"`
	Header    nfe.InvoiceHeader `json:"header"`
	Filename  string            `json:"filename"`
	Source    string            `json:"source"`
	Hash      string            `json:"hash"`
	BlobURL   string            `json:"blobUrl,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Items     []nfe.LineItem    `json:"items,omitempty"`
	Taxes     []nfe.TaxEntry    `json:"taxes,omitempty"`
}

type InvoiceStore struct {
	db *sql.DB
}

func NewInvoiceStore(db *sql.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// SaveImport insere cabeçalho, XML bruto, itens e impostos numa única
// transação e devolve o id gerado.
func (s *InvoiceStore) SaveImport(ctx context.Context, parsed *nfe.ParsedInvoice, file ImportedFile) (invoiceID int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("erro iniciando transação: %w", err)
	}

	// Se der erro em qualquer parte, rollback.
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	invoiceID, err = insertInvoice(ctx, tx, &parsed.Header, file)
	if err != nil {
		return 0, err
	}

	if err = insertInvoiceXML(ctx, tx, invoiceID, file.XMLRaw); err != nil {
		return 0, err
	}

	if err = insertItems(ctx, tx, invoiceID, parsed.Items); err != nil {
		return 0, err
	}

	if err = insertTaxes(ctx, tx, invoiceID, parsed.Taxes); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("erro no commit da transação: %w", err)
	}

	slog.Info("NFe persistida com sucesso",
		"invoice_id", invoiceID,
		"chave", keyOrEmpty(parsed.Header.AccessKey),
		"itens", len(parsed.Items),
		"impostos", len(parsed.Taxes),
	)

	return invoiceID, nil
}

func insertInvoice(ctx context.Context, tx *sql.Tx, h *nfe.InvoiceHeader, file ImportedFile) (int64, error) {
	const q = `
INSERT INTO invoices (
	access_key,
	hash_integridade,
	number,
	series,
	issue_date,
	total_value,
	tax_base_value,
	total_tax_value,
	status,
	direction,
	source,
	filename,
	xml_url
) VALUES (
	$1,$2,$3,$4,$5,
	$6,$7,$8,
	$9,$10,$11,$12,$13
)
RETURNING id;
`
	var id int64
	err := tx.QueryRowContext(
		ctx,
		q,
		nullableKey(h.AccessKey),
		file.Hash,
		h.Number,
		h.Series,
		h.IssueDate, // "YYYY-MM-DD" cai direto em DATE
		h.TotalValue,
		h.TaxBaseValue,
		h.TotalTaxValue,
		h.Status,
		h.Direction,
		file.Source,
		nullableString(file.Filename),
		nullableString(file.BlobURL),
	).Scan(&id)

	if err != nil {
		if isUniqueViolation(err) {
			slog.Warn("NFe já existe no banco, ignorando reimportação",
				"chave", keyOrEmpty(h.AccessKey),
				"hash", file.Hash,
			)
			return 0, ErrDuplicateDocument
		}
		return 0, fmt.Errorf("erro inserindo invoice (chave=%s): %w", keyOrEmpty(h.AccessKey), err)
	}

	return id, nil
}

func insertInvoiceXML(ctx context.Context, tx *sql.Tx, invoiceID int64, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}

	const q = `INSERT INTO invoice_xml (invoice_id, xml_raw) VALUES ($1,$2);`
	if _, err := tx.ExecContext(ctx, q, invoiceID, string(raw)); err != nil {
		return fmt.Errorf("erro inserindo invoice_xml (invoice_id=%d): %w", invoiceID, err)
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, invoiceID int64, items []nfe.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	const q = `
INSERT INTO invoice_items (
	invoice_id,
	n_item,
	description,
	product_code,
	commercial_unit,
	cfop_code,
	quantity,
	unit_value,
	total_value,
	icms_rate
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
);
`
	for i, it := range items {
		_, err := tx.ExecContext(
			ctx,
			q,
			invoiceID,
			i+1,
			it.Description,
			it.ProductCode,
			it.CommercialUnit,
			it.CFOPCode,
			it.Quantity,
			it.UnitValue,
			it.TotalValue,
			it.ICMSRate,
		)
		if err != nil {
			return fmt.Errorf("erro inserindo item n_item=%d da invoice_id=%d: %w", i+1, invoiceID, err)
		}
	}
	return nil
}

func insertTaxes(ctx context.Context, tx *sql.Tx, invoiceID int64, taxes []nfe.TaxEntry) error {
	if len(taxes) == 0 {
		return nil
	}

	const q = `
INSERT INTO invoice_taxes (
	invoice_id,
	kind,
	tax_base,
	rate,
	value
) VALUES (
	$1,$2,$3,$4,$5
);
`
	for _, tax := range taxes {
		_, err := tx.ExecContext(ctx, q, invoiceID, string(tax.Kind), tax.TaxBase, tax.Rate, tax.Value)
		if err != nil {
			return fmt.Errorf("erro inserindo imposto %s da invoice_id=%d: %w", tax.Kind, invoiceID, err)
		}
	}
	return nil
}

// ========================= leitura =============================

const invoiceColumns = `
	id,
	access_key,
	hash_integridade,
	number,
	series,
	to_char(issue_date, 'YYYY-MM-DD'),
	total_value,
	tax_base_value,
	total_tax_value,
	status,
	direction,
	source,
	COALESCE(filename, ''),
	COALESCE(xml_url, ''),
	created_at,
	updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*InvoiceRecord, error) {
	var (
		rec       InvoiceRecord
		accessKey sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&accessKey,
		&rec.Hash,
		&rec.Header.Number,
		&rec.Header.Series,
		&rec.Header.IssueDate,
		&rec.Header.TotalValue,
		&rec.Header.TaxBaseValue,
		&rec.Header.TotalTaxValue,
		&rec.Header.Status,
		&rec.Header.Direction,
		&rec.Source,
		&rec.Filename,
		&rec.BlobURL,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if accessKey.Valid {
		k := accessKey.String
		rec.Header.AccessKey = &k
	}
	return &rec, nil
}

// Get devolve a NF-e com itens e impostos.
func (s *InvoiceStore) Get(ctx context.Context, id int64) (*InvoiceRecord, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1;`

	rec, err := scanInvoice(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("erro buscando invoice id=%d: %w", id, err)
	}

	if rec.Items, err = s.items(ctx, id); err != nil {
		return nil, err
	}
	if rec.Taxes, err = s.taxes(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *InvoiceStore) items(ctx context.Context, invoiceID int64) ([]nfe.LineItem, error) {
	const q = `
SELECT description, product_code, commercial_unit, cfop_code,
       quantity, unit_value, total_value, icms_rate
FROM invoice_items
WHERE invoice_id = $1
ORDER BY n_item;
`
	rows, err := s.db.QueryContext(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("erro buscando itens da invoice_id=%d: %w", invoiceID, err)
	}
	defer rows.Close()

	var items []nfe.LineItem
	for rows.Next() {
		var it nfe.LineItem
		if err := rows.Scan(
			&it.Description,
			&it.ProductCode,
			&it.CommercialUnit,
			&it.CFOPCode,
			&it.Quantity,
			&it.UnitValue,
			&it.TotalValue,
			&it.ICMSRate,
		); err != nil {
			return nil, fmt.Errorf("erro lendo item da invoice_id=%d: %w", invoiceID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *InvoiceStore) taxes(ctx context.Context, invoiceID int64) ([]nfe.TaxEntry, error) {
	const q = `
SELECT kind, tax_base, rate, value
FROM invoice_taxes
WHERE invoice_id = $1
ORDER BY id;
`
	rows, err := s.db.QueryContext(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("erro buscando impostos da invoice_id=%d: %w", invoiceID, err)
	}
	defer rows.Close()

	var taxes []nfe.TaxEntry
	for rows.Next() {
		var (
			tax  nfe.TaxEntry
			kind string
		)
		if err := rows.Scan(&kind, &tax.TaxBase, &tax.Rate, &tax.Value); err != nil {
			return nil, fmt.Errorf("erro lendo imposto da invoice_id=%d: %w", invoiceID, err)
		}
		tax.Kind = nfe.TaxKind(kind)
		taxes = append(taxes, tax)
	}
	return taxes, rows.Err()
}

// Delete remove a NF-e; itens, impostos e XML caem por cascade.
func (s *InvoiceStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("erro removendo invoice id=%d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("erro lendo linhas afetadas (id=%d): %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ========================= helpers =============================

func nullableString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func nullableKey(k *string) interface{} {
	if k == nil {
		return nil
	}
	return nullableString(*k)
}

func keyOrEmpty(k *string) string {
	if k == nil {
		return ""
	}
	return *k
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
