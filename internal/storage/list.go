package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage limita o OFFSET (MaxPage*MaxPageSize cabe folgado em int64).
	MaxPage = 1_000_000
)

// sortColumns é a whitelist de ordenação exposta na API.
var sortColumns = map[string]string{
	"issue_date":  "issue_date",
	"number":      "number",
	"total_value": "total_value",
	"created_at":  "created_at",
}

// ListFilter: campos vazios não filtram.
type ListFilter struct {
	AccessKey  string
	Number     string
	Series     string
	Status     string
	Direction  string
	IssuedFrom string // YYYY-MM-DD, inclusivo
	IssuedTo   string // YYYY-MM-DD, inclusivo
	MinTotal   decimal.NullDecimal
	MaxTotal   decimal.NullDecimal

	SortBy   string // issue_date|number|total_value|created_at
	SortDesc bool

	Page     int // começa em 1
	PageSize int
}

type InvoicePage struct {
	Data       []InvoiceRecord `json:"data"`
	TotalItems int64           `json:"totalItems"`
	TotalPages int64           `json:"totalPages"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
}

// normalize aplica defaults de paginação e ordenação.
func (f ListFilter) normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		f.SortBy = "issue_date"
		f.SortDesc = true
	}
	return f
}

// limitOffset espera um filtro já normalizado.
func limitOffset(f ListFilter) string {
	offset := int64(f.Page-1) * int64(f.PageSize)
	return fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
}

// buildWhere monta o WHERE com placeholders posicionais ($1, $2...).
func buildWhere(f ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.AccessKey != "" {
		add("access_key = $%d", f.AccessKey)
	}
	if f.Number != "" {
		add("number = $%d", f.Number)
	}
	if f.Series != "" {
		add("series = $%d", f.Series)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Direction != "" {
		add("direction = $%d", f.Direction)
	}
	if f.IssuedFrom != "" {
		add("issue_date >= $%d", f.IssuedFrom)
	}
	if f.IssuedTo != "" {
		add("issue_date <= $%d", f.IssuedTo)
	}
	if f.MinTotal.Valid {
		add("total_value >= $%d", f.MinTotal.Decimal)
	}
	if f.MaxTotal.Valid {
		add("total_value <= $%d", f.MaxTotal.Decimal)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(f ListFilter) string {
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	// id desempata pra paginação ficar estável
	return fmt.Sprintf(" ORDER BY %s %s, id %s", sortColumns[f.SortBy], dir, dir)
}

// List devolve uma página de NF-e (sem itens/impostos) e o total filtrado.
func (s *InvoiceStore) List(ctx context.Context, filter ListFilter) (*InvoicePage, error) {
	f := filter.normalize()
	where, args := buildWhere(f)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("erro contando invoices: %w", err)
	}

	q := `SELECT ` + invoiceColumns + ` FROM invoices` + where + orderBy(f) + limitOffset(f)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("erro listando invoices: %w", err)
	}
	defer rows.Close()

	page := &InvoicePage{
		Data:       []InvoiceRecord{},
		TotalItems: total,
		TotalPages: (total + int64(f.PageSize) - 1) / int64(f.PageSize),
		Page:       f.Page,
		PageSize:   f.PageSize,
	}
	for rows.Next() {
		rec, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("erro lendo invoice: %w", err)
		}
		page.Data = append(page.Data, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro iterando invoices: %w", err)
	}

	return page, nil
}
