package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"nfe-gestor/internal/ingest"
	"nfe-gestor/internal/nfe"
	"nfe-gestor/internal/storage"
)

// Códigos de erro devolvidos no campo "code".
const (
	codeInvoiceNotFound = "InvoiceNotFound"
	codeXMLProcessing   = "XmlProcessingFailed"
	codeXMLTooLarge     = "XmlTooLarge"
	codeSchemaInvalid   = "SchemaInvalid"
	codeDuplicate       = "DuplicateInvoice"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func respondCode(c *gin.Context, status int, code string, err error) {
	c.JSON(status, errorResponse{Error: err.Error(), Code: code})
}

// importError traduz os erros do ingest para HTTP.
func importError(c *gin.Context, err error) {
	var (
		perr *nfe.ProcessingError
		serr *ingest.SchemaError
	)
	switch {
	case errors.Is(err, nfe.ErrInvoiceNotFound):
		respondCode(c, http.StatusBadRequest, codeInvoiceNotFound, err)
	case errors.As(err, &perr):
		respondCode(c, http.StatusBadRequest, codeXMLProcessing, err)
	case errors.As(err, &serr):
		respondCode(c, http.StatusBadRequest, codeSchemaInvalid, err)
	case errors.Is(err, ingest.ErrTooLarge):
		respondCode(c, http.StatusBadRequest, codeXMLTooLarge, err)
	case errors.Is(err, storage.ErrDuplicateDocument):
		respondCode(c, http.StatusConflict, codeDuplicate, err)
	default:
		slog.Error("erro importando NFe via API", "err", err)
		respondError(c, http.StatusInternalServerError, "erro interno ao importar NFe")
	}
}

// readUpload lê o campo multipart "file" respeitando o limite (+1 byte pro
// ingest detectar o estouro).
func (h *Handler) readUpload(c *gin.Context) (string, []byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "arquivo XML não enviado (campo 'file')")
		return "", nil, false
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "não foi possível abrir o arquivo enviado")
		return "", nil, false
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxBytes > 0 {
		r = io.LimitReader(f, h.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		respondError(c, http.StatusBadRequest, "erro lendo o arquivo enviado")
		return "", nil, false
	}
	return fh.Filename, data, true
}

func (h *Handler) importInvoice(c *gin.Context) {
	filename, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.importer.Import(c.Request.Context(), filename, data, ingest.SourceAPI)
	if err != nil {
		importError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) validateInvoice(c *gin.Context) {
	_, data, ok := h.readUpload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": h.importer.Validate(data)})
}

func (h *Handler) previewInvoice(c *gin.Context) {
	_, data, ok := h.readUpload(c)
	if !ok {
		return
	}
	info, err := h.importer.Preview(data)
	if err != nil {
		importError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) listInvoices(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		slog.Error("erro listando NFe", "err", err)
		respondError(c, http.StatusInternalServerError, "erro interno ao listar NFe")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("erro buscando NFe", "id", id, "err", err)
		respondError(c, http.StatusInternalServerError, "erro interno ao buscar NFe")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) deleteInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.invoices.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("erro removendo NFe", "id", id, "err", err)
		respondError(c, http.StatusInternalServerError, "erro interno ao remover NFe")
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "id inválido")
		return 0, false
	}
	return id, true
}

// parseListFilter lê os query params de GET /invoices.
func parseListFilter(c *gin.Context) (storage.ListFilter, error) {
	f := storage.ListFilter{
		AccessKey: strings.TrimSpace(c.Query("access_key")),
		Number:    strings.TrimSpace(c.Query("number")),
		Series:    strings.TrimSpace(c.Query("series")),
		Status:    strings.TrimSpace(c.Query("status")),
		Direction: strings.TrimSpace(c.Query("direction")),
		SortBy:    c.Query("sort_by"),
		SortDesc:  strings.EqualFold(c.Query("order"), "desc"),
	}

	var err error
	if f.Page, err = queryInt(c, "page"); err != nil {
		return f, err
	}
	if f.PageSize, err = queryInt(c, "page_size"); err != nil {
		return f, err
	}
	if f.IssuedFrom, err = queryDate(c, "issued_from"); err != nil {
		return f, err
	}
	if f.IssuedTo, err = queryDate(c, "issued_to"); err != nil {
		return f, err
	}
	if f.MinTotal, err = queryDecimal(c, "min_total"); err != nil {
		return f, err
	}
	if f.MaxTotal, err = queryDecimal(c, "max_total"); err != nil {
		return f, err
	}
	return f, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parâmetro %s inválido: %q", key, v)
	}
	return n, nil
}

func queryDate(c *gin.Context, key string) (string, error) {
	v := c.Query(key)
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return "", fmt.Errorf("parâmetro %s inválido (esperado YYYY-MM-DD): %q", key, v)
	}
	return v, nil
}

func queryDecimal(c *gin.Context, key string) (decimal.NullDecimal, error) {
	v := c.Query(key)
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parâmetro %s inválido: %q", key, v)
	}
	return decimal.NewNullDecimal(d), nil
}
