package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nfe-gestor/internal/blob"
	"nfe-gestor/internal/metrics"
	"nfe-gestor/internal/nfe"
	"nfe-gestor/internal/storage"
)

// Origens de importação (label "source" nas métricas).
const (
	SourceXML = "xml"
	SourceZIP = "zip"
	SourceAPI = "api"
)

// ErrTooLarge: o XML passou do limite configurado (NFE_GESTOR_MAX_XML_BYTES).
var ErrTooLarge = errors.New("XML excede o tamanho máximo permitido")

// SchemaError: o XML não passou na validação XSD.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return e.Err.Error() }
func (e *SchemaError) Unwrap() error { return e.Err }

type Store interface {
	SaveImport(ctx context.Context, parsed *nfe.ParsedInvoice, file storage.ImportedFile) (int64, error)
}

type BlobStore interface {
	PutXML(ctx context.Context, key string, data []byte) (string, error)
}

type SchemaValidator interface {
	Validate(data []byte) error
}

// Result resume uma importação bem sucedida.
type Result struct {
	InvoiceID int64   `json:"id"`
	AccessKey *string `json:"accessKey"`
	Number    string  `json:"number"`
	IssueDate string  `json:"issueDate"`
	Hash      string  `json:"hash"`
	BlobURL   string  `json:"blobUrl,omitempty"`
	Items     int     `json:"items"`
	Taxes     int     `json:"taxes"`
}

type Service struct {
	store    Store
	blob     BlobStore
	schema   SchemaValidator
	maxBytes int64
	now      func() time.Time
}

type Option func(*Service)

// WithBlobStore liga o upload do XML bruto antes de persistir.
func WithBlobStore(b BlobStore) Option {
	return func(s *Service) { s.blob = b }
}

// WithSchemaValidator liga a validação XSD antes do parse.
func WithSchemaValidator(v SchemaValidator) Option {
	return func(s *Service) { s.schema = v }
}

func NewService(store Store, maxBytes int64, opts ...Option) *Service {
	s := &Service{
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import valida, parseia e persiste uma NF-e. Erros possíveis:
// ErrTooLarge, *SchemaError, nfe.ErrInvoiceNotFound, *nfe.ProcessingError,
// storage.ErrDuplicateDocument ou falha de infraestrutura (blob/banco).
func (s *Service) Import(ctx context.Context, filename string, data []byte, source string) (res *Result, err error) {
	start := time.Now()
	status := metrics.StatusSuccess

	defer func() {
		metrics.ObserveImport(status, source, time.Since(start))
	}()

	if s.tooLarge(data) {
		status = metrics.StatusTooLarge
		slog.Warn("XML acima do limite, recusando",
			"filename", filename,
			"bytes", len(data),
			"max_bytes", s.maxBytes,
		)
		return nil, ErrTooLarge
	}

	if s.schema != nil {
		if err := s.schema.Validate(data); err != nil {
			status = metrics.StatusXSDError
			slog.Error("XML reprovado na validação XSD", "filename", filename, "err", err)
			return nil, &SchemaError{Err: err}
		}
	}

	parsed, err := nfe.Parse(data)
	if err != nil {
		if errors.Is(err, nfe.ErrInvoiceNotFound) {
			status = metrics.StatusNotInvoice
		} else {
			status = metrics.StatusParseError
		}
		slog.Error("erro ao parsear XML", "filename", filename, "source", source, "err", err)
		return nil, err
	}

	// O banco guarda texto UTF-8; hash e blob ficam com os bytes originais.
	text, err := nfe.ToUTF8(data)
	if err != nil {
		status = metrics.StatusParseError
		slog.Error("erro convertendo XML para UTF-8", "filename", filename, "err", err)
		return nil, &nfe.ProcessingError{Err: err}
	}

	file := storage.ImportedFile{
		Filename: filename,
		Source:   source,
		Hash:     hashXML(data),
		XMLRaw:   text,
	}

	if s.blob != nil {
		url, err := s.blob.PutXML(ctx, blob.ObjectKey(s.now()), data)
		if err != nil {
			status = metrics.StatusBlobError
			return nil, fmt.Errorf("erro guardando XML no storage: %w", err)
		}
		file.BlobURL = url
	}

	id, err := s.store.SaveImport(ctx, parsed, file)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateDocument) {
			status = metrics.StatusDuplicate
			return nil, err
		}
		status = metrics.StatusDBError
		return nil, fmt.Errorf("erro salvando NFe: %w", err)
	}

	slog.Info("NFe importada",
		"invoice_id", id,
		"filename", filename,
		"source", source,
		"numero", parsed.Header.Number,
		"emissao", parsed.Header.IssueDate,
		"valor_total", parsed.Header.TotalValue.String(),
	)

	return &Result{
		InvoiceID: id,
		AccessKey: parsed.Header.AccessKey,
		Number:    parsed.Header.Number,
		IssueDate: parsed.Header.IssueDate,
		Hash:      file.Hash,
		BlobURL:   file.BlobURL,
		Items:     len(parsed.Items),
		Taxes:     len(parsed.Taxes),
	}, nil
}

// Validate diz se o XML seria aceito pelo parser. Não consulta o banco.
func (s *Service) Validate(data []byte) bool {
	if s.tooLarge(data) {
		return false
	}
	return nfe.Validate(data)
}

// Preview devolve chave, número e valor total sem persistir nada.
func (s *Service) Preview(data []byte) (nfe.BasicInfo, error) {
	if s.tooLarge(data) {
		return nfe.BasicInfo{}, ErrTooLarge
	}
	return nfe.ExtractBasicInfo(data), nil
}

func (s *Service) tooLarge(data []byte) bool {
	return s.maxBytes > 0 && int64(len(data)) > s.maxBytes
}

func hashXML(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
