package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nfe-gestor/internal/auth"
	"nfe-gestor/internal/ingest"
	"nfe-gestor/internal/nfe"
	"nfe-gestor/internal/storage"
)

// Importer é o ingest.Service visto pela API.
type Importer interface {
	Import(ctx context.Context, filename string, data []byte, source string) (*ingest.Result, error)
	Validate(data []byte) bool
	Preview(data []byte) (nfe.BasicInfo, error)
}

// Invoices é a parte de leitura/remoção do storage.InvoiceStore.
type Invoices interface {
	Get(ctx context.Context, id int64) (*storage.InvoiceRecord, error)
	List(ctx context.Context, filter storage.ListFilter) (*storage.InvoicePage, error)
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	importer Importer
	invoices Invoices
	maxBytes int64
}

// NewRouter monta o gin.Engine com todas as rotas de /api/v1.
func NewRouter(importer Importer, invoices Invoices, jwtSecret []byte, maxBytes int64) *gin.Engine {
	h := &Handler{
		importer: importer,
		invoices: invoices,
		maxBytes: maxBytes,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1", AuthMiddleware(jwtSecret))

	inv := v1.Group("/invoices")
	inv.POST("/import", RequireRole(auth.RoleAccountant), h.importInvoice)
	inv.POST("/validate", RequireRole(auth.RoleViewer), h.validateInvoice)
	inv.POST("/preview", RequireRole(auth.RoleViewer), h.previewInvoice)
	inv.GET("", RequireRole(auth.RoleViewer), h.listInvoices)
	inv.GET("/:id", RequireRole(auth.RoleViewer), h.getInvoice)
	inv.DELETE("/:id", RequireRole(auth.RoleAdmin), h.deleteInvoice)

	return r
}
