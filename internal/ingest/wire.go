package ingest

import (
	"fmt"
	"log/slog"

	"nfe-gestor/internal/blob"
	"nfe-gestor/internal/config"
	"nfe-gestor/internal/nfe"
)

// FromConfig monta o Service com blob e XSD conforme a configuração.
// O cleanup devolvido libera o schema carregado.
func FromConfig(cfg *config.Config, store Store) (*Service, func(), error) {
	var opts []Option
	cleanup := func() {}

	if cfg.S3.Enabled() {
		s3, err := blob.NewS3Store(cfg.S3)
		if err != nil {
			return nil, cleanup, fmt.Errorf("erro configurando storage de XML: %w", err)
		}
		opts = append(opts, WithBlobStore(s3))
		slog.Info("upload de XML para S3 habilitado", "bucket", cfg.S3.Bucket)
	}

	if cfg.XSD.Enabled {
		v, err := nfe.NewXSDValidator(cfg.XSD.Dir, cfg.XSD.Main)
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, WithSchemaValidator(v))
		cleanup = v.Close
		slog.Info("validação XSD habilitada", "main", cfg.XSD.Main)
	}

	return NewService(store, cfg.MaxXMLBytes, opts...), cleanup, nil
}
