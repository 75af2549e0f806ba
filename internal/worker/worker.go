package worker

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nfe-gestor/internal/config"
	"nfe-gestor/internal/ingest"
	"nfe-gestor/internal/queue"
	"nfe-gestor/internal/storage"
)

// Importer é o serviço de importação (ingest.Service).
type Importer interface {
	Import(ctx context.Context, filename string, data []byte, source string) (*ingest.Result, error)
}

// Consumer entrega jobs da fila. Sem consumer o worker faz polling em processing.
type Consumer interface {
	ConsumeJobs(ctx context.Context, handler queue.Handler) error
}

type Worker struct {
	cfg      *config.Config
	importer Importer
	consumer Consumer
	interval time.Duration
}

func New(cfg *config.Config, importer Importer, consumer Consumer) *Worker {
	if consumer != nil {
		slog.Info("fila habilitada no worker", "queue", cfg.Queue.QueueName)
	} else {
		slog.Info("fila desabilitada no worker (NFE_GESTOR_QUEUE_BACKEND != rabbitmq)")
	}

	return &Worker{
		cfg:      cfg,
		importer: importer,
		consumer: consumer,
		interval: 2 * time.Second,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for _, d := range w.cfg.PipelineDirs() {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}

	if w.consumer != nil {
		slog.Info("worker rodando em modo fila (RabbitMQ)",
			"processing_dir", w.cfg.ProcessingDir,
		)
		return w.consumer.ConsumeJobs(ctx, w.handleJob)
	}

	slog.Info("worker rodando em modo polling de diretório",
		"processing_dir", w.cfg.ProcessingDir,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("contexto cancelado, encerrando worker")
			return ctx.Err()
		case <-ticker.C:
			w.processProcessingFolder(ctx)
		}
	}
}

// ----------------------------------------------------------------------
// MODO FILA
// ----------------------------------------------------------------------

func (w *Worker) handleJob(ctx context.Context, job queue.Job) error {
	info, err := os.Stat(job.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("arquivo do job não existe mais, ignorando",
				"path", job.Path,
				"filename", job.Filename,
				"kind", job.Kind,
			)
			return nil
		}
		// erro transitório de FS: devolve pra fila tentar de novo
		return fmt.Errorf("erro ao stat arquivo do job %s: %w", job.Path, err)
	}
	if info.IsDir() {
		return nil
	}

	switch strings.ToLower(job.Kind) {
	case queue.KindXML:
		w.processXML(ctx, job.Path, job.Filename)
	case queue.KindZIP:
		w.processZIP(ctx, job.Path, job.Filename)
	default:
		slog.Warn("tipo de job desconhecido",
			"path", job.Path,
			"filename", job.Filename,
			"kind", job.Kind,
		)
	}

	return nil
}

// ----------------------------------------------------------------------
// MODO POLLING
// ----------------------------------------------------------------------

func (w *Worker) processProcessingFolder(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.ProcessingDir)
	if err != nil {
		slog.Error("erro lendo diretório processing", "dir", w.cfg.ProcessingDir, "err", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		srcPath := filepath.Join(w.cfg.ProcessingDir, entry.Name())
		w.handleProcessingFile(ctx, srcPath)
	}
}

func (w *Worker) handleProcessingFile(ctx context.Context, srcPath string) {
	filename := filepath.Base(srcPath)

	switch queue.KindFor(filename) {
	case queue.KindXML:
		w.processXML(ctx, srcPath, filename)
	case queue.KindZIP:
		w.processZIP(ctx, srcPath, filename)
	default:
		slog.Info("extensão não tratada em processing; movendo para ignored",
			"path", srcPath,
			"ext", filepath.Ext(filename),
		)
		w.moveTo(w.cfg.IgnoredDir, srcPath, filename)
	}
}

// ----------------------------------------------------------------------
// Processamento
// ----------------------------------------------------------------------

func (w *Worker) processXML(ctx context.Context, srcPath, filename string) {
	data, err := w.readBounded(srcPath)
	if err != nil {
		slog.Error("erro lendo XML", "path", srcPath, "err", err)
		w.moveTo(w.cfg.FailedDir, srcPath, filename)
		return
	}

	_, err = w.importer.Import(ctx, filename, data, ingest.SourceXML)
	w.moveTo(w.destinationFor(err), srcPath, filename)
}

// zipSummary conta o desfecho de cada XML de um lote.
type zipSummary struct {
	xmlTotal   int
	success    int
	duplicates int
	failed     int
}

func (w *Worker) processZIP(ctx context.Context, srcPath, filename string) zipSummary {
	var sum zipSummary

	slog.Info("ZIP identificado, iniciando extração e processamento",
		"path", srcPath,
	)

	baseName := strings.TrimSuffix(filename, filepath.Ext(filename))

	workDir := filepath.Join(w.cfg.TmpDir, baseName)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		slog.Error("erro criando diretório temporário para ZIP",
			"zip", srcPath,
			"work_dir", workDir,
			"err", err,
		)
		w.moveTo(w.cfg.FailedDir, srcPath, filename)
		return sum
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			slog.Warn("falha ao remover diretório temporário",
				"work_dir", workDir,
				"err", err,
			)
		}
	}()

	zr, err := zip.OpenReader(srcPath)
	if err != nil {
		slog.Error("erro abrindo ZIP",
			"path", srcPath,
			"err", err,
		)
		w.moveTo(w.cfg.FailedDir, srcPath, filename)
		return sum
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := f.Name
		if queue.KindFor(name) != queue.KindXML {
			slog.Info("arquivo dentro do ZIP ignorado (não é XML)",
				"zip", srcPath,
				"inner_name", name,
			)
			continue
		}

		sum.xmlTotal++

		innerFileName := filepath.Base(name)
		innerPath := filepath.Join(workDir, innerFileName)

		if err := w.extract(f, innerPath); err != nil {
			slog.Error("erro extraindo XML do ZIP",
				"zip", srcPath,
				"inner_name", name,
				"err", err,
			)
			sum.failed++
			continue
		}

		data, err := w.readBounded(innerPath)
		if err != nil {
			slog.Error("erro lendo XML extraído do ZIP",
				"zip", srcPath,
				"inner_name", name,
				"err", err,
			)
			sum.failed++
			w.moveTo(w.cfg.FailedDir, innerPath, innerFileName)
			continue
		}

		_, err = w.importer.Import(ctx, innerFileName, data, ingest.SourceZIP)
		switch {
		case err == nil:
			sum.success++
		case errors.Is(err, storage.ErrDuplicateDocument):
			sum.duplicates++
		default:
			sum.failed++
		}
		w.moveTo(w.destinationFor(err), innerPath, innerFileName)
	}

	// fecha antes de remover (Windows não deixa apagar arquivo aberto)
	_ = zr.Close()

	if sum.xmlTotal == 0 {
		slog.Warn("ZIP sem nenhum XML", "path", srcPath)
		w.moveTo(w.cfg.IgnoredDir, srcPath, filename)
	} else if err := os.Remove(srcPath); err != nil {
		slog.Warn("falha ao remover ZIP original após processamento",
			"path", srcPath,
			"err", err,
		)
	}

	slog.Info("processamento de ZIP concluído",
		"zip", srcPath,
		"xml_total", sum.xmlTotal,
		"success", sum.success,
		"duplicatas", sum.duplicates,
		"failed", sum.failed,
	)
	return sum
}

// extract copia uma entrada do ZIP para dest, sem passar do limite de
// tamanho (+1 byte, pra readBounded perceber o estouro).
func (w *Worker) extract(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	var r io.Reader = rc
	if w.cfg.MaxXMLBytes > 0 {
		r = io.LimitReader(rc, w.cfg.MaxXMLBytes+1)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// readBounded lê no máximo limite+1 bytes; o excesso é recusado pelo
// Import com ingest.ErrTooLarge.
func (w *Worker) readBounded(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if w.cfg.MaxXMLBytes > 0 {
		r = io.LimitReader(f, w.cfg.MaxXMLBytes+1)
	}
	return io.ReadAll(r)
}

// destinationFor decide a pasta final de um XML a partir do resultado da
// importação.
func (w *Worker) destinationFor(err error) string {
	switch {
	case err == nil:
		return w.cfg.ProcessedDir
	case errors.Is(err, storage.ErrDuplicateDocument):
		return w.cfg.IgnoredDir
	default:
		return w.cfg.FailedDir
	}
}

func (w *Worker) moveTo(dir, srcPath, filename string) {
	destPath := filepath.Join(dir, filename)
	if err := os.Rename(srcPath, destPath); err != nil {
		slog.Error("erro movendo arquivo",
			"src", srcPath,
			"dest", destPath,
			"err", err,
		)
		return
	}
	slog.Info("arquivo movido",
		"src", srcPath,
		"dest", destPath,
	)
}
