package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"nfe-gestor/internal/config"
	"nfe-gestor/internal/metrics"
	"nfe-gestor/internal/nfe"
	"nfe-gestor/internal/queue"
)

const publishTimeout = 5 * time.Second

// Publisher recebe os jobs quando o pipeline usa fila. Sem publisher o
// worker descobre os arquivos por polling.
type Publisher interface {
	PublishJob(ctx context.Context, job queue.Job) error
}

// verdict é o que a triagem decide para um arquivo de incoming.
type verdict int

const (
	// ainda sendo escrito ou ilegível; fica em incoming
	verdictWait verdict = iota
	// metadata do Windows; apagar
	verdictDiscard
	// não é NF-e; ignored
	verdictIgnore
	// processing (+ fila)
	verdictAccept
)

type triage struct {
	verdict verdict
	kind    string
	reason  string
}

// Watcher faz a triagem de incoming: só NF-e e lotes ZIP chegam ao worker.
type Watcher struct {
	cfg *config.Config
	fs  *fsnotify.Watcher
	pub Publisher

	stableAttempts int
	stableDelay    time.Duration
}

func New(cfg *config.Config, pub Publisher) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	slog.Info("watcher configurado",
		"incoming_dir", cfg.IncomingDir,
		"fila", pub != nil,
		"max_xml_bytes", cfg.MaxXMLBytes,
	)

	return &Watcher{
		cfg:            cfg,
		fs:             fw,
		pub:            pub,
		stableAttempts: 5,
		stableDelay:    200 * time.Millisecond,
	}, nil
}

// Run faz a varredura inicial e depois segue os eventos até o contexto
// acabar.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	for _, d := range w.cfg.PipelineDirs() {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}

	w.processExistingFiles(ctx)

	if err := w.fs.Add(w.cfg.IncomingDir); err != nil {
		return fmt.Errorf("observando %s: %w", w.cfg.IncomingDir, err)
	}
	slog.Info("aguardando arquivos", "incoming_dir", w.cfg.IncomingDir)

	for {
		select {
		case <-ctx.Done():
			slog.Info("encerrando watcher")
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Error("erro do fsnotify", "err", err)
		}
	}
}

func (w *Watcher) processExistingFiles(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.IncomingDir)
	if err != nil {
		slog.Error("erro lendo incoming", "dir", w.cfg.IncomingDir, "err", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.handleIncomingFile(ctx, filepath.Join(w.cfg.IncomingDir, e.Name()))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Chmod) {
		return
	}
	// Rename/remoção no meio do caminho: o arquivo já não é nosso.
	if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
		return
	}
	w.handleIncomingFile(ctx, ev.Name)
}

func (w *Watcher) handleIncomingFile(ctx context.Context, path string) {
	t := w.inspect(path)
	log := slog.With("path", path, "kind", t.kind)

	switch t.verdict {
	case verdictDiscard:
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("falha removendo metadata", "err", err)
		}

	case verdictWait:
		log.Warn("arquivo mantido em incoming", "motivo", t.reason)

	case verdictIgnore:
		if _, err := w.relocate(path, w.cfg.IgnoredDir); err != nil {
			log.Error("erro movendo para ignored", "err", err)
			return
		}
		log.Info("arquivo movido para ignored", "motivo", t.reason)

	case verdictAccept:
		dest, err := w.relocate(path, w.cfg.ProcessingDir)
		if err != nil {
			log.Error("erro movendo para processing", "err", err)
			return
		}
		log.Info("arquivo movido para processing", "dest", dest)
		w.enqueue(ctx, dest, t.kind)
	}
}

// inspect decide o destino sem mexer no arquivo.
func (w *Watcher) inspect(path string) triage {
	name := filepath.Base(path)
	if isZoneIdentifier(name) {
		return triage{verdict: verdictDiscard}
	}

	kind := queue.KindFor(name)
	if kind == "" {
		return triage{verdict: verdictIgnore, reason: "extensão não suportada"}
	}
	if !w.waitFileStable(path) {
		return triage{verdict: verdictWait, kind: kind, reason: "arquivo não estabilizou"}
	}
	if kind == queue.KindZIP {
		// o conteúdo é triado pelo worker, entrada por entrada
		return triage{verdict: verdictAccept, kind: kind}
	}

	data, oversize, err := w.readXML(path)
	switch {
	case err != nil:
		return triage{verdict: verdictWait, kind: kind, reason: err.Error()}
	case oversize:
		// o worker recusa e registra too_large; não é decisão da triagem
		return triage{verdict: verdictAccept, kind: kind}
	case !nfe.Validate(data):
		metrics.ObserveImport(metrics.StatusNotInvoice, queue.KindXML, 0)
		return triage{verdict: verdictIgnore, kind: kind, reason: "XML sem NF-e"}
	}
	return triage{verdict: verdictAccept, kind: kind}
}

// readXML lê no máximo MaxXMLBytes; oversize indica que havia mais.
func (w *Watcher) readXML(path string) (data []byte, oversize bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	if w.cfg.MaxXMLBytes <= 0 {
		data, err = io.ReadAll(f)
		return data, false, err
	}
	data, err = io.ReadAll(io.LimitReader(f, w.cfg.MaxXMLBytes+1))
	if err != nil {
		return nil, false, err
	}
	return data, int64(len(data)) > w.cfg.MaxXMLBytes, nil
}

// waitFileStable espera o tamanho parar de mudar. Arquivo vazio nunca
// estabiliza: é cópia em andamento.
func (w *Watcher) waitFileStable(path string) bool {
	last := int64(-1)
	for i := 0; i < w.stableAttempts; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		size := info.Size()
		if size > 0 && size == last {
			return true
		}
		last = size
		time.Sleep(w.stableDelay)
	}
	return false
}

func (w *Watcher) relocate(src, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(src))
	if err := os.Rename(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// enqueue publica o job. Falha na fila só é logada: o arquivo continua em
// processing.
func (w *Watcher) enqueue(ctx context.Context, path, kind string) {
	if w.pub == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	job := queue.Job{Path: path, Filename: filepath.Base(path), Kind: kind}
	if err := w.pub.PublishJob(ctx, job); err != nil {
		slog.Error("erro publicando job", "path", path, "kind", kind, "err", err)
		return
	}
	slog.Info("job publicado", "path", path, "kind", kind)
}

func isZoneIdentifier(name string) bool {
	return strings.Contains(strings.ToLower(name), "zone.identifier")
}
