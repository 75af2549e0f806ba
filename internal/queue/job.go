package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Tipos de arquivo que o worker sabe importar.
const (
	KindXML = "xml"
	KindZIP = "zip"
)

// Job aponta para um arquivo já movido para processing.
type Job struct {
	Path     string    `json:"path"`
	Filename string    `json:"filename"`
	Kind     string    `json:"kind"`
	QueuedAt time.Time `json:"queued_at"`
}

// Handler processa um job; erro devolvido gera retry (até MaxRetries) e
// depois DLQ.
type Handler func(ctx context.Context, job Job) error

var errInvalidJob = errors.New("job inválido")

// KindFor devolve o tipo pelo sufixo do nome (sem diferenciar caixa), ou
// vazio quando o worker não importa esse arquivo.
func KindFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml":
		return KindXML
	case ".zip":
		return KindZIP
	}
	return ""
}

// decodeJob lê o corpo da mensagem. Mensagem que não descreve um arquivo
// importável é erro permanente: vai direto para a DLQ.
func decodeJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", errInvalidJob, err)
	}

	job.Kind = strings.ToLower(job.Kind)
	if job.Kind != KindXML && job.Kind != KindZIP {
		return Job{}, fmt.Errorf("%w: tipo %q", errInvalidJob, job.Kind)
	}
	if job.Path == "" {
		return Job{}, fmt.Errorf("%w: path vazio", errInvalidJob)
	}
	if job.Filename == "" {
		job.Filename = filepath.Base(job.Path)
	}
	return job, nil
}
