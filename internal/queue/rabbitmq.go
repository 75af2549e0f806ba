package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"nfe-gestor/internal/config"
)

const (
	retriesHeader    = "x-retries"
	defaultPrefetch  = 10
	republishTimeout = 5 * time.Second
)

// outcome é o destino de uma entrega depois do handler.
type outcome int

const (
	outcomeAck outcome = iota
	// nova cópia com x-retries+1, ack na original
	outcomeRetry
	// nack sem requeue; o DLX leva para a DLQ
	outcomeDeadLetter
)

// RabbitMQ publica e consome jobs de importação com publisher confirms.
type RabbitMQ struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	confirms   <-chan amqp.Confirmation
	topo       topology
	maxRetries int
}

func NewRabbitMQ(cfg config.QueueConfig) (_ *RabbitMQ, err error) {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("conectando no RabbitMQ: %w", err)
	}
	// fechar a conexão fecha o canal junto
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("abrindo canal no RabbitMQ: %w", err)
	}

	topo := topology{queue: cfg.QueueName}
	if err = topo.declare(ch); err != nil {
		return nil, err
	}
	if err = ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("configurando prefetch=%d: %w", prefetch, err)
	}
	if err = ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("ativando publisher confirms: %w", err)
	}

	slog.Info("RabbitMQ conectado",
		"queue", topo.queue,
		"dlq", topo.dlq(),
		"prefetch", prefetch,
		"max_retries", cfg.MaxRetries,
	)

	return &RabbitMQ{
		conn:       conn,
		ch:         ch,
		confirms:   ch.NotifyPublish(make(chan amqp.Confirmation, 2*prefetch)),
		topo:       topo,
		maxRetries: max(cfg.MaxRetries, 0),
	}, nil
}

// PublishJob enfileira o arquivo e só volta depois da confirmação do broker.
func (r *RabbitMQ) PublishJob(ctx context.Context, job Job) error {
	if job.QueuedAt.IsZero() {
		job.QueuedAt = time.Now().UTC()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("serializando job: %w", err)
	}
	return r.publish(ctx, body, amqp.Table{retriesHeader: int32(0)})
}

func (r *RabbitMQ) publish(ctx context.Context, body []byte, headers amqp.Table) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      headers,
		Body:         body,
	}
	if err := r.ch.PublishWithContext(ctx, "", r.topo.queue, false, false, msg); err != nil {
		return fmt.Errorf("publicando em %q: %w", r.topo.queue, err)
	}

	select {
	case conf, ok := <-r.confirms:
		if !ok {
			return errors.New("canal de confirmações do RabbitMQ fechado")
		}
		if !conf.Ack {
			return fmt.Errorf("broker recusou a mensagem (tag %d)", conf.DeliveryTag)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeJobs bloqueia consumindo a fila até o contexto ser cancelado.
func (r *RabbitMQ) ConsumeJobs(ctx context.Context, handler Handler) error {
	deliveries, err := r.ch.Consume(r.topo.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("iniciando consumo de %q: %w", r.topo.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("consumo encerrado pelo broker")
			}
			r.settle(ctx, d, r.process(ctx, d, handler))
		}
	}
}

// process roda o handler e decide o destino da entrega.
func (r *RabbitMQ) process(ctx context.Context, d amqp.Delivery, handler Handler) outcome {
	job, err := decodeJob(d.Body)
	if err != nil {
		slog.Error("mensagem fora do formato de job, enviando para a DLQ",
			"queue", r.topo.queue,
			"err", err,
		)
		return outcomeDeadLetter
	}

	if err := handler(ctx, job); err != nil {
		retries := extractRetries(d.Headers)
		log := slog.With(
			"path", job.Path,
			"kind", job.Kind,
			"retries", retries,
			"max_retries", r.maxRetries,
			"err", err,
		)
		if retries < r.maxRetries {
			log.Warn("job falhou, reenfileirando")
			return outcomeRetry
		}
		log.Error("job falhou e esgotou as tentativas, enviando para a DLQ")
		return outcomeDeadLetter
	}
	return outcomeAck
}

func (r *RabbitMQ) settle(ctx context.Context, d amqp.Delivery, out outcome) {
	switch out {
	case outcomeRetry:
		pubCtx, cancel := context.WithTimeout(ctx, republishTimeout)
		err := r.publish(pubCtx, d.Body, nextAttempt(d.Headers))
		cancel()
		if err != nil {
			// sem a cópia nova, a original volta para a fila como está
			slog.Error("falha ao reenfileirar job", "err", err)
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	case outcomeDeadLetter:
		_ = d.Nack(false, false)
	default:
		_ = d.Ack(false)
	}
}

func (r *RabbitMQ) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// nextAttempt copia os headers com o contador incrementado.
func nextAttempt(h amqp.Table) amqp.Table {
	out := make(amqp.Table, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	out[retriesHeader] = int32(extractRetries(h) + 1)
	return out
}

// extractRetries aceita qualquer numérico: clientes de outras linguagens
// não mandam necessariamente int32.
func extractRetries(h amqp.Table) int {
	switch v := h[retriesHeader].(type) {
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
