package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAck struct {
	acked    int
	nacked   int
	requeued bool
}

func (f *fakeAck) Ack(uint64, bool) error {
	f.acked++
	return nil
}

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	f.requeued = requeue
	return nil
}

func (f *fakeAck) Reject(_ uint64, requeue bool) error { return f.Nack(0, false, requeue) }

func delivery(t *testing.T, job Job, retries any) (amqp.Delivery, *fakeAck) {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)

	ack := &fakeAck{}
	d := amqp.Delivery{Acknowledger: ack, Body: body}
	if retries != nil {
		d.Headers = amqp.Table{retriesHeader: retries}
	}
	return d, ack
}

func TestExtractRetries(t *testing.T) {
	cases := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{"sem headers", nil, 0},
		{"sem x-retries", amqp.Table{"outro": "x"}, 0},
		{"int32", amqp.Table{retriesHeader: int32(2)}, 2},
		{"int64", amqp.Table{retriesHeader: int64(3)}, 3},
		{"int16", amqp.Table{retriesHeader: int16(1)}, 1},
		{"float64", amqp.Table{retriesHeader: float64(4)}, 4},
		{"tipo estranho", amqp.Table{retriesHeader: "2"}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractRetries(tc.headers))
		})
	}
}

func TestNextAttemptDoesNotTouchOriginal(t *testing.T) {
	orig := amqp.Table{retriesHeader: int32(1), "x-death": "dlq"}

	next := nextAttempt(orig)

	assert.Equal(t, int32(2), next[retriesHeader])
	assert.Equal(t, "dlq", next["x-death"])
	assert.Equal(t, int32(1), orig[retriesHeader])

	assert.Equal(t, int32(1), nextAttempt(nil)[retriesHeader])
}

func TestProcessOutcomes(t *testing.T) {
	job := Job{Path: "/data/processing/nota.xml", Filename: "nota.xml", Kind: KindXML}
	fail := func(context.Context, Job) error { return errors.New("banco fora") }
	r := &RabbitMQ{topo: topology{queue: "nfe"}, maxRetries: 2}

	t.Run("sucesso", func(t *testing.T) {
		var got Job
		d, _ := delivery(t, job, nil)
		out := r.process(context.Background(), d, func(_ context.Context, j Job) error {
			got = j
			return nil
		})
		assert.Equal(t, outcomeAck, out)
		assert.Equal(t, job.Path, got.Path)
	})

	t.Run("falha com tentativas sobrando", func(t *testing.T) {
		d, _ := delivery(t, job, int32(1))
		assert.Equal(t, outcomeRetry, r.process(context.Background(), d, fail))
	})

	t.Run("falha sem tentativas", func(t *testing.T) {
		d, _ := delivery(t, job, int32(2))
		assert.Equal(t, outcomeDeadLetter, r.process(context.Background(), d, fail))
	})

	t.Run("sem retry configurado", func(t *testing.T) {
		d, _ := delivery(t, job, nil)
		noRetry := &RabbitMQ{maxRetries: 0}
		assert.Equal(t, outcomeDeadLetter, noRetry.process(context.Background(), d, fail))
	})

	t.Run("corpo inválido não chama o handler", func(t *testing.T) {
		called := false
		d := amqp.Delivery{Body: []byte(`{"path":"/x/planilha.csv","kind":"csv"}`)}
		out := r.process(context.Background(), d, func(context.Context, Job) error {
			called = true
			return nil
		})
		assert.Equal(t, outcomeDeadLetter, out)
		assert.False(t, called)
	})
}

func TestSettleAckAndDeadLetter(t *testing.T) {
	r := &RabbitMQ{}
	job := Job{Path: "/p/nota.xml", Kind: KindXML}

	d, ack := delivery(t, job, nil)
	r.settle(context.Background(), d, outcomeAck)
	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)

	d, ack = delivery(t, job, nil)
	r.settle(context.Background(), d, outcomeDeadLetter)
	assert.Zero(t, ack.acked)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeued)
}

func TestJobJSON(t *testing.T) {
	job := Job{
		Path:     "/data/processing/nota.xml",
		Filename: "nota.xml",
		Kind:     KindXML,
		QueuedAt: time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC),
	}

	body, err := json.Marshal(job)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"path":"/data/processing/nota.xml","filename":"nota.xml","kind":"xml","queued_at":"2024-03-15T13:00:00Z"}`,
		string(body),
	)
}
