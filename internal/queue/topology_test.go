package queue

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type declaredQueue struct {
	name string
	args amqp.Table
}

type fakeDeclarer struct {
	exchanges []string
	queues    []declaredQueue
	binds     [][3]string
	failOn    string
}

func (f *fakeDeclarer) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	if name == f.failOn {
		return errors.New("acesso negado")
	}
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeDeclarer) QueueDeclare(name string, durable, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	if name == f.failOn {
		return amqp.Queue{}, errors.New("PRECONDITION_FAILED")
	}
	f.queues = append(f.queues, declaredQueue{name: name, args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeDeclarer) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.binds = append(f.binds, [3]string{name, key, exchange})
	return nil
}

func TestTopologyDeclare(t *testing.T) {
	ch := &fakeDeclarer{}
	require.NoError(t, topology{queue: "nfe-gestor-jobs"}.declare(ch))

	assert.Equal(t, []string{"nfe-gestor-jobs.dlx:direct"}, ch.exchanges)
	assert.Equal(t, [][3]string{{"nfe-gestor-jobs.dlq", "nfe-gestor-jobs.dlq", "nfe-gestor-jobs.dlx"}}, ch.binds)

	require.Len(t, ch.queues, 2)
	assert.Equal(t, "nfe-gestor-jobs.dlq", ch.queues[0].name)
	assert.Nil(t, ch.queues[0].args)

	jobs := ch.queues[1]
	assert.Equal(t, "nfe-gestor-jobs", jobs.name)
	assert.Equal(t, "nfe-gestor-jobs.dlx", jobs.args["x-dead-letter-exchange"])
	assert.Equal(t, "nfe-gestor-jobs.dlq", jobs.args["x-dead-letter-routing-key"])
}

func TestTopologyDeclareStopsOnError(t *testing.T) {
	ch := &fakeDeclarer{failOn: "jobs"}
	err := topology{queue: "jobs"}.declare(ch)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"jobs"`)
	assert.Len(t, ch.queues, 1) // só a DLQ
}
