package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// topology é a fila de jobs com sua dead-letter: DLX direct "<fila>.dlx"
// roteando para "<fila>.dlq". Tudo durável.
type topology struct {
	queue string
}

func (t topology) dlx() string { return t.queue + ".dlx" }
func (t topology) dlq() string { return t.queue + ".dlq" }

// declarer é o pedaço de *amqp.Channel usado na declaração.
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// declare é idempotente enquanto os argumentos não mudarem; o broker
// recusa redeclarar a fila principal com outro DLX.
func (t topology) declare(ch declarer) error {
	if err := ch.ExchangeDeclare(t.dlx(), amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declarando exchange %q: %w", t.dlx(), err)
	}
	if _, err := ch.QueueDeclare(t.dlq(), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declarando fila %q: %w", t.dlq(), err)
	}
	if err := ch.QueueBind(t.dlq(), t.dlq(), t.dlx(), false, nil); err != nil {
		return fmt.Errorf("ligando %q ao exchange %q: %w", t.dlq(), t.dlx(), err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    t.dlx(),
		"x-dead-letter-routing-key": t.dlq(),
	}
	if _, err := ch.QueueDeclare(t.queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declarando fila %q: %w", t.queue, err)
	}
	return nil
}
