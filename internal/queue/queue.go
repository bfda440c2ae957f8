package queue

import (
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Queue publishes dispatch jobs for out-of-process workers.
type Queue interface {
	Publish(topic string, body []byte) error
	Close() error
}

// AMQPQueue is a RabbitMQ-backed Queue. Queues are declared durable so jobs
// survive a broker restart.
type AMQPQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	mu       sync.Mutex
	declared map[string]bool
}

func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, channel: ch, declared: map[string]bool{}}, nil
}

func (q *AMQPQueue) declare(topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.declared[topic] {
		return nil
	}
	_, err := q.channel.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err == nil {
		q.declared[topic] = true
	}
	return err
}

func (q *AMQPQueue) Publish(topic string, body []byte) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	return q.channel.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.NewString(),
			Body:        body,
		},
	)
}

func (q *AMQPQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

// InMemoryQueue records published messages; used in tests and as a stand-in
// when no broker is configured.
type InMemoryQueue struct {
	mu       sync.Mutex
	Messages map[string][][]byte
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{Messages: map[string][][]byte{}}
}

func (q *InMemoryQueue) Publish(topic string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Messages[topic] = append(q.Messages[topic], body)
	return nil
}

func (q *InMemoryQueue) Close() error { return nil }

var (
	_ Queue = (*AMQPQueue)(nil)
	_ Queue = (*InMemoryQueue)(nil)
)
