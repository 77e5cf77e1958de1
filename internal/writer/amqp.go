package writer

import (
	"bytes"

	"github.com/streadway/amqp"

	"github.com/grafana/statsdaggd/internal/aggregate"
)

// AMQPWriter publishes a flush batch as a single message body to a
// topic exchange, the teacher's alternate fan-out path alongside Kafka.
type AMQPWriter struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	routingKey string
}

// NewAMQPWriter connects to url and declares a durable topic exchange.
func NewAMQPWriter(url, exchange, routingKey string) (*AMQPWriter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPWriter{conn: conn, ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

// Write publishes every emission in batch, newline-joined, as one
// message body.
func (w *AMQPWriter) Write(batch []aggregate.Emission) error {
	var body bytes.Buffer
	for _, e := range batch {
		body.WriteString(formatLine(e))
	}
	return w.ch.Publish(w.exchange, w.routingKey, false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        body.Bytes(),
	})
}

// Close tears down the channel and connection.
func (w *AMQPWriter) Close() error {
	w.ch.Close()
	return w.conn.Close()
}
