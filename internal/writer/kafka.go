package writer

import (
	"github.com/Shopify/sarama"

	"github.com/grafana/statsdaggd/internal/aggregate"
)

// KafkaWriter publishes each emission as a keyed Kafka message (the
// metric name is the key, so a topic-level partitioner keeps a given
// metric's history ordered), for shops that route StatsD output
// through a topic instead of directly to Graphite.
type KafkaWriter struct {
	topic    string
	producer sarama.SyncProducer
}

// NewKafkaWriter connects a synchronous producer to brokers.
func NewKafkaWriter(brokers []string, topic string) (*KafkaWriter, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaWriter{topic: topic, producer: producer}, nil
}

// Write publishes every emission in batch as its own keyed message.
func (w *KafkaWriter) Write(batch []aggregate.Emission) error {
	for _, e := range batch {
		msg := &sarama.ProducerMessage{
			Topic: w.topic,
			Key:   sarama.ByteEncoder(e.Name),
			Value: sarama.StringEncoder(formatLine(e)),
		}
		if _, _, err := w.producer.SendMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the underlying producer.
func (w *KafkaWriter) Close() error {
	return w.producer.Close()
}
