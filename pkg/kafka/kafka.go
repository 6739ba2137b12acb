package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

const ReservationTopic = "reservation-events"

type Config struct {
	Addrs []string `yaml:"addrs" envconfig:"KAFKA_ADDRS"`
	Topic string   `yaml:"topic" envconfig:"KAFKA_TOPIC" default:"reservation-events"`
}

type EventType string

const (
	EventReserved  EventType = "RESERVED"
	EventExtended  EventType = "EXTENDED"
	EventCancelled EventType = "CANCELLED"
	EventExpired   EventType = "EXPIRED"
)

type ReservationEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     EventType `json:"eventType"`
	ReservationID string    `json:"reservationId"`
	BookCopyID    string    `json:"bookCopyId"`
	UserID        string    `json:"userId"`
	EndDate       time.Time `json:"endDate"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true
	defaultCfg.Producer.Timeout = 5 * time.Second

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = ReservationTopic
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish sends the event keyed by copy id so events of one copy stay ordered within a partition.
func (p *Publisher) Publish(_ context.Context, event ReservationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.BookCopyID),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err = p.producer.SendMessage(msg); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ReservationEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
