package service

import (
	"context"
	"time"

	"github.com/Astemirdum/book-lending/pkg/kafka"
)

// Publisher delivers reservation lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event kafka.ReservationEvent) error
}

type Option func(*options)

type options struct {
	now       func() time.Time
	publisher Publisher
}

func defaultOptions() options {
	return options{
		now:       time.Now,
		publisher: kafka.NopPublisher{},
	}
}

// WithClock overrides the time source used for loan windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithPublisher(p Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}
