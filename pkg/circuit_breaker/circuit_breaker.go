package circuit_breaker

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

type Status uint8

const (
	Closed   Status = 1
	Open     Status = 2
	HalfOpen Status = 3
)

var ErrOpenCB = errors.New("circuit breaker is open")

type CircuitBreaker interface {
	Call(service func() error) error
	State() Status
}

type Config struct {
	// Number of calls in a closed window before failures are counted.
	MinRequests uint32 `yaml:"min_requests" envconfig:"CB_MIN_REQUESTS" default:"5"`
	// Failure ratio that opens the breaker.
	FailureRatio float64 `yaml:"failure_ratio" envconfig:"CB_FAILURE_RATIO" default:"0.5"`
	// How long the breaker stays open before letting probes through.
	Timeout time.Duration `yaml:"timeout" envconfig:"CB_TIMEOUT" default:"30s"`
	// Successful probes needed in half-open to close again.
	RecoveryRequests uint32 `yaml:"recovery_requests" envconfig:"CB_RECOVERY_REQUESTS" default:"1"`
}

type circuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func New(name string, cfg Config) CircuitBreaker {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 1
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.RecoveryRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
	}
	return &circuitBreaker{cb: gobreaker.NewCircuitBreaker(st)}
}

func (c *circuitBreaker) Call(service func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, service()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpenCB
	}
	return err
}

func (c *circuitBreaker) State() Status {
	switch c.cb.State() {
	case gobreaker.StateOpen:
		return Open
	case gobreaker.StateHalfOpen:
		return HalfOpen
	default:
		return Closed
	}
}
