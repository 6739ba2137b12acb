package catalog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/pkg/circuit_breaker"
)

var ErrInvalidStatusCode = errors.New("invalid status code")

// Provider is an external book search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, q string) ([]model.CatalogBook, error)
}

// Aggregator queries all providers concurrently and concatenates whatever succeeded.
type Aggregator struct {
	providers []Provider
	log       *zap.Logger
}

func NewAggregator(log *zap.Logger, providers ...Provider) *Aggregator {
	return &Aggregator{
		providers: providers,
		log:       log.Named("catalog"),
	}
}

func (a *Aggregator) Search(ctx context.Context, q string) ([]model.CatalogBook, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errs.Invalid("Search query is required")
	}

	results := make([][]model.CatalogBook, len(a.providers))
	failures := make([]error, len(a.providers))
	g, gCtx := errgroup.WithContext(ctx)
	for i, p := range a.providers {
		i, p := i, p
		g.Go(func() error {
			books, err := p.Search(gCtx, q)
			if err != nil {
				a.log.Warn("catalog provider failed", zap.String("provider", p.Name()), zap.Error(err))
				failures[i] = err
				return nil
			}
			results[i] = books
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck

	merged := make([]model.CatalogBook, 0)
	failed := 0
	for i := range a.providers {
		if failures[i] != nil {
			failed++
			continue
		}
		merged = append(merged, results[i]...)
	}
	if len(a.providers) > 0 && failed == len(a.providers) {
		return nil, errors.Wrap(errs.ErrUpstream, "all catalog providers failed")
	}
	return merged, nil
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Breaker circuit_breaker.Config
}

func newRestyClient(cfg ClientConfig) *resty.Client {
	return resty.New().
		SetTransport(&http.Transport{
			MaxIdleConns:    10,
			IdleConnTimeout: 30 * time.Second,
		}).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
}

func stringsOrEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
