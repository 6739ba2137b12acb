package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-lending/lending/config"
	"github.com/Astemirdum/book-lending/lending/internal/catalog"
	"github.com/Astemirdum/book-lending/lending/internal/handler"
	"github.com/Astemirdum/book-lending/lending/internal/repository"
	"github.com/Astemirdum/book-lending/lending/internal/server"
	"github.com/Astemirdum/book-lending/lending/internal/service"
	"github.com/Astemirdum/book-lending/lending/internal/sweeper"
	"github.com/Astemirdum/book-lending/lending/migrations"
	"github.com/Astemirdum/book-lending/pkg/auth"
	"github.com/Astemirdum/book-lending/pkg/kafka"
	"github.com/Astemirdum/book-lending/pkg/locker"
	"github.com/Astemirdum/book-lending/pkg/logger"
	"github.com/Astemirdum/book-lending/pkg/postgres"
)

type eventPublisher interface {
	service.Publisher
	Close() error
}

func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "lending")
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return fmt.Errorf("db init %v", err)
	}
	defer db.Close()

	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return fmt.Errorf("repo %v", err)
	}

	publisher := newPublisher(cfg.Kafka, log)
	defer publisher.Close() //nolint:errcheck

	tokens := auth.NewTokenManager(cfg.Auth)
	reservationSvc := service.NewReservationService(repo, repo,
		service.ReservationConfig{MaxDurationDays: cfg.Reservation.MaxDays},
		log,
		service.WithPublisher(publisher),
	)
	copySvc := service.NewCopyService(repo, service.CopyConfig{
		DefaultMaxDays: cfg.Reservation.CopyDefaultMaxDays,
		MaxDays:        cfg.Reservation.MaxDays,
	}, log)
	userSvc := service.NewUserService(repo, tokens, log)

	catalogSvc := catalog.NewAggregator(log,
		catalog.NewOpenLibrary(catalog.ClientConfig{
			BaseURL: cfg.Catalog.OpenLibraryURL,
			Timeout: cfg.Catalog.Timeout,
			Breaker: cfg.Catalog.Breaker,
		}),
		catalog.NewGoogleBooks(catalog.ClientConfig{
			BaseURL: cfg.Catalog.GoogleBooksURL,
			Timeout: cfg.Catalog.Timeout,
			Breaker: cfg.Catalog.Breaker,
		}),
	)

	var jobLocker gocron.Locker
	if cfg.Redis.Addr != "" {
		client, err := locker.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis init %v", err)
		}
		defer client.Close()
		jobLocker = locker.NewRedisLocker(client, cfg.Redis.TTL)
	}
	sw, err := sweeper.New(reservationSvc, sweeper.Config{
		Interval: cfg.Sweeper.Interval,
		Timeout:  cfg.Sweeper.Timeout,
	}, jobLocker, log)
	if err != nil {
		return fmt.Errorf("sweeper init %v", err)
	}
	sw.Start()

	h := handler.New(reservationSvc, copySvc, userSvc, catalogSvc, tokens, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	if err = sw.Stop(); err != nil {
		log.Error("sweeper.Stop", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
	return nil
}

// newPublisher falls back to dropping events when no brokers are configured or reachable.
func newPublisher(cfg kafka.Config, log *zap.Logger) eventPublisher {
	if len(cfg.Addrs) == 0 {
		log.Info("kafka is not configured, reservation events are dropped")
		return kafka.NopPublisher{}
	}
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		log.Warn("kafka producer init, reservation events are dropped", zap.Error(err))
		return kafka.NopPublisher{}
	}
	return kafka.NewPublisher(producer, cfg.Topic)
}
