package sweeper

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const JobName = "lending:expiry-sweep"

// Releaser ends reservations whose loan period is over.
type Releaser interface {
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)
}

type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Sweeper periodically releases expired reservations. With a distributed locker
// only one replica runs a given tick.
type Sweeper struct {
	sched gocron.Scheduler
	svc   Releaser
	cfg   Config
	log   *zap.Logger
}

func New(svc Releaser, cfg Config, locker gocron.Locker, log *zap.Logger) (*Sweeper, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	var opts []gocron.SchedulerOption
	if locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(locker))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new scheduler")
	}

	s := &Sweeper{
		sched: sched,
		svc:   svc,
		cfg:   cfg,
		log:   log.Named("sweeper"),
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.Interval),
		gocron.NewTask(s.Sweep),
		gocron.WithName(JobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new job")
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.sched.Start()
}

func (s *Sweeper) Stop() error {
	return s.sched.Shutdown()
}

func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	released, err := s.svc.ReleaseExpired(ctx, time.Now())
	if err != nil {
		s.log.Error("sweep expired reservations", zap.Int("released", released), zap.Error(err))
		return
	}
	if released > 0 {
		s.log.Info("released expired reservations", zap.Int("released", released))
	}
}
