package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/lending/internal/repository"
	"github.com/Astemirdum/book-lending/pkg/kafka"
)

const (
	DefaultMaxDurationDays = 30

	// rollbackTimeout bounds compensating writes that run after the request context is gone.
	rollbackTimeout = 5 * time.Second
)

type ReservationConfig struct {
	// MaxDurationDays applies to copies that carry no limit of their own.
	MaxDurationDays int
}

// ReservationService owns the reservation lifecycle and the availability flag of the reserved copy.
// The conditional update on is_available is the only lock between concurrent requests.
type ReservationService struct {
	log          *zap.Logger
	copies       repository.CopyRepository
	reservations repository.ReservationRepository
	publisher    Publisher
	maxDays      int
	now          func() time.Time
}

func NewReservationService(
	copies repository.CopyRepository,
	reservations repository.ReservationRepository,
	cfg ReservationConfig,
	log *zap.Logger,
	opts ...Option,
) *ReservationService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	maxDays := cfg.MaxDurationDays
	if maxDays <= 0 {
		maxDays = DefaultMaxDurationDays
	}
	return &ReservationService{
		log:          log.Named("reservation"),
		copies:       copies,
		reservations: reservations,
		publisher:    o.publisher,
		maxDays:      maxDays,
		now:          o.now,
	}
}

func (s *ReservationService) effectiveMax(c model.BookCopy) int {
	if c.MaxDuration > 0 {
		return c.MaxDuration
	}
	return s.maxDays
}

func (s *ReservationService) checkDays(days int, c model.BookCopy) error {
	if days < 1 {
		return errs.Invalid("requested days must be at least 1")
	}
	if limit := s.effectiveMax(c); days > limit {
		return errs.Invalid("requested days exceed the maximum of %d days for this book", limit)
	}
	return nil
}

// endDate adds whole calendar days so month, year and DST boundaries roll over correctly.
func endDate(start time.Time, days int) time.Time {
	return start.AddDate(0, 0, days)
}

func (s *ReservationService) Create(ctx context.Context, copyID, requesterID string, days int) (model.ReservationView, error) {
	c, err := s.copies.GetCopy(ctx, copyID)
	if err != nil {
		return model.ReservationView{}, err
	}
	if c.Owner == requesterID {
		return model.ReservationView{}, errs.Invalid("cannot reserve own book")
	}
	if !c.IsAvailable {
		return model.ReservationView{}, errs.Conflict("book is not available for reservation")
	}
	if err := s.checkDays(days, c); err != nil {
		return model.ReservationView{}, err
	}

	start := s.now().UTC()
	claimed, err := s.copies.SetAvailability(ctx, c.ID, true, false)
	if err != nil {
		return model.ReservationView{}, errors.Wrap(err, "claim copy")
	}
	if !claimed {
		return model.ReservationView{}, errs.Conflict("book is not available for reservation")
	}

	rsv, err := s.reservations.CreateReservation(ctx, model.Reservation{
		RequestedBy: requesterID,
		Book:        c.ID,
		StartDate:   start,
		EndDate:     endDate(start, days),
	})
	if err != nil {
		s.releaseClaim(ctx, c.ID, err)
		return model.ReservationView{}, errors.Wrap(err, "create reservation")
	}

	s.publish(ctx, kafka.EventReserved, rsv)
	return s.resolve(ctx, rsv, c), nil
}

// releaseClaim hands a claimed copy back after a failed insert. If that fails too the copy
// stays unavailable, which is preferred over a double booking.
func (s *ReservationService) releaseClaim(ctx context.Context, copyID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	released, err := s.copies.SetAvailability(ctx, copyID, false, true)
	if err != nil || !released {
		s.log.Error("copy left unavailable after failed reservation insert",
			zap.String("copy_id", copyID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
	}
}

func (s *ReservationService) UpdateDuration(ctx context.Context, reservationID, requesterID string, days int) (model.ReservationView, error) {
	rsv, err := s.ownReservation(ctx, reservationID, requesterID, "not allowed to modify this reservation")
	if err != nil {
		return model.ReservationView{}, err
	}
	return s.extend(ctx, rsv, days)
}

// UpdateEndDate is UpdateDuration expressed as a target end date.
func (s *ReservationService) UpdateEndDate(ctx context.Context, reservationID, requesterID string, end time.Time) (model.ReservationView, error) {
	rsv, err := s.ownReservation(ctx, reservationID, requesterID, "not allowed to modify this reservation")
	if err != nil {
		return model.ReservationView{}, err
	}
	days, err := DaysUntil(rsv.StartDate, end)
	if err != nil {
		return model.ReservationView{}, err
	}
	return s.extend(ctx, rsv, days)
}

// extend recomputes the end date from the original start date. Availability is left untouched.
func (s *ReservationService) extend(ctx context.Context, rsv model.Reservation, days int) (model.ReservationView, error) {
	c, err := s.copies.GetCopy(ctx, rsv.Book)
	if err != nil {
		return model.ReservationView{}, errors.Wrap(err, "get reserved copy")
	}
	if err := s.checkDays(days, c); err != nil {
		return model.ReservationView{}, err
	}

	updated, err := s.reservations.UpdateReservationEnd(ctx, rsv.ID, endDate(rsv.StartDate, days))
	if err != nil {
		return model.ReservationView{}, errors.Wrap(err, "update reservation")
	}
	s.publish(ctx, kafka.EventExtended, updated)
	return s.resolve(ctx, updated, c), nil
}

// DaysUntil converts a target end date into whole calendar days from start, rounding up.
func DaysUntil(start, end time.Time) (int, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return 0, errs.Invalid("end date must be after the reservation start date")
	}
	days := int(end.Sub(start).Hours() / 24)
	for endDate(start, days).Before(end) {
		days++
	}
	return days, nil
}

func (s *ReservationService) ownReservation(ctx context.Context, reservationID, requesterID, deny string) (model.Reservation, error) {
	rsv, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, err
	}
	if rsv.RequestedBy != requesterID {
		return model.Reservation{}, errs.Forbidden("%s", deny)
	}
	return rsv, nil
}

func (s *ReservationService) Cancel(ctx context.Context, reservationID, requesterID string) error {
	rsv, err := s.ownReservation(ctx, reservationID, requesterID, "not allowed to cancel this reservation")
	if err != nil {
		return err
	}
	if err := s.release(ctx, rsv); err != nil {
		return err
	}
	s.publish(ctx, kafka.EventCancelled, rsv)
	return nil
}

// release flips the copy back to available and then deletes the reservation.
// A missing copy does not block the deletion.
func (s *ReservationService) release(ctx context.Context, rsv model.Reservation) error {
	released, err := s.copies.SetAvailability(ctx, rsv.Book, false, true)
	if err != nil {
		return errors.Wrap(err, "release copy")
	}
	if !released {
		s.log.Warn("copy was not marked unavailable on release",
			zap.String("reservation_id", rsv.ID),
			zap.String("copy_id", rsv.Book),
		)
	}
	if err := s.reservations.DeleteReservation(ctx, rsv.ID); err != nil {
		return errors.Wrap(err, "delete reservation")
	}
	return nil
}

func (s *ReservationService) List(ctx context.Context, requesterID string) ([]model.ReservationView, error) {
	return s.reservations.ListReservations(ctx, requesterID)
}

// ReleaseExpired ends every reservation whose end date is not after now and returns how many were released.
// A failure on one reservation is logged and the sweep goes on.
func (s *ReservationService) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	expired, err := s.reservations.ListExpired(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "list expired")
	}
	released := 0
	for _, rsv := range expired {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		ended, ok, err := s.expire(ctx, rsv.ID, now)
		if err != nil {
			s.log.Error("release expired reservation",
				zap.String("reservation_id", rsv.ID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}
		released++
		s.publish(ctx, kafka.EventExpired, ended)
	}
	return released, nil
}

// expire removes the reservation only while it is still expired at now, then hands the copy back.
// A reservation cancelled or extended after the listing is left alone.
func (s *ReservationService) expire(ctx context.Context, reservationID string, now time.Time) (model.Reservation, bool, error) {
	rsv, ok, err := s.reservations.DeleteExpiredReservation(ctx, reservationID, now)
	if err != nil {
		return model.Reservation{}, false, errors.Wrap(err, "delete expired reservation")
	}
	if !ok {
		s.log.Debug("reservation no longer expired", zap.String("reservation_id", reservationID))
		return model.Reservation{}, false, nil
	}
	freed, err := s.copies.SetAvailability(ctx, rsv.Book, false, true)
	if err != nil || !freed {
		s.log.Error("copy left unavailable after expired reservation was removed",
			zap.String("reservation_id", rsv.ID),
			zap.String("copy_id", rsv.Book),
			zap.Error(err),
		)
	}
	return rsv, true, nil
}

func (s *ReservationService) resolve(ctx context.Context, rsv model.Reservation, c model.BookCopy) model.ReservationView {
	view, err := s.reservations.GetReservationView(ctx, rsv.ID)
	if err == nil {
		return view
	}
	s.log.Warn("resolve reservation", zap.String("reservation_id", rsv.ID), zap.Error(err))
	c.IsAvailable = false
	return model.ReservationView{
		ID:          rsv.ID,
		RequestedBy: model.Owner{ID: rsv.RequestedBy},
		Book: model.BookCopyView{
			BookCopy: c,
			Owner:    model.Owner{ID: c.Owner},
		},
		StartDate: rsv.StartDate,
		EndDate:   rsv.EndDate,
	}
}

func (s *ReservationService) publish(ctx context.Context, typ kafka.EventType, rsv model.Reservation) {
	event := kafka.ReservationEvent{
		Timestamp:     s.now().UTC(),
		EventType:     typ,
		ReservationID: rsv.ID,
		BookCopyID:    rsv.Book,
		UserID:        rsv.RequestedBy,
		EndDate:       rsv.EndDate,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish reservation event",
			zap.String("type", string(typ)),
			zap.String("reservation_id", rsv.ID),
			zap.Error(err),
		)
	}
}
