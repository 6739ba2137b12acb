package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

type CopyRepository interface {
	CreateCopy(ctx context.Context, c model.BookCopy) (model.BookCopy, error)
	GetCopy(ctx context.Context, id string) (model.BookCopy, error)
	ListCopiesByOwner(ctx context.Context, ownerID string) ([]model.BookCopy, error)
	UpdateCopy(ctx context.Context, id, ownerID string, req model.UpdateCopyRequest) (model.BookCopy, error)
	DeleteCopy(ctx context.Context, id, ownerID string) error
	// SetAvailability flips is_available from expected to next and reports whether the row changed.
	SetAvailability(ctx context.Context, id string, expected, next bool) (bool, error)
	SearchAvailable(ctx context.Context, query string) ([]model.AvailableCopyRow, error)
}

type ReservationRepository interface {
	CreateReservation(ctx context.Context, r model.Reservation) (model.Reservation, error)
	GetReservation(ctx context.Context, id string) (model.Reservation, error)
	UpdateReservationEnd(ctx context.Context, id string, endDate time.Time) (model.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	GetReservationView(ctx context.Context, id string) (model.ReservationView, error)
	ListReservations(ctx context.Context, userID string) ([]model.ReservationView, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.Reservation, error)
	DeleteExpiredReservation(ctx context.Context, id string, now time.Time) (model.Reservation, bool, error)
}

type Repository interface {
	UserRepository
	CopyRepository
	ReservationRepository
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	userTableName        = `users`
	copyTableName        = `book_copies`
	reservationTableName = `reservations`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// classify maps driver errors onto the error kinds of the service.
func (r *repository) classify(err error, op, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var (
		pgErr   *pgconn.PgError
		connErr *pgconn.ConnectError
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errs.NotFound("%s", notFoundMsg)
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
		return errs.Conflict("%s: already exists", op)
	case pgconn.Timeout(err),
		errors.As(err, &connErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded):
		r.log.Warn("transient store failure", zap.String("op", op), zap.Error(err))
		return errors.Wrapf(errs.ErrTransient, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}
