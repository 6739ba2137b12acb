package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
)

var reservationColumns = []string{"id", "requested_by", "book_id", "start_date", "end_date"}

const reservationNotFound = "reservation not found"

func (r *repository) CreateReservation(ctx context.Context, rsv model.Reservation) (model.Reservation, error) {
	q, args, err := qb.Insert(reservationTableName).
		Columns(reservationColumns...).
		Values(uuid.NewString(), rsv.RequestedBy, rsv.Book, rsv.StartDate, rsv.EndDate).
		Suffix(returning(reservationColumns)).
		ToSql()
	if err != nil {
		return model.Reservation{}, err
	}
	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		cerr := r.classify(err, "create reservation", reservationNotFound)
		if errors.Is(cerr, errs.ErrConflict) {
			r.log.Debug("CreateReservation: copy already reserved", zap.String("book_id", rsv.Book))
		} else {
			r.log.Error("CreateReservation", zap.String("q", q), zap.Error(err))
		}
		return model.Reservation{}, cerr
	}
	return res, nil
}

func (r *repository) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	if !validID(id) {
		return model.Reservation{}, errs.NotFound(reservationNotFound)
	}
	q, args, err := qb.Select(reservationColumns...).
		From(reservationTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Reservation{}, err
	}
	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		return model.Reservation{}, r.classify(err, "get reservation", reservationNotFound)
	}
	return res, nil
}

func (r *repository) UpdateReservationEnd(ctx context.Context, id string, endDate time.Time) (model.Reservation, error) {
	if !validID(id) {
		return model.Reservation{}, errs.NotFound(reservationNotFound)
	}
	q, args, err := qb.Update(reservationTableName).
		Set("end_date", endDate).
		Where(sq.Eq{"id": id}).
		Suffix(returning(reservationColumns)).
		ToSql()
	if err != nil {
		return model.Reservation{}, err
	}
	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		return model.Reservation{}, r.classify(err, "update reservation", reservationNotFound)
	}
	return res, nil
}

func (r *repository) DeleteReservation(ctx context.Context, id string) error {
	if !validID(id) {
		return errs.NotFound(reservationNotFound)
	}
	q, args, err := qb.Delete(reservationTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return r.classify(err, "delete reservation", reservationNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return r.classify(err, "delete reservation", reservationNotFound)
	}
	if n == 0 {
		return errs.NotFound(reservationNotFound)
	}
	return nil
}

// DeleteExpiredReservation removes the reservation only while it is still expired at now.
// ok is false when it was cancelled or extended in the meantime.
func (r *repository) DeleteExpiredReservation(ctx context.Context, id string, now time.Time) (model.Reservation, bool, error) {
	if !validID(id) {
		return model.Reservation{}, false, nil
	}
	q, args, err := qb.Delete(reservationTableName).
		Where(sq.Eq{"id": id}).
		Where(sq.LtOrEq{"end_date": now}).
		Suffix(returning(reservationColumns)).
		ToSql()
	if err != nil {
		return model.Reservation{}, false, err
	}
	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, false, nil
		}
		return model.Reservation{}, false, r.classify(err, "delete expired reservation", reservationNotFound)
	}
	return res, true, nil
}

type reservationRow struct {
	ID             string        `db:"id"`
	StartDate      time.Time     `db:"start_date"`
	EndDate        time.Time     `db:"end_date"`
	RequesterID    string        `db:"requester_id"`
	RequesterName  string        `db:"requester_name"`
	RequesterEmail string        `db:"requester_email"`
	BookID         string        `db:"book_id"`
	ExternalID     string        `db:"external_id"`
	Title          string        `db:"title"`
	Authors        model.Authors `db:"authors"`
	CoverURL       string        `db:"cover_url"`
	PublishedYear  int           `db:"published_year"`
	IsAvailable    bool          `db:"is_available"`
	MaxDuration    int           `db:"max_duration"`
	BookCreatedAt  time.Time     `db:"book_created_at"`
	OwnerID        string        `db:"owner_id"`
	OwnerName      string        `db:"owner_name"`
	OwnerEmail     string        `db:"owner_email"`
}

func (row reservationRow) view() model.ReservationView {
	return model.ReservationView{
		ID: row.ID,
		RequestedBy: model.Owner{
			ID:    row.RequesterID,
			Name:  row.RequesterName,
			Email: row.RequesterEmail,
		},
		Book: model.BookCopyView{
			BookCopy: model.BookCopy{
				ID:            row.BookID,
				ExternalID:    row.ExternalID,
				Title:         row.Title,
				Authors:       row.Authors,
				CoverURL:      row.CoverURL,
				PublishedYear: row.PublishedYear,
				Owner:         row.OwnerID,
				IsAvailable:   row.IsAvailable,
				MaxDuration:   row.MaxDuration,
				CreatedAt:     row.BookCreatedAt,
			},
			Owner: model.Owner{
				ID:    row.OwnerID,
				Name:  row.OwnerName,
				Email: row.OwnerEmail,
			},
		},
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
	}
}

func viewQuery() sq.SelectBuilder {
	return qb.Select(
		"r.id", "r.start_date", "r.end_date",
		"ru.id AS requester_id", "ru.name AS requester_name", "ru.email AS requester_email",
		"c.id AS book_id", "c.external_id", "c.title", "c.authors", "c.cover_url",
		"c.published_year", "c.is_available", "c.max_duration", "c.created_at AS book_created_at",
		"o.id AS owner_id", "o.name AS owner_name", "o.email AS owner_email",
	).
		From(reservationTableName + " r").
		Join(userTableName + " ru ON ru.id = r.requested_by").
		Join(copyTableName + " c ON c.id = r.book_id").
		Join(userTableName + " o ON o.id = c.owner_id")
}

// ListReservations returns the user's reservations with requester, copy and owner resolved, newest first.
func (r *repository) ListReservations(ctx context.Context, userID string) ([]model.ReservationView, error) {
	q, args, err := viewQuery().
		Where(sq.Eq{"r.requested_by": userID}).
		OrderBy("r.start_date DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, r.classify(err, "list reservations", reservationNotFound)
	}
	items := make([]model.ReservationView, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.view())
	}
	return items, nil
}

func (r *repository) GetReservationView(ctx context.Context, id string) (model.ReservationView, error) {
	if !validID(id) {
		return model.ReservationView{}, errs.NotFound(reservationNotFound)
	}
	q, args, err := viewQuery().
		Where(sq.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return model.ReservationView{}, err
	}
	var row reservationRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		return model.ReservationView{}, r.classify(err, "get reservation view", reservationNotFound)
	}
	return row.view(), nil
}

func (r *repository) ListExpired(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	q, args, err := qb.Select(reservationColumns...).
		From(reservationTableName).
		Where(sq.LtOrEq{"end_date": now}).
		OrderBy("end_date").
		ToSql()
	if err != nil {
		return nil, err
	}
	items := make([]model.Reservation, 0)
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, r.classify(err, "list expired", reservationNotFound)
	}
	return items, nil
}
