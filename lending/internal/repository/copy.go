package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
)

var copyColumns = []string{
	"id", "external_id", "title", "authors", "cover_url",
	"published_year", "owner_id", "is_available", "max_duration", "created_at",
}

const copyNotFound = "book copy not found"

func returning(columns []string) string {
	return "RETURNING " + strings.Join(columns, ", ")
}

func (r *repository) CreateCopy(ctx context.Context, c model.BookCopy) (model.BookCopy, error) {
	q, args, err := qb.Insert(copyTableName).
		Columns("id", "external_id", "title", "authors", "cover_url", "published_year", "owner_id", "is_available", "max_duration").
		Values(uuid.NewString(), c.ExternalID, c.Title, c.Authors, c.CoverURL, c.PublishedYear, c.Owner, true, c.MaxDuration).
		Suffix(returning(copyColumns)).
		ToSql()
	if err != nil {
		return model.BookCopy{}, err
	}
	var res model.BookCopy
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		return model.BookCopy{}, r.classify(err, "create copy", copyNotFound)
	}
	return res, nil
}

func (r *repository) GetCopy(ctx context.Context, id string) (model.BookCopy, error) {
	if !validID(id) {
		return model.BookCopy{}, errs.NotFound(copyNotFound)
	}
	q, args, err := qb.Select(copyColumns...).
		From(copyTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.BookCopy{}, err
	}
	var res model.BookCopy
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		return model.BookCopy{}, r.classify(err, "get copy", copyNotFound)
	}
	return res, nil
}

func (r *repository) ListCopiesByOwner(ctx context.Context, ownerID string) ([]model.BookCopy, error) {
	q, args, err := qb.Select(copyColumns...).
		From(copyTableName).
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	items := make([]model.BookCopy, 0)
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, r.classify(err, "list copies", copyNotFound)
	}
	return items, nil
}

func (r *repository) UpdateCopy(ctx context.Context, id, ownerID string, req model.UpdateCopyRequest) (model.BookCopy, error) {
	if !validID(id) {
		return model.BookCopy{}, errs.NotFound(copyNotFound)
	}
	upd := qb.Update(copyTableName)
	changed := false
	if req.Title != nil {
		upd, changed = upd.Set("title", *req.Title), true
	}
	if req.Authors != nil {
		upd, changed = upd.Set("authors", model.Authors(req.Authors)), true
	}
	if req.CoverURL != nil {
		upd, changed = upd.Set("cover_url", *req.CoverURL), true
	}
	if req.PublishedYear != nil {
		upd, changed = upd.Set("published_year", *req.PublishedYear), true
	}
	if req.MaxDuration != nil {
		upd, changed = upd.Set("max_duration", *req.MaxDuration), true
	}
	if !changed {
		c, err := r.GetCopy(ctx, id)
		if err != nil {
			return model.BookCopy{}, err
		}
		if c.Owner != ownerID {
			return model.BookCopy{}, errs.NotFound(copyNotFound)
		}
		return c, nil
	}

	q, args, err := upd.
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"owner_id": ownerID}).
		Suffix(returning(copyColumns)).
		ToSql()
	if err != nil {
		return model.BookCopy{}, err
	}
	var res model.BookCopy
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		return model.BookCopy{}, r.classify(err, "update copy", copyNotFound)
	}
	return res, nil
}

// DeleteCopy removes an available copy of the owner. A reserved copy is reported as a conflict.
func (r *repository) DeleteCopy(ctx context.Context, id, ownerID string) error {
	if !validID(id) {
		return errs.NotFound(copyNotFound)
	}
	q, args, err := qb.Delete(copyTableName).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"owner_id": ownerID}).
		Where(sq.Eq{"is_available": true}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return r.classify(err, "delete copy", copyNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return r.classify(err, "delete copy", copyNotFound)
	}
	if n == 0 {
		return errs.Conflict("book copy is reserved and cannot be removed")
	}
	return nil
}

func (r *repository) SetAvailability(ctx context.Context, id string, expected, next bool) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	q, args, err := qb.Update(copyTableName).
		Set("is_available", next).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"is_available": expected}).
		ToSql()
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, r.classify(err, "set availability", copyNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, r.classify(err, "set availability", copyNotFound)
	}
	return n == 1, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchAvailable matches available copies whose title or any author contains query, case-insensitively.
func (r *repository) SearchAvailable(ctx context.Context, query string) ([]model.AvailableCopyRow, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	cols := make([]string, 0, len(copyColumns)+2)
	for _, c := range copyColumns {
		cols = append(cols, "c."+c)
	}
	cols = append(cols, "u.name AS owner_name", "u.email AS owner_email")

	q, args, err := qb.Select(cols...).
		From(copyTableName + " c").
		Join(userTableName + " u ON u.id = c.owner_id").
		Where(sq.Eq{"c.is_available": true}).
		Where(sq.Or{
			sq.ILike{"c.title": pattern},
			sq.Expr("EXISTS (SELECT 1 FROM jsonb_array_elements_text(c.authors) a WHERE a ILIKE ?)", pattern),
		}).
		OrderBy("c.external_id", "c.created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	items := make([]model.AvailableCopyRow, 0)
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, r.classify(err, "search available", copyNotFound)
	}
	return items, nil
}
