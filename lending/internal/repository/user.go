package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
)

var userColumns = []string{"id", "email", "name", "password_hash", "created_at"}

func (r *repository) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	q, args, err := qb.Insert(userTableName).
		Columns("id", "email", "name", "password_hash").
		Values(uuid.NewString(), user.Email, user.Name, user.PasswordHash).
		Suffix("RETURNING id, email, name, password_hash, created_at").
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	var res model.User
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		err = r.classify(err, "create user", "")
		if errors.Is(err, errs.ErrConflict) {
			return model.User{}, errs.Conflict("user with email %s already exists", user.Email)
		}
		return model.User{}, err
	}
	return res, nil
}

func (r *repository) GetUser(ctx context.Context, id string) (model.User, error) {
	if !validID(id) {
		return model.User{}, errs.NotFound("user not found")
	}
	return r.getUser(ctx, sq.Eq{"id": id})
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getUser(ctx, sq.Eq{"email": email})
}

func (r *repository) getUser(ctx context.Context, where sq.Eq) (model.User, error) {
	q, args, err := qb.Select(userColumns...).
		From(userTableName).
		Where(where).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	var res model.User
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		return model.User{}, r.classify(err, "get user", "user not found")
	}
	return res, nil
}
