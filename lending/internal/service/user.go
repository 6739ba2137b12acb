package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/lending/internal/repository"
)

type TokenIssuer interface {
	Issue(userID, name, email string) (string, time.Time, error)
}

type UserService struct {
	log    *zap.Logger
	repo   repository.UserRepository
	tokens TokenIssuer
}

func NewUserService(repo repository.UserRepository, tokens TokenIssuer, log *zap.Logger) *UserService {
	return &UserService{
		log:    log.Named("user"),
		repo:   repo,
		tokens: tokens,
	}
}

func (s *UserService) SignUp(ctx context.Context, req model.SignUpRequest) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, errors.Wrap(err, "hash password")
	}
	return s.repo.CreateUser(ctx, model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
	})
}

func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.LoginResponse{}, errs.Unauthorized("Unable to authenticate the user")
		}
		return model.LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.LoginResponse{}, errs.Unauthorized("Unable to authenticate the user")
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Name, user.Email)
	if err != nil {
		return model.LoginResponse{}, errors.Wrap(err, "issue token")
	}
	return model.LoginResponse{AuthToken: token, ExpiresAt: expiresAt}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	return s.repo.GetUser(ctx, id)
}
