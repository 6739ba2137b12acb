package handler

import (
	"context"
	"time"

	"github.com/Astemirdum/book-lending/lending/internal/catalog"
	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/lending/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type ReservationService interface {
	Create(ctx context.Context, copyID, requesterID string, days int) (model.ReservationView, error)
	UpdateDuration(ctx context.Context, reservationID, requesterID string, days int) (model.ReservationView, error)
	UpdateEndDate(ctx context.Context, reservationID, requesterID string, end time.Time) (model.ReservationView, error)
	Cancel(ctx context.Context, reservationID, requesterID string) error
	List(ctx context.Context, requesterID string) ([]model.ReservationView, error)
}

type CopyService interface {
	Create(ctx context.Context, ownerID string, req model.CreateCopyRequest) (model.BookCopy, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.BookCopy, error)
	Update(ctx context.Context, id, ownerID string, req model.UpdateCopyRequest) (model.BookCopy, error)
	Delete(ctx context.Context, id, ownerID string) error
	SearchAvailable(ctx context.Context, q, currentUserID string) ([]model.AvailableBook, error)
	Browse(ctx context.Context, q string) ([]model.BrowseBook, error)
}

type UserService interface {
	SignUp(ctx context.Context, req model.SignUpRequest) (model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error)
	Get(ctx context.Context, id string) (model.User, error)
}

type CatalogService interface {
	Search(ctx context.Context, q string) ([]model.CatalogBook, error)
}

var (
	_ ReservationService = (*service.ReservationService)(nil)
	_ CopyService        = (*service.CopyService)(nil)
	_ UserService        = (*service.UserService)(nil)
	_ CatalogService     = (*catalog.Aggregator)(nil)
)
