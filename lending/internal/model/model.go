package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Owner is the public contact card of a copy owner.
type Owner struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// Authors is stored as a jsonb array.
type Authors []string

func (a Authors) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}

func (a *Authors) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = Authors{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("authors: unsupported type %T", src)
	}
	return json.Unmarshal(data, (*[]string)(a))
}

type BookCopy struct {
	ID            string    `json:"id" db:"id"`
	ExternalID    string    `json:"externalId" db:"external_id"`
	Title         string    `json:"title" db:"title"`
	Authors       Authors   `json:"authors" db:"authors"`
	CoverURL      string    `json:"coverUrl" db:"cover_url"`
	PublishedYear int       `json:"publishedYear" db:"published_year"`
	Owner         string    `json:"owner" db:"owner_id"`
	IsAvailable   bool      `json:"isAvailable" db:"is_available"`
	MaxDuration   int       `json:"maxDuration" db:"max_duration"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

type Reservation struct {
	ID          string    `json:"id" db:"id"`
	RequestedBy string    `json:"requestedBy" db:"requested_by"`
	Book        string    `json:"book" db:"book_id"`
	StartDate   time.Time `json:"startDate" db:"start_date"`
	EndDate     time.Time `json:"endDate" db:"end_date"`
}

// ReservationView is a reservation with its requester, copy and copy owner resolved.
type ReservationView struct {
	ID          string       `json:"id"`
	RequestedBy Owner        `json:"requestedBy"`
	Book        BookCopyView `json:"book"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
}

// BookCopyView shadows the owner id with the resolved owner.
type BookCopyView struct {
	BookCopy
	Owner Owner `json:"owner"`
}

type CreateReservationRequest struct {
	BookCopyID    string `json:"bookCopyId" validate:"required"`
	RequestedDays int    `json:"requestedDays"`
}

// UpdateReservationRequest accepts either a day count or a target end date.
type UpdateReservationRequest struct {
	RequestedDays *int       `json:"requestedDays"`
	EndDate       *time.Time `json:"endDate"`
}

type ReservationResponse struct {
	Message     string           `json:"message"`
	Reservation *ReservationView `json:"reservation,omitempty"`
}

type CreateCopyRequest struct {
	ExternalID    string   `json:"externalId" validate:"required"`
	Title         string   `json:"title" validate:"required"`
	Authors       []string `json:"authors"`
	CoverURL      string   `json:"coverUrl"`
	PublishedYear int      `json:"publishedYear" validate:"gte=0"`
	MaxDuration   int      `json:"maxDuration" validate:"omitempty,min=1,max=30"`
}

// UpdateCopyRequest holds the mutable metadata of a copy. Availability is not part of it.
type UpdateCopyRequest struct {
	Title         *string  `json:"title" validate:"omitempty,min=1"`
	Authors       []string `json:"authors"`
	CoverURL      *string  `json:"coverUrl"`
	PublishedYear *int     `json:"publishedYear" validate:"omitempty,gte=0"`
	MaxDuration   *int     `json:"maxDuration" validate:"omitempty,min=1,max=30"`
}

type AvailableCopy struct {
	ID                   string `json:"id"`
	Owner                Owner  `json:"owner"`
	MaxDuration          int    `json:"maxDuration"`
	IsOwnedByCurrentUser bool   `json:"isOwnedByCurrentUser"`
}

type AvailableBook struct {
	ExternalID    string          `json:"externalId"`
	Title         string          `json:"title"`
	Authors       Authors         `json:"authors"`
	CoverURL      string          `json:"coverUrl"`
	PublishedYear int             `json:"publishedYear"`
	Copies        []AvailableCopy `json:"copies"`
}

type BrowseBook struct {
	ExternalID     string  `json:"externalId"`
	Title          string  `json:"title"`
	Authors        Authors `json:"authors"`
	CoverURL       string  `json:"coverUrl"`
	PublishedYear  int     `json:"publishedYear"`
	AvailableCount int     `json:"availableCount"`
}

// AvailableCopyRow is one available copy joined with its owner.
type AvailableCopyRow struct {
	BookCopy
	OwnerName  string `db:"owner_name"`
	OwnerEmail string `db:"owner_email"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AuthToken string    `json:"authToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SignUpResponse struct {
	User User `json:"user"`
}

type VerifyResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CatalogBook struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	PublishedYear string   `json:"publishedYear,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	CoverURL      string   `json:"coverUrl,omitempty"`
	Language      string   `json:"language,omitempty"`
	Subjects      []string `json:"subjects"`
	Source        string   `json:"source"`
}
