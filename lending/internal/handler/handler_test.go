package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/handler"
	mock_handler "github.com/Astemirdum/book-lending/lending/internal/handler/mocks"
	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/pkg/auth"
	"github.com/Astemirdum/book-lending/pkg/middleware"
)

const (
	userID  = "83575e12-7ce0-48ee-9931-51919ff3c9ee"
	copyID  = "f7cdc58f-2caf-4b15-9727-f89dcc629b27"
	rsvID   = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	baseURL = "/api/v1"
)

type fixture struct {
	reservations *mock_handler.MockReservationService
	copies       *mock_handler.MockCopyService
	users        *mock_handler.MockUserService
	catalog      *mock_handler.MockCatalogService
	token        string
	router       http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	tm := auth.NewTokenManager(auth.Config{Secret: "secret", TTL: time.Hour})
	token, _, err := tm.Issue(userID, "Ann", "ann@mail.com")
	require.NoError(t, err)

	f := fixture{
		reservations: mock_handler.NewMockReservationService(ctrl),
		copies:       mock_handler.NewMockCopyService(ctrl),
		users:        mock_handler.NewMockUserService(ctrl),
		catalog:      mock_handler.NewMockCatalogService(ctrl),
		token:        token,
	}
	f.router = handler.New(f.reservations, f.copies, f.users, f.catalog, tm, zap.NewNop()).NewRouter()
	return f
}

func (f fixture) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, baseURL+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set(middleware.AuthorizationHeader, "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestHandler_CreateReservation(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	view := model.ReservationView{
		ID:          rsvID,
		RequestedBy: model.Owner{ID: userID, Name: "Ann"},
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 7),
	}

	tests := []struct {
		name       string
		body       string
		setup      func(f fixture)
		wantStatus int
		wantMsg    string
	}{
		{
			name: "created",
			body: `{"bookCopyId":"` + copyID + `","requestedDays":7}`,
			setup: func(f fixture) {
				f.reservations.EXPECT().Create(gomock.Any(), copyID, userID, 7).Return(view, nil)
			},
			wantStatus: http.StatusCreated,
			wantMsg:    "Book reserved successfully",
		},
		{
			name: "over limit",
			body: `{"bookCopyId":"` + copyID + `","requestedDays":20}`,
			setup: func(f fixture) {
				f.reservations.EXPECT().Create(gomock.Any(), copyID, userID, 20).
					Return(model.ReservationView{}, errs.Invalid("requested days exceed the maximum of %d days for this book", 14))
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "requested days exceed the maximum of 14 days for this book",
		},
		{
			name: "not available",
			body: `{"bookCopyId":"` + copyID + `","requestedDays":3}`,
			setup: func(f fixture) {
				f.reservations.EXPECT().Create(gomock.Any(), copyID, userID, 3).
					Return(model.ReservationView{}, errs.Conflict("book is not available for reservation"))
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "book is not available for reservation",
		},
		{
			name: "copy not found",
			body: `{"bookCopyId":"` + copyID + `","requestedDays":3}`,
			setup: func(f fixture) {
				f.reservations.EXPECT().Create(gomock.Any(), copyID, userID, 3).
					Return(model.ReservationView{}, errs.NotFound("book copy not found"))
			},
			wantStatus: http.StatusNotFound,
			wantMsg:    "book copy not found",
		},
		{
			name: "store down",
			body: `{"bookCopyId":"` + copyID + `","requestedDays":3}`,
			setup: func(f fixture) {
				f.reservations.EXPECT().Create(gomock.Any(), copyID, userID, 3).
					Return(model.ReservationView{}, errors.Wrap(errs.ErrTransient, "dial tcp 10.0.0.1:5432"))
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
		{
			name:       "missing copy id",
			body:       `{"requestedDays":3}`,
			setup:      func(f fixture) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"bookCopyId":`,
			setup:      func(f fixture) {},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			rec := f.do(http.MethodPost, "/reservations", tt.body, true)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				require.Equal(t, tt.wantMsg, message(t, rec))
			}
		})
	}
}

func TestHandler_CreateReservation_Unauthorized(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/reservations", `{"bookCopyId":"`+copyID+`","requestedDays":3}`, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body middleware.TokenError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, middleware.CodeTokenMissing, body.Code)
}

func TestHandler_UpdateReservation(t *testing.T) {
	end := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	t.Run("days", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().UpdateDuration(gomock.Any(), rsvID, userID, 10).
			Return(model.ReservationView{ID: rsvID}, nil)

		rec := f.do(http.MethodPut, "/reservations/"+rsvID, `{"requestedDays":10}`, true)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Reservation updated successfully", message(t, rec))
	})

	t.Run("end date", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().UpdateEndDate(gomock.Any(), rsvID, userID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, got time.Time) (model.ReservationView, error) {
				require.True(t, end.Equal(got))
				return model.ReservationView{ID: rsvID}, nil
			})

		rec := f.do(http.MethodPut, "/reservations/"+rsvID, `{"endDate":"2024-03-10T10:00:00Z"}`, true)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().UpdateDuration(gomock.Any(), rsvID, userID, 3).
			Return(model.ReservationView{}, errs.Forbidden("not allowed to modify this reservation"))

		rec := f.do(http.MethodPut, "/reservations/"+rsvID, `{"requestedDays":3}`, true)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(http.MethodPut, "/reservations/"+rsvID, `{}`, true)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_CancelReservation(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().Cancel(gomock.Any(), rsvID, userID).Return(nil)

		rec := f.do(http.MethodDelete, "/reservations/"+rsvID, "", true)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Reservation cancelled successfully", message(t, rec))
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		f.reservations.EXPECT().Cancel(gomock.Any(), "missing", userID).Return(errs.NotFound("reservation not found"))

		rec := f.do(http.MethodDelete, "/reservations/missing", "", true)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_GetReservations(t *testing.T) {
	f := newFixture(t)
	f.reservations.EXPECT().List(gomock.Any(), userID).Return([]model.ReservationView{{ID: rsvID}}, nil)

	rec := f.do(http.MethodGet, "/reservations", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []model.ReservationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, rsvID, items[0].ID)
}

func TestHandler_Copies(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		f := newFixture(t)
		req := model.CreateCopyRequest{ExternalID: "OL1M", Title: "Dune", Authors: []string{"Frank Herbert"}}
		f.copies.EXPECT().Create(gomock.Any(), userID, req).
			Return(model.BookCopy{ID: copyID, Title: "Dune", MaxDuration: 14, IsAvailable: true}, nil)

		rec := f.do(http.MethodPost, "/mybooks", `{"externalId":"OL1M","title":"Dune","authors":["Frank Herbert"]}`, true)
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("create invalid max duration", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(http.MethodPost, "/mybooks", `{"externalId":"OL1M","title":"Dune","maxDuration":60}`, true)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete reserved", func(t *testing.T) {
		f := newFixture(t)
		f.copies.EXPECT().Delete(gomock.Any(), copyID, userID).
			Return(errs.Invalid("cannot remove a book that is currently reserved"))

		rec := f.do(http.MethodDelete, "/mybooks/"+copyID, "", true)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("browse is public", func(t *testing.T) {
		f := newFixture(t)
		f.copies.EXPECT().Browse(gomock.Any(), "dune").
			Return([]model.BrowseBook{{ExternalID: "OL1M", AvailableCount: 2}}, nil)

		rec := f.do(http.MethodGet, "/browse-available-books?q=dune", "", false)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("search requires token", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(http.MethodGet, "/search-available-books?q=dune", "", false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("search", func(t *testing.T) {
		f := newFixture(t)
		f.copies.EXPECT().SearchAvailable(gomock.Any(), "dune", userID).
			Return([]model.AvailableBook{{ExternalID: "OL1M"}}, nil)

		rec := f.do(http.MethodGet, "/search-available-books?q=dune", "", true)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHandler_SearchBooks(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Search(gomock.Any(), "dune").
			Return([]model.CatalogBook{{ID: "/works/OL45804W", Source: "openlibrary"}}, nil)

		rec := f.do(http.MethodGet, "/search-books?q=dune", "", false)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("providers down", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Search(gomock.Any(), "dune").
			Return(nil, errors.Wrap(errs.ErrUpstream, "all catalog providers failed"))

		rec := f.do(http.MethodGet, "/search-books?q=dune", "", false)
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHandler_Auth(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Login(gomock.Any(), model.LoginRequest{Email: "ann@mail.com", Password: "secret1"}).
			Return(model.LoginResponse{AuthToken: "token"}, nil)

		rec := f.do(http.MethodPost, "/auth/login", `{"email":"ann@mail.com","password":"secret1"}`, false)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(model.LoginResponse{}, errs.Unauthorized("Unable to authenticate the user"))

		rec := f.do(http.MethodPost, "/auth/login", `{"email":"ann@mail.com","password":"nope"}`, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("signup duplicate", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().SignUp(gomock.Any(), gomock.Any()).
			Return(model.User{}, errs.Conflict("user with email ann@mail.com already exists"))

		rec := f.do(http.MethodPost, "/auth/signup", `{"email":"ann@mail.com","password":"secret1","name":"Ann"}`, false)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("verify", func(t *testing.T) {
		f := newFixture(t)
		f.users.EXPECT().Get(gomock.Any(), userID).Return(model.User{ID: userID, Name: "Ann", Email: "ann@mail.com"}, nil)

		rec := f.do(http.MethodGet, "/auth/verify", "", true)
		require.Equal(t, http.StatusOK, rec.Code)

		var body model.VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, userID, body.UserID)
	})
}

func TestHandler_Health(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/manage/health", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}
