package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/lending/internal/repository"
)

// memStore keeps users, copies and reservations in memory with the same
// conditional update semantics as the sql repository.
type memStore struct {
	mu           sync.Mutex
	users        map[string]model.User
	copies       map[string]model.BookCopy
	reservations map[string]model.Reservation

	failInsert error
	failDelete error

	// afterListExpired runs once, unlocked, after ListExpired has built its result.
	afterListExpired func()
}

var _ repository.Repository = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]model.User),
		copies:       make(map[string]model.BookCopy),
		reservations: make(map[string]model.Reservation),
	}
}

func (m *memStore) addUser(name string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{ID: uuid.NewString(), Name: name, Email: strings.ToLower(name) + "@mail.com"}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addCopy(ownerID string, maxDuration int) model.BookCopy {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := model.BookCopy{
		ID:          uuid.NewString(),
		ExternalID:  "OL1M",
		Title:       "Dune",
		Authors:     model.Authors{"Frank Herbert"},
		Owner:       ownerID,
		IsAvailable: true,
		MaxDuration: maxDuration,
	}
	m.copies[c.ID] = c
	return c
}

func (m *memStore) copy(id string) model.BookCopy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copies[id]
}

func (m *memStore) reservationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

func (m *memStore) CreateUser(_ context.Context, user model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return model.User{}, errs.Conflict("user with email %s already exists", user.Email)
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, errs.NotFound("user not found")
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, errs.NotFound("user not found")
}

func (m *memStore) CreateCopy(_ context.Context, c model.BookCopy) (model.BookCopy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.NewString()
	c.IsAvailable = true
	m.copies[c.ID] = c
	return c, nil
}

func (m *memStore) GetCopy(_ context.Context, id string) (model.BookCopy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.copies[id]
	if !ok {
		return model.BookCopy{}, errs.NotFound("book copy not found")
	}
	return c, nil
}

func (m *memStore) ListCopiesByOwner(_ context.Context, ownerID string) ([]model.BookCopy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.BookCopy, 0)
	for _, c := range m.copies {
		if c.Owner == ownerID {
			items = append(items, c)
		}
	}
	return items, nil
}

func (m *memStore) UpdateCopy(_ context.Context, id, ownerID string, req model.UpdateCopyRequest) (model.BookCopy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.copies[id]
	if !ok || c.Owner != ownerID {
		return model.BookCopy{}, errs.NotFound("book copy not found")
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Authors != nil {
		c.Authors = req.Authors
	}
	if req.CoverURL != nil {
		c.CoverURL = *req.CoverURL
	}
	if req.PublishedYear != nil {
		c.PublishedYear = *req.PublishedYear
	}
	if req.MaxDuration != nil {
		c.MaxDuration = *req.MaxDuration
	}
	m.copies[id] = c
	return c, nil
}

func (m *memStore) DeleteCopy(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.copies[id]
	if !ok || c.Owner != ownerID {
		return errs.NotFound("book copy not found")
	}
	if !c.IsAvailable {
		return errs.Conflict("book copy is reserved and cannot be removed")
	}
	delete(m.copies, id)
	return nil
}

func (m *memStore) SetAvailability(_ context.Context, id string, expected, next bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.copies[id]
	if !ok || c.IsAvailable != expected {
		return false, nil
	}
	c.IsAvailable = next
	m.copies[id] = c
	return true, nil
}

func (m *memStore) SearchAvailable(_ context.Context, query string) ([]model.AvailableCopyRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(query)
	items := make([]model.AvailableCopyRow, 0)
	for _, c := range m.copies {
		if !c.IsAvailable {
			continue
		}
		match := strings.Contains(strings.ToLower(c.Title), query)
		for _, a := range c.Authors {
			match = match || strings.Contains(strings.ToLower(a), query)
		}
		if !match {
			continue
		}
		owner := m.users[c.Owner]
		items = append(items, model.AvailableCopyRow{BookCopy: c, OwnerName: owner.Name, OwnerEmail: owner.Email})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ExternalID != items[j].ExternalID {
			return items[i].ExternalID < items[j].ExternalID
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *memStore) CreateReservation(_ context.Context, r model.Reservation) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return model.Reservation{}, m.failInsert
	}
	for _, existing := range m.reservations {
		if existing.Book == r.Book {
			return model.Reservation{}, errs.Conflict("create reservation: already exists")
		}
	}
	r.ID = uuid.NewString()
	m.reservations[r.ID] = r
	return r, nil
}

func (m *memStore) GetReservation(_ context.Context, id string) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, errs.NotFound("reservation not found")
	}
	return r, nil
}

func (m *memStore) UpdateReservationEnd(_ context.Context, id string, endDate time.Time) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, errs.NotFound("reservation not found")
	}
	r.EndDate = endDate
	m.reservations[id] = r
	return r, nil
}

func (m *memStore) DeleteReservation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	if _, ok := m.reservations[id]; !ok {
		return errs.NotFound("reservation not found")
	}
	delete(m.reservations, id)
	return nil
}

func (m *memStore) view(r model.Reservation) model.ReservationView {
	requester := m.users[r.RequestedBy]
	c := m.copies[r.Book]
	owner := m.users[c.Owner]
	return model.ReservationView{
		ID:          r.ID,
		RequestedBy: model.Owner{ID: requester.ID, Name: requester.Name, Email: requester.Email},
		Book: model.BookCopyView{
			BookCopy: c,
			Owner:    model.Owner{ID: owner.ID, Name: owner.Name, Email: owner.Email},
		},
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
	}
}

func (m *memStore) GetReservationView(_ context.Context, id string) (model.ReservationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.ReservationView{}, errs.NotFound("reservation not found")
	}
	return m.view(r), nil
}

func (m *memStore) ListReservations(_ context.Context, userID string) ([]model.ReservationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.ReservationView, 0)
	for _, r := range m.reservations {
		if r.RequestedBy == userID {
			items = append(items, m.view(r))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].StartDate.After(items[j].StartDate)
	})
	return items, nil
}

func (m *memStore) ListExpired(_ context.Context, now time.Time) ([]model.Reservation, error) {
	m.mu.Lock()
	items := make([]model.Reservation, 0)
	for _, r := range m.reservations {
		if !r.EndDate.After(now) {
			items = append(items, r)
		}
	}
	hook := m.afterListExpired
	m.afterListExpired = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return items, nil
}

func (m *memStore) DeleteExpiredReservation(_ context.Context, id string, now time.Time) (model.Reservation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return model.Reservation{}, false, m.failDelete
	}
	r, ok := m.reservations[id]
	if !ok || r.EndDate.After(now) {
		return model.Reservation{}, false, nil
	}
	delete(m.reservations, id)
	return r, true, nil
}
