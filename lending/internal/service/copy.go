package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/lending/internal/repository"
)

const DefaultCopyMaxDays = 14

type CopyConfig struct {
	// DefaultMaxDays is assigned to copies registered without a loan limit.
	DefaultMaxDays int
	// MaxDays caps any loan limit an owner may set.
	MaxDays int
}

type CopyService struct {
	log  *zap.Logger
	repo repository.CopyRepository
	cfg  CopyConfig
}

func NewCopyService(repo repository.CopyRepository, cfg CopyConfig, log *zap.Logger) *CopyService {
	if cfg.DefaultMaxDays <= 0 {
		cfg.DefaultMaxDays = DefaultCopyMaxDays
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = DefaultMaxDurationDays
	}
	return &CopyService{
		log:  log.Named("copy"),
		repo: repo,
		cfg:  cfg,
	}
}

const copyNotOwned = "Book not found or you're not the owner"

func (s *CopyService) checkMaxDuration(days int) error {
	if days < 1 || days > s.cfg.MaxDays {
		return errs.Invalid("maxDuration must be between 1 and %d days", s.cfg.MaxDays)
	}
	return nil
}

func (s *CopyService) Create(ctx context.Context, ownerID string, req model.CreateCopyRequest) (model.BookCopy, error) {
	maxDuration := req.MaxDuration
	if maxDuration == 0 {
		maxDuration = s.cfg.DefaultMaxDays
	}
	if err := s.checkMaxDuration(maxDuration); err != nil {
		return model.BookCopy{}, err
	}
	authors := model.Authors(req.Authors)
	if authors == nil {
		authors = model.Authors{}
	}
	return s.repo.CreateCopy(ctx, model.BookCopy{
		ExternalID:    req.ExternalID,
		Title:         req.Title,
		Authors:       authors,
		CoverURL:      req.CoverURL,
		PublishedYear: req.PublishedYear,
		Owner:         ownerID,
		MaxDuration:   maxDuration,
	})
}

func (s *CopyService) ListByOwner(ctx context.Context, ownerID string) ([]model.BookCopy, error) {
	return s.repo.ListCopiesByOwner(ctx, ownerID)
}

func (s *CopyService) Update(ctx context.Context, id, ownerID string, req model.UpdateCopyRequest) (model.BookCopy, error) {
	if req.MaxDuration != nil {
		if err := s.checkMaxDuration(*req.MaxDuration); err != nil {
			return model.BookCopy{}, err
		}
	}
	c, err := s.repo.UpdateCopy(ctx, id, ownerID, req)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.BookCopy{}, errs.NotFound(copyNotOwned)
		}
		return model.BookCopy{}, err
	}
	return c, nil
}

// Delete removes an owner's copy. A copy under reservation cannot be removed.
func (s *CopyService) Delete(ctx context.Context, id, ownerID string) error {
	c, err := s.repo.GetCopy(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFound(copyNotOwned)
		}
		return err
	}
	if c.Owner != ownerID {
		return errs.NotFound(copyNotOwned)
	}
	if !c.IsAvailable {
		return errs.Invalid("cannot remove a book that is currently reserved")
	}
	return s.repo.DeleteCopy(ctx, id, ownerID)
}

func searchQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", errs.Invalid("Search query is required")
	}
	return q, nil
}

// SearchAvailable groups available copies by catalog id, with owner contact for each copy.
func (s *CopyService) SearchAvailable(ctx context.Context, q, currentUserID string) ([]model.AvailableBook, error) {
	q, err := searchQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.SearchAvailable(ctx, q)
	if err != nil {
		return nil, err
	}

	books := make([]model.AvailableBook, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.ExternalID]
		if !ok {
			i = len(books)
			index[row.ExternalID] = i
			books = append(books, model.AvailableBook{
				ExternalID:    row.ExternalID,
				Title:         row.Title,
				Authors:       row.Authors,
				CoverURL:      row.CoverURL,
				PublishedYear: row.PublishedYear,
			})
		}
		books[i].Copies = append(books[i].Copies, model.AvailableCopy{
			ID: row.ID,
			Owner: model.Owner{
				ID:    row.Owner,
				Name:  row.OwnerName,
				Email: row.OwnerEmail,
			},
			MaxDuration:          row.MaxDuration,
			IsOwnedByCurrentUser: row.Owner == currentUserID,
		})
	}
	return books, nil
}

// Browse is the anonymous variant of SearchAvailable: copy counts only, no owner data.
func (s *CopyService) Browse(ctx context.Context, q string) ([]model.BrowseBook, error) {
	q, err := searchQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.SearchAvailable(ctx, q)
	if err != nil {
		return nil, err
	}

	books := make([]model.BrowseBook, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.ExternalID]
		if !ok {
			i = len(books)
			index[row.ExternalID] = i
			books = append(books, model.BrowseBook{
				ExternalID:    row.ExternalID,
				Title:         row.Title,
				Authors:       row.Authors,
				CoverURL:      row.CoverURL,
				PublishedYear: row.PublishedYear,
			})
		}
		books[i].AvailableCount++
	}
	return books, nil
}
