package catalog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/pkg/circuit_breaker"
)

const (
	SourceGoogleBooks = "googlebooks"
	googleBooksLimit  = 10
)

type googleBooksResponse struct {
	Items []googleBooksItem `json:"items"`
}

type googleBooksItem struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		PublishedDate       string   `json:"publishedDate"`
		Language            string   `json:"language"`
		Categories          []string `json:"categories"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

type GoogleBooks struct {
	conn *resty.Client
	cb   circuit_breaker.CircuitBreaker
}

func NewGoogleBooks(cfg ClientConfig) *GoogleBooks {
	return &GoogleBooks{
		conn: newRestyClient(cfg),
		cb:   circuit_breaker.New(SourceGoogleBooks, cfg.Breaker),
	}
}

func (c *GoogleBooks) Name() string { return SourceGoogleBooks }

func (c *GoogleBooks) Search(ctx context.Context, q string) ([]model.CatalogBook, error) {
	var books []model.CatalogBook
	err := c.cb.Call(func() error {
		var err error
		books, err = c.search(ctx, q)
		return err
	})
	return books, err
}

func (c *GoogleBooks) search(ctx context.Context, q string) ([]model.CatalogBook, error) {
	resp, err := c.conn.R().
		SetContext(ctx).
		SetQueryParam("q", q).
		SetQueryParam("maxResults", strconv.Itoa(googleBooksLimit)).
		SetResult(&googleBooksResponse{}).
		Get("/books/v1/volumes")
	if err != nil {
		return nil, errors.Wrap(err, "googlebooks request")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Wrapf(ErrInvalidStatusCode, "googlebooks: %d", resp.StatusCode())
	}
	data, ok := resp.Result().(*googleBooksResponse)
	if !ok {
		return nil, errors.New("googlebooks: unexpected response")
	}

	books := make([]model.CatalogBook, 0, len(data.Items))
	for _, item := range data.Items {
		info := item.VolumeInfo
		book := model.CatalogBook{
			ID:       item.ID,
			Title:    info.Title,
			Authors:  stringsOrEmpty(info.Authors),
			Language: info.Language,
			Subjects: stringsOrEmpty(info.Categories),
			Source:   SourceGoogleBooks,
		}
		if len(info.PublishedDate) >= 4 {
			book.PublishedYear = info.PublishedDate[:4]
		}
		if len(info.IndustryIdentifiers) > 0 {
			book.ISBN = info.IndustryIdentifiers[0].Identifier
		}
		if thumb := info.ImageLinks.Thumbnail; thumb != "" {
			book.CoverURL = strings.Replace(thumb, "http://", "https://", 1)
		}
		books = append(books, book)
	}
	return books, nil
}
