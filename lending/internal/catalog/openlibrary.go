package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/Astemirdum/book-lending/lending/internal/model"
	"github.com/Astemirdum/book-lending/pkg/circuit_breaker"
)

const (
	SourceOpenLibrary = "openlibrary"
	openLibraryLimit  = 7
	maxSubjects       = 5
)

type openLibraryResponse struct {
	Docs []openLibraryDoc `json:"docs"`
}

type openLibraryDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
	Language         []string `json:"language"`
	Subject          []string `json:"subject"`
}

type OpenLibrary struct {
	conn *resty.Client
	cb   circuit_breaker.CircuitBreaker
}

func NewOpenLibrary(cfg ClientConfig) *OpenLibrary {
	return &OpenLibrary{
		conn: newRestyClient(cfg),
		cb:   circuit_breaker.New(SourceOpenLibrary, cfg.Breaker),
	}
}

func (c *OpenLibrary) Name() string { return SourceOpenLibrary }

func (c *OpenLibrary) Search(ctx context.Context, q string) ([]model.CatalogBook, error) {
	var books []model.CatalogBook
	err := c.cb.Call(func() error {
		var err error
		books, err = c.search(ctx, q)
		return err
	})
	return books, err
}

func (c *OpenLibrary) search(ctx context.Context, q string) ([]model.CatalogBook, error) {
	resp, err := c.conn.R().
		SetContext(ctx).
		SetQueryParam("q", q).
		SetQueryParam("limit", strconv.Itoa(openLibraryLimit)).
		SetResult(&openLibraryResponse{}).
		Get("/search.json")
	if err != nil {
		return nil, errors.Wrap(err, "openlibrary request")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Wrapf(ErrInvalidStatusCode, "openlibrary: %d", resp.StatusCode())
	}
	data, ok := resp.Result().(*openLibraryResponse)
	if !ok {
		return nil, errors.New("openlibrary: unexpected response")
	}

	books := make([]model.CatalogBook, 0, len(data.Docs))
	for _, doc := range data.Docs {
		book := model.CatalogBook{
			ID:       doc.Key,
			Title:    doc.Title,
			Authors:  stringsOrEmpty(doc.AuthorName),
			Subjects: stringsOrEmpty(doc.Subject),
			Source:   SourceOpenLibrary,
		}
		if doc.FirstPublishYear > 0 {
			book.PublishedYear = strconv.Itoa(doc.FirstPublishYear)
		}
		if len(doc.ISBN) > 0 {
			book.ISBN = doc.ISBN[0]
		}
		if doc.CoverI > 0 {
			book.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverI)
		}
		if len(doc.Language) > 0 {
			book.Language = doc.Language[0]
		}
		if len(book.Subjects) > maxSubjects {
			book.Subjects = book.Subjects[:maxSubjects]
		}
		books = append(books, book)
	}
	return books, nil
}
