package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) SearchBooks(c echo.Context) error {
	books, err := h.catalogSvc.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, books)
}
