package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/book-lending/lending/internal/model"
)

func (h *Handler) CreateCopy(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	var req model.CreateCopyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bc, err := h.copySvc.Create(c.Request().Context(), userID, req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, bc)
}

func (h *Handler) GetMyBooks(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	items, err := h.copySvc.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateCopy(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	var req model.UpdateCopyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bc, err := h.copySvc.Update(c.Request().Context(), c.Param("id"), userID, req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, bc)
}

func (h *Handler) DeleteCopy(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	if err := h.copySvc.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, model.MessageResponse{Message: "The book has been removed from your library"})
}

func (h *Handler) SearchAvailableBooks(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	books, err := h.copySvc.SearchAvailable(c.Request().Context(), c.QueryParam("q"), userID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) BrowseAvailableBooks(c echo.Context) error {
	books, err := h.copySvc.Browse(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, books)
}
