package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/book-lending/lending/internal/model"
)

func (h *Handler) SignUp(c echo.Context) error {
	var req model.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, err := h.userSvc.SignUp(c.Request().Context(), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, model.SignUpResponse{User: user})
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Provide email and password")
	}
	resp, err := h.userSvc.Login(c.Request().Context(), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Verify(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	user, err := h.userSvc.Get(c.Request().Context(), userID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, model.VerifyResponse{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	})
}
