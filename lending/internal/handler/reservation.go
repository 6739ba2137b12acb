package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/book-lending/lending/internal/model"
)

// CreateReservation godoc
// @Summary      Reserve a book copy
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        request body model.CreateReservationRequest true "copy and loan length"
// @Success      201 {object} model.ReservationResponse
// @Failure      400 {object} errs.ValidationErrorResponse
// @Failure      403 {object} errs.ValidationErrorResponse
// @Failure      404 {object} errs.ValidationErrorResponse
// @Security     BearerAuth
// @Router       /reservations [post]
func (h *Handler) CreateReservation(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	var req model.CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rsv, err := h.reservationSvc.Create(c.Request().Context(), req.BookCopyID, userID, req.RequestedDays)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, model.ReservationResponse{
		Message:     "Book reserved successfully",
		Reservation: &rsv,
	})
}

// GetReservations godoc
// @Summary      List my reservations
// @Tags         reservations
// @Produce      json
// @Success      200 {array} model.ReservationView
// @Security     BearerAuth
// @Router       /reservations [get]
func (h *Handler) GetReservations(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	items, err := h.reservationSvc.List(c.Request().Context(), userID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// UpdateReservation godoc
// @Summary      Change the loan length
// @Description  Accepts requestedDays or endDate. The new end date is counted from the original start date.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        id path string true "reservation id"
// @Param        request body model.UpdateReservationRequest true "new loan length"
// @Success      200 {object} model.ReservationResponse
// @Failure      400 {object} errs.ValidationErrorResponse
// @Failure      403 {object} errs.ValidationErrorResponse
// @Failure      404 {object} errs.ValidationErrorResponse
// @Security     BearerAuth
// @Router       /reservations/{id} [put]
func (h *Handler) UpdateReservation(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	var req model.UpdateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ctx := c.Request().Context()
	var rsv model.ReservationView
	switch {
	case req.RequestedDays != nil:
		rsv, err = h.reservationSvc.UpdateDuration(ctx, c.Param("id"), userID, *req.RequestedDays)
	case req.EndDate != nil:
		rsv, err = h.reservationSvc.UpdateEndDate(ctx, c.Param("id"), userID, *req.EndDate)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "requestedDays or endDate is required")
	}
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, model.ReservationResponse{
		Message:     "Reservation updated successfully",
		Reservation: &rsv,
	})
}

// CancelReservation godoc
// @Summary      Cancel a reservation
// @Tags         reservations
// @Produce      json
// @Param        id path string true "reservation id"
// @Success      200 {object} model.MessageResponse
// @Failure      403 {object} errs.ValidationErrorResponse
// @Failure      404 {object} errs.ValidationErrorResponse
// @Security     BearerAuth
// @Router       /reservations/{id} [delete]
func (h *Handler) CancelReservation(c echo.Context) error {
	userID, err := h.userID(c)
	if err != nil {
		return err
	}
	if err := h.reservationSvc.Cancel(c.Request().Context(), c.Param("id"), userID); err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, model.MessageResponse{Message: "Reservation cancelled successfully"})
}
