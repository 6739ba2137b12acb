package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-lending/lending/internal/errs"
	_ "github.com/Astemirdum/book-lending/lending/swagger"
	"github.com/Astemirdum/book-lending/pkg/auth"
	mw "github.com/Astemirdum/book-lending/pkg/middleware"
	"github.com/Astemirdum/book-lending/pkg/validate"
)

type Handler struct {
	reservationSvc ReservationService
	copySvc        CopyService
	userSvc        UserService
	catalogSvc     CatalogService
	verifier       auth.Verifier
	log            *zap.Logger
}

func New(
	reservationSvc ReservationService,
	copySvc CopyService,
	userSvc UserService,
	catalogSvc CatalogService,
	verifier auth.Verifier,
	log *zap.Logger,
) *Handler {
	return &Handler{
		reservationSvc: reservationSvc,
		copySvc:        copySvc,
		userSvc:        userSvc,
		catalogSvc:     catalogSvc,
		verifier:       verifier,
		log:            log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.HideBanner = true
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", mw.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(mw.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		mw.NewRateLimiter(apiRPS),
	)
	api.POST("/auth/signup", h.SignUp)
	api.POST("/auth/login", h.Login)
	api.GET("/browse-available-books", h.BrowseAvailableBooks)
	api.GET("/search-books", h.SearchBooks)

	authed := api.Group("", mw.JwtAuthentication(h.verifier))
	authed.GET("/auth/verify", h.Verify)

	authed.POST("/reservations", h.CreateReservation)
	authed.GET("/reservations", h.GetReservations)
	authed.PUT("/reservations/:id", h.UpdateReservation)
	authed.DELETE("/reservations/:id", h.CancelReservation)

	authed.POST("/mybooks", h.CreateCopy)
	authed.GET("/mybooks", h.GetMyBooks)
	authed.PUT("/mybooks/:id", h.UpdateCopy)
	authed.DELETE("/mybooks/:id", h.DeleteCopy)
	authed.GET("/search-available-books", h.SearchAvailableBooks)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

const internalErrorMessage = "Internal server error"

// httpError maps service error kinds onto status codes. Unknown errors are logged and hidden.
func (h *Handler) httpError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrInvalidRequest), errors.Is(err, errs.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, errs.ErrUpstream):
		h.log.Warn("upstream failure", zap.String("path", c.Path()), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Book search providers are unavailable")
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return echo.NewHTTPError(status, internalErrorMessage)
	}
	return echo.NewHTTPError(status, errs.Message(err, http.StatusText(status)))
}

func (h *Handler) userID(c echo.Context) (string, error) {
	userID, err := auth.GetUserID(c.Request().Context())
	if err != nil {
		return "", echo.NewHTTPError(http.StatusUnauthorized, mw.TokenError{
			Message: "Authentication failed",
			Code:    mw.CodeAuthFailed,
		})
	}
	return userID, nil
}
