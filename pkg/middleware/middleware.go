package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/Astemirdum/book-lending/pkg/auth"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "

	CodeTokenMissing = "TOKEN_MISSING"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeAuthFailed   = "AUTH_FAILED"
)

type TokenError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func unauthorized(msg, code string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, TokenError{Message: msg, Code: code})
}

// JwtAuthentication verifies the bearer token and puts the user id into the request context.
func JwtAuthentication(v auth.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if !strings.HasPrefix(authorization, bearer) {
				return unauthorized("Access token is missing or invalid", CodeTokenMissing)
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authorization, bearer))
			if tokenStr == "" {
				return unauthorized("Access token is missing or invalid", CodeTokenMissing)
			}

			claims, err := v.Verify(tokenStr)
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				return unauthorized("Access token has expired", CodeTokenExpired)
			case errors.Is(err, auth.ErrTokenInvalid):
				return unauthorized("Access token is invalid", CodeTokenInvalid)
			case err != nil:
				return unauthorized("Authentication failed", CodeAuthFailed)
			}

			req := c.Request()
			ctx := auth.SetAuthContext(req.Context(), claims.Subject)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
}
