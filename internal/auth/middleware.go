package auth

import (
	"context"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "booklibrary/internal/errors"
	"booklibrary/internal/model"
)

const (
	claimsContextKey = "user"
	userContextKey   = "current_user"
)

// UserFinder loads users by id.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// JWTMiddleware validates the bearer access token and stores its *Claims in
// the echo context.
func JWTMiddleware(svc *JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return svc.ValidateTokenOfType(token, TokenTypeAccess)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthenticated()
		},
	})
}

// RequireUser resolves the authenticated user and rejects inactive or deleted accounts.
func RequireUser(users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(claimsContextKey).(*Claims)
			if !ok {
				return unauthenticated()
			}
			user, err := users.FindByID(c.Request().Context(), claims.UserID)
			if err != nil || !user.IsActive {
				return unauthenticated()
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireStaff rejects users without the staff flag. It must run after RequireUser.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return unauthenticated()
			}
			if !user.IsStaff {
				e := apperrors.ErrStaffOnly
				return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{Error: e.Message, Code: e.Code})
			}
			return next(c)
		}
	}
}

// CurrentUser returns the user loaded by RequireUser.
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(userContextKey).(*model.User)
	return user, ok
}

func unauthenticated() error {
	e := apperrors.ErrUnauthenticated
	return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{Error: e.Message, Code: e.Code})
}
