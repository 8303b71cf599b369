package router

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"booklibrary/internal/auth"
	"booklibrary/internal/handler"
	"booklibrary/internal/logging"
	"booklibrary/internal/metrics"
)

// Deps are the collaborators the routes are wired to.
type Deps struct {
	JWT     *auth.JWTService
	Users   auth.UserFinder
	Metrics *metrics.Collector
	Logger  *slog.Logger

	Auth  *handler.AuthHandler
	Books *handler.BookHandler
	Loans *handler.LoanHandler
	Admin *handler.AdminHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.JSONSerializer = JSONSerializer{}
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(logger))
	e.Use(middleware.Recover())
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
		e.GET("/metrics", d.Metrics.Handler())
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/accounts/register", d.Auth.Register)
	api.POST("/accounts/login", d.Auth.Login)
	api.POST("/accounts/refresh-token", d.Auth.Refresh)
	api.GET("/books", d.Books.ListBooks)
	api.GET("/books/:id", d.Books.GetBook)

	// Secured routes (require an access token of an active user)
	secured := api.Group("", auth.JWTMiddleware(d.JWT), auth.RequireUser(d.Users))

	secured.POST("/accounts/logout", d.Auth.Logout)
	secured.GET("/accounts/me", d.Auth.Me)

	secured.POST("/books/loan", d.Loans.CreateLoan)
	secured.POST("/books/end-loan/:id", d.Loans.EndLoan)
	secured.GET("/books/loans", d.Loans.ListLoans)

	// Staff routes
	admin := secured.Group("/admin", auth.RequireStaff())
	admin.GET("/authors", d.Admin.ListAuthors)
	admin.POST("/authors", d.Admin.CreateAuthor)
	admin.DELETE("/authors/:id", d.Admin.DeleteAuthor)
	admin.POST("/books", d.Admin.CreateBook)
	admin.DELETE("/books/:id", d.Admin.DeleteBook)
	admin.POST("/loans/end", d.Admin.EndLoans)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
