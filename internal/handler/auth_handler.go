package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"booklibrary/internal/auth"
	"booklibrary/internal/errors"
	"booklibrary/internal/model"
	"booklibrary/internal/service"
)

// AuthHandler handles account endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// RegisterResponse echoes the registered profile.
type RegisterResponse struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the token pair and the profile flags the client needs.
type LoginResponse struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Refresh     string `json:"refresh"`
	Access      string `json:"access"`
	IsOnboarded bool   `json:"is_onboarded"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries a new access token.
type RefreshResponse struct {
	Access string `json:"access"`
}

// LogoutResponse confirms the refresh token was revoked.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

// UserResponse is the current user's profile.
type UserResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsVerified  bool   `json:"is_verified"`
	IsOnboarded bool   `json:"is_onboarded"`
	IsStaff     bool   `json:"is_staff"`
}

// Register godoc
// @Summary Register a new user
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	user, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Password2: req.Password2,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// Login godoc
// @Summary Login user
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		FirstName:   result.User.FirstName,
		LastName:    result.User.LastName,
		Refresh:     result.RefreshToken,
		Access:      result.AccessToken,
		IsOnboarded: result.User.IsOnboarded,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} RefreshResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts/refresh-token [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	accessToken, err := h.authService.RefreshToken(c.Request().Context(), req.Refresh)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, RefreshResponse{Access: accessToken})
}

// Logout godoc
// @Summary Logout user
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} LogoutResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /accounts/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: errors.ErrUnauthenticated.Message,
			Code:  errors.ErrUnauthenticated.Code,
		})
	}

	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	if err := h.authService.Logout(c.Request().Context(), user.ID, req.Refresh); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, LogoutResponse{Success: true, Detail: "Token Blacklisted."})
}

// Me godoc
// @Summary Current user profile
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /accounts/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: errors.ErrUnauthenticated.Message,
			Code:  errors.ErrUnauthenticated.Code,
		})
	}
	return c.JSON(http.StatusOK, newUserResponse(user))
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsVerified:  u.IsVerified,
		IsOnboarded: u.IsOnboarded,
		IsStaff:     u.IsStaff,
	}
}
