package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"booklibrary/internal/auth"
	apperrors "booklibrary/internal/errors"
	"booklibrary/internal/model"
	"booklibrary/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 42
	}
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Blacklist(ctx context.Context, tokenID string, userID uint, expiresAt time.Time) error {
	args := m.Called(ctx, tokenID, userID, expiresAt)
	return args.Error(0)
}

func (m *MockTokenStore) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func newTestJWT() *auth.JWTService {
	return auth.NewJWTService("test-secret", 15*time.Minute, time.Hour)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		input         RegisterInput
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:  "successful registration lowercases email",
			input: RegisterInput{Email: "Test@Example.com", FirstName: "Test", LastName: "User", Password: "password123", Password2: "password123"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, repository.ErrNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:  "user already exists",
			input: RegisterInput{Email: "existing@example.com", Password: "password123", Password2: "password123"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "existing@example.com").Return(&model.User{Email: "existing@example.com"}, nil)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:  "concurrent duplicate insert",
			input: RegisterInput{Email: "race@example.com", Password: "password123", Password2: "password123"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "race@example.com").Return(nil, repository.ErrNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrDuplicate)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:          "password mismatch",
			input:         RegisterInput{Email: "a@example.com", Password: "password123", Password2: "password124"},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrPasswordMismatch,
		},
		{
			name:          "missing confirmation",
			input:         RegisterInput{Email: "a@example.com", Password: "password123"},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrPasswordRequired,
		},
		{
			name:          "missing email",
			input:         RegisterInput{Email: "  ", Password: "x", Password2: "x"},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrEmailRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			service := NewAuthService(mockRepo, newTestJWT(), new(MockTokenStore))
			user, err := service.Register(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "test@example.com", user.Email)
				assert.Equal(t, "Test", user.FirstName)
				assert.True(t, user.IsActive)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.input.Password)))
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID: 5, Email: "test@example.com", PasswordHash: hashed(t, "password123"), IsActive: true, IsOnboarded: true,
				}, nil)
			},
		},
		{
			name:     "invalid credentials - user not found",
			email:    "notfound@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, repository.ErrNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "invalid credentials - wrong password",
			email:    "test@example.com",
			password: "wrong",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID: 5, Email: "test@example.com", PasswordHash: hashed(t, "password123"), IsActive: true,
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "suspended account",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID: 5, Email: "test@example.com", PasswordHash: hashed(t, "password123"),
				}, nil)
			},
			expectedError: apperrors.ErrAccountSuspended,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			jwtService := newTestJWT()
			service := NewAuthService(mockRepo, jwtService, new(MockTokenStore))
			result, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.True(t, result.User.IsOnboarded)
				claims, err := jwtService.ValidateTokenOfType(result.AccessToken, auth.TokenTypeAccess)
				require.NoError(t, err)
				assert.Equal(t, uint(5), claims.UserID)
				_, err = jwtService.ValidateTokenOfType(result.RefreshToken, auth.TokenTypeRefresh)
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	jwtService := newTestJWT()
	tokenID, refresh, err := jwtService.GenerateRefreshToken(5, "test@example.com")
	require.NoError(t, err)
	access, err := jwtService.GenerateAccessToken(5, "test@example.com")
	require.NoError(t, err)

	tests := []struct {
		name          string
		token         string
		setupMock     func(*MockUserRepository, *MockTokenStore)
		expectedError error
	}{
		{
			name:  "successful refresh",
			token: refresh,
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mToken.On("IsBlacklisted", mock.Anything, tokenID).Return(false, nil)
				mRepo.On("FindByID", mock.Anything, uint(5)).Return(&model.User{ID: 5, Email: "test@example.com", IsActive: true}, nil)
			},
		},
		{
			name:          "access token is rejected",
			token:         access,
			setupMock:     func(*MockUserRepository, *MockTokenStore) {},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
		{
			name:  "blacklisted token",
			token: refresh,
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mToken.On("IsBlacklisted", mock.Anything, tokenID).Return(true, nil)
			},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
		{
			name:  "user no longer exists",
			token: refresh,
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mToken.On("IsBlacklisted", mock.Anything, tokenID).Return(false, nil)
				mRepo.On("FindByID", mock.Anything, uint(5)).Return(nil, repository.ErrNotFound)
			},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
		{
			name:  "inactive user",
			token: refresh,
			setupMock: func(mRepo *MockUserRepository, mToken *MockTokenStore) {
				mToken.On("IsBlacklisted", mock.Anything, tokenID).Return(false, nil)
				mRepo.On("FindByID", mock.Anything, uint(5)).Return(&model.User{ID: 5}, nil)
			},
			expectedError: apperrors.ErrUserInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockRepo, mockTokenStore)

			service := NewAuthService(mockRepo, jwtService, mockTokenStore)
			accessToken, err := service.RefreshToken(context.Background(), tt.token)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Empty(t, accessToken)
			} else {
				require.NoError(t, err)
				_, err := jwtService.ValidateTokenOfType(accessToken, auth.TokenTypeAccess)
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	jwtService := newTestJWT()
	tokenID, refresh, err := jwtService.GenerateRefreshToken(5, "test@example.com")
	require.NoError(t, err)

	tests := []struct {
		name          string
		userID        uint
		token         string
		setupMock     func(*MockTokenStore)
		expectedError error
	}{
		{
			name:   "successful logout",
			userID: 5,
			token:  refresh,
			setupMock: func(m *MockTokenStore) {
				m.On("IsBlacklisted", mock.Anything, tokenID).Return(false, nil)
				m.On("Blacklist", mock.Anything, tokenID, uint(5), mock.AnythingOfType("time.Time")).Return(nil)
			},
		},
		{
			name:          "missing token",
			userID:        5,
			setupMock:     func(*MockTokenStore) {},
			expectedError: apperrors.ErrRefreshRequired,
		},
		{
			name:          "malformed token",
			userID:        5,
			token:         "garbage",
			setupMock:     func(*MockTokenStore) {},
			expectedError: apperrors.ErrInvalidToken,
		},
		{
			name:          "token of another user",
			userID:        6,
			token:         refresh,
			setupMock:     func(*MockTokenStore) {},
			expectedError: apperrors.ErrInvalidToken,
		},
		{
			name:   "already blacklisted",
			userID: 5,
			token:  refresh,
			setupMock: func(m *MockTokenStore) {
				m.On("IsBlacklisted", mock.Anything, tokenID).Return(true, nil)
			},
			expectedError: apperrors.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockTokenStore)

			service := NewAuthService(new(MockUserRepository), jwtService, mockTokenStore)
			err := service.Logout(context.Background(), tt.userID, tt.token)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
			} else {
				assert.NoError(t, err)
			}
			mockTokenStore.AssertExpectations(t)
		})
	}
}
