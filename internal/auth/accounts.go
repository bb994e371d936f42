package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/pkg/crypto"
	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
	"github.com/charlesng35/sprintboard/pkg/metrics"
)

const minPasswordLength = 8

var (
	// ErrAccountDisabled signals that the user has been deactivated.
	ErrAccountDisabled = apperrors.New("ACCOUNT_DISABLED", "Account is disabled", http.StatusForbidden)
	// ErrAccountExists is returned when the username or email is taken.
	ErrAccountExists = apperrors.New("ACCOUNT_EXISTS", "Username or email already registered", http.StatusConflict)
	// ErrAccountNotFound indicates the authenticated user no longer exists.
	ErrAccountNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
)

// RegisterInput captures the details required to register a new local user.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// LoginInput carries a username or email together with the password.
type LoginInput struct {
	Identifier string
	Password   string
}

// AccountService implements the minimal local account store: registration,
// password login and lookup of the authenticated user.
type AccountService struct {
	db    *gorm.DB
	jwt   *JWTService
	clock func() time.Time
}

// NewAccountService builds an AccountService.
func NewAccountService(db *gorm.DB, jwt *JWTService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("account service: jwt service is required")
	}
	return &AccountService{db: db, jwt: jwt, clock: time.Now}, nil
}

// Register creates a new local user with a hashed password.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	switch {
	case username == "":
		return nil, apperrors.NewValidation("username", "username is required")
	case email == "":
		return nil, apperrors.NewValidation("email", "email is required")
	case len(input.Password) < minPasswordLength:
		return nil, apperrors.NewValidation("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hashed, err := crypto.HashPassword(input.Password)
	if errors.Is(err, crypto.ErrPasswordTooLong) {
		return nil, apperrors.NewValidation("password", "password is too long")
	}
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}

	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		DisplayName: displayName,
		IsActive:    true,
	}
	if err := s.db.WithContext(contextOrBackground(ctx)).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("account service: create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies the credentials and issues an access token.
func (s *AccountService) Authenticate(ctx context.Context, input LoginInput) (*models.User, AccessToken, error) {
	ctx = contextOrBackground(ctx)

	identity := strings.TrimSpace(input.Identifier)
	if identity == "" || input.Password == "" {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return nil, AccessToken{}, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", identity, identity).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return nil, AccessToken{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, AccessToken{}, fmt.Errorf("account service: query user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return nil, AccessToken{}, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("disabled").Inc()
		return nil, AccessToken{}, ErrAccountDisabled
	}

	now := s.clock().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, AccessToken{}, fmt.Errorf("account service: update last login: %w", err)
	}
	user.LastLoginAt = &now

	token, err := s.jwt.GenerateAccessToken(AccessTokenInput{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, AccessToken{}, fmt.Errorf("account service: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, token, nil
}

// Get loads an active user by id.
func (s *AccountService) Get(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(contextOrBackground(ctx)).Take(&user, "id = ?", strings.TrimSpace(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return &user, nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
