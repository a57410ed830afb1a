package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Claims is the JWT payload issued at login
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service authenticates users and issues HS256 tokens
type Service struct {
	db        *sql.DB
	secretKey []byte
	issuer    string
	tokenTTL  time.Duration
	logger    *logger.Logger
}

// NewService creates a new identity service
func NewService(db *sql.DB, secretKey, issuer string, tokenTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		db:        db,
		secretKey: []byte(secretKey),
		issuer:    issuer,
		tokenTTL:  tokenTTL,
		logger:    log,
	}
}

// Login verifies credentials and returns a signed access token
func (s *Service) Login(ctx context.Context, username, password string) (*types.TokenPair, error) {
	user, err := s.getUserByUsername(ctx, username)
	if err != nil {
		s.logger.WithField("username", username).Warn("Login attempt for unknown user")
		return nil, authFailed()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Audit(user.ID, "login", "user", user.ID, false)
		return nil, authFailed()
	}

	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to issue token", err)
	}

	s.logger.Audit(user.ID, "login", "user", user.ID, true)
	return &types.TokenPair{AccessToken: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and verifies an access token, returning the user it
// represents.
func (s *Service) ValidateToken(tokenString string) (*types.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, authFailed()
	}

	return &types.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// EnsureAdminUser creates the default admin account on first run so a fresh
// install is usable. Existing accounts are left untouched.
func (s *Service) EnsureAdminUser(ctx context.Context, username, password string) error {
	if _, err := s.getUserByUsername(ctx, username); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING`,
		username, string(hash), types.RoleAdmin, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.WithField("username", username).Info("Created default admin user")
	return nil
}

func (s *Service) issueToken(user *types.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.tokenTTL)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	return signed, expiresAt, err
}

func (s *Service) getUserByUsername(ctx context.Context, username string) (*types.User, error) {
	var user types.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1`, username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func authFailed() error {
	return &types.LabError{
		Type:    types.ErrorTypeValidation,
		Code:    types.ErrCodeAuthenticationFailed,
		Message: "invalid credentials",
	}
}
