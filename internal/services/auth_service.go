package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/models"
	"github.com/playdrop/backend/pkg/crypto"
	jwtpkg "github.com/playdrop/backend/pkg/jwt"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type AuthService struct {
	db    *gorm.DB
	redis *redis.Client
	cfg   *config.Config
}

func NewAuthService(db *gorm.DB, redis *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		db:    db,
		redis: redis,
		cfg:   cfg,
	}
}

// Login authenticates an operator and returns tokens
func (s *AuthService) Login(username, password string) (string, string, *models.User, error) {
	var user models.User

	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil, errors.New("invalid credentials")
		}
		return "", "", nil, err
	}

	if !user.IsActive {
		return "", "", nil, errors.New("account is deactivated")
	}

	if !crypto.CheckPassword(password, user.Password) {
		return "", "", nil, errors.New("invalid credentials")
	}

	accessToken, err := jwtpkg.GenerateToken(user.ID.String(), jwtpkg.AccessToken, s.cfg.JWTSecret, s.cfg.JWTAccessTokenDuration)
	if err != nil {
		return "", "", nil, err
	}

	refreshToken, err := jwtpkg.GenerateToken(user.ID.String(), jwtpkg.RefreshToken, s.cfg.JWTSecret, s.cfg.JWTRefreshTokenDuration)
	if err != nil {
		return "", "", nil, err
	}

	refreshTokenModel := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshTokenDuration),
	}

	if err := s.db.Create(refreshTokenModel).Error; err != nil {
		return "", "", nil, err
	}

	return accessToken, refreshToken, &user, nil
}

// Register creates a new operator account
func (s *AuthService) Register(username, email, password, fullName string) (*models.User, error) {
	var existingUser models.User
	if err := s.db.Where("username = ? OR email = ?", username, email).First(&existingUser).Error; err == nil {
		if existingUser.Username == username {
			return nil, errors.New("username already taken")
		}
		return nil, errors.New("email already registered")
	}

	hashedPassword, err := crypto.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashedPassword,
		FullName: fullName,
		IsActive: true,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// RefreshToken generates a new access token from a refresh token
func (s *AuthService) RefreshToken(refreshToken string) (string, error) {
	claims, err := jwtpkg.ValidateToken(refreshToken, s.cfg.JWTSecret)
	if err != nil {
		return "", errors.New("invalid refresh token")
	}

	if claims.TokenType != jwtpkg.RefreshToken {
		return "", errors.New("invalid token type")
	}

	var tokenModel models.RefreshToken
	if err := s.db.Where("token = ?", refreshToken).First(&tokenModel).Error; err != nil {
		return "", errors.New("refresh token not found")
	}

	if time.Now().After(tokenModel.ExpiresAt) {
		return "", errors.New("refresh token expired")
	}

	accessToken, err := jwtpkg.GenerateToken(claims.UserID, jwtpkg.AccessToken, s.cfg.JWTSecret, s.cfg.JWTAccessTokenDuration)
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

// Logout invalidates all refresh tokens for the user
func (s *AuthService) Logout(userID uuid.UUID) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

// ValidateAccessToken validates an access token and returns claims
func (s *AuthService) ValidateAccessToken(token string) (*jwtpkg.Claims, error) {
	claims, err := jwtpkg.ValidateToken(token, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != jwtpkg.AccessToken {
		return nil, errors.New("invalid token type")
	}

	// If Redis is down we allow the request to proceed rather than locking
	// every operator out.
	ctx := context.Background()
	blacklistKey := fmt.Sprintf("blacklist:token:%s", token)
	exists, err := s.redis.Exists(ctx, blacklistKey).Result()
	if err != nil {
		log.Printf("WARN: Could not connect to Redis to check token blacklist: %v", err)
	} else if exists > 0 {
		return nil, errors.New("token is blacklisted")
	}

	return claims, nil
}

// BlacklistToken marks an access token as revoked until it expires
func (s *AuthService) BlacklistToken(token string, ttl time.Duration) error {
	ctx := context.Background()
	blacklistKey := fmt.Sprintf("blacklist:token:%s", token)
	return s.redis.Set(ctx, blacklistKey, "1", ttl).Err()
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, translateDBErr(err, "user", userID)
	}
	return &user, nil
}

// CleanupExpiredTokens removes expired refresh tokens
func (s *AuthService) CleanupExpiredTokens() error {
	return s.db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}

// EnsureDefaultOperator creates the bootstrap operator account from config
// when no users exist yet. A blank OPERATOR_PASSWORD skips creation.
func (s *AuthService) EnsureDefaultOperator() error {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if s.cfg.OperatorPassword == "" {
		log.Println("WARN: No users exist and OPERATOR_PASSWORD is unset; skipping bootstrap account")
		return nil
	}

	_, err := s.Register(s.cfg.OperatorUsername, s.cfg.OperatorEmail, s.cfg.OperatorPassword, "Default Operator")
	if err != nil {
		return fmt.Errorf("failed to create default operator: %w", err)
	}
	log.Printf("Created default operator account %q", s.cfg.OperatorUsername)
	return nil
}
