package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/models"
	"github.com/playdrop/backend/pkg/crypto"
	"gorm.io/gorm"
)

type UserService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewUserService(db *gorm.DB, cfg *config.Config) *UserService {
	return &UserService{db: db, cfg: cfg}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, translateDBErr(err, "user", userID)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateDBErr(err, "user", username)
	}
	return &user, nil
}

// UpdateUserProfile updates profile fields an operator may edit themselves
func (s *UserService) UpdateUserProfile(userID uuid.UUID, updates map[string]interface{}) error {
	allowedFields := map[string]bool{
		"full_name":  true,
		"avatar_url": true,
	}

	filteredUpdates := make(map[string]interface{})
	for key, value := range updates {
		if allowedFields[key] {
			filteredUpdates[key] = value
		}
	}

	if len(filteredUpdates) == 0 {
		return errors.New("no valid fields to update")
	}

	result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(filteredUpdates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr("user", userID)
	}
	return nil
}

// ChangePassword verifies the current password and stores a new hash
func (s *UserService) ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if !crypto.CheckPassword(currentPassword, user.Password) {
		return errors.New("current password is incorrect")
	}

	hash, err := crypto.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	return s.db.Model(user).Update("password", hash).Error
}
