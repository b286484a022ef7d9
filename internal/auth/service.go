package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"relay/internal/apperr"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Service is the identity provider: it owns users and their profiles.
type Service struct {
	DB *gorm.DB
}

type RegisterInput struct {
	Email     string
	Password  string
	Username  string
	AvatarURL *string
}

// Register creates a user and its profile atomically. A taken email is
// apperr.ErrConflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" || len(in.Password) < 8 || in.Username == "" {
		return User{}, apperr.ErrInvalid
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	u := User{Email: in.Email, PasswordHash: hash}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.ErrConflict
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		p := Profile{ID: u.ID, Username: in.Username, AvatarURL: in.AvatarURL}
		return tx.Create(&p).Error
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var u User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !ComparePassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Profile{}, apperr.ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}
