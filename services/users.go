package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/utils"
)

// UserUpdate is a partial profile write. Nil fields are left unchanged.
type UserUpdate struct {
	Email    string
	Name     *string
	Nickname *string
	Picture  *string
	Role     *string
}

// UserService manages local user records keyed by email.
type UserService struct {
	db      *gorm.DB
	isAdmin func(email string) bool
}

// NewUserService builds the service. isAdmin decides the role of users created on first login.
func NewUserService(db *gorm.DB, isAdmin func(email string) bool) *UserService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &UserService{db: db, isAdmin: isAdmin}
}

// ByEmail loads a user.
func (s *UserService) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// UpsertFromClaims creates the user on first sight, otherwise overwrites name, nickname and picture
// with the latest identity assertion.
func (s *UserService) UpsertFromClaims(ctx context.Context, claims utils.IdentityClaims) (*models.User, error) {
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, ErrEmptyEmail
	}
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				Email:    email,
				Name:     claims.Name,
				Nickname: claims.Nickname,
				Picture:  claims.Picture,
				Role:     models.RoleUser,
			}
			if s.isAdmin(email) {
				user.Role = models.RoleAdmin
			}
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}
		user.Name = claims.Name
		user.Nickname = claims.Nickname
		user.Picture = claims.Picture
		return tx.Model(&user).Select("name", "nickname", "picture").Updates(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", email, err)
	}
	return &user, nil
}

// Upsert applies a partial update, creating the user with role User when missing.
func (s *UserService) Upsert(ctx context.Context, in UserUpdate) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, ErrEmptyEmail
	}
	if in.Role != nil && *in.Role != models.RoleUser && *in.Role != models.RoleAdmin {
		return nil, ErrInvalidRole
	}
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		created := false
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{Email: email, Role: models.RoleUser}
			created = true
		} else if err != nil {
			return err
		}
		if in.Name != nil {
			user.Name = *in.Name
		}
		if in.Nickname != nil {
			user.Nickname = *in.Nickname
		}
		if in.Picture != nil {
			user.Picture = *in.Picture
		}
		if in.Role != nil {
			user.Role = *in.Role
		}
		if created {
			return tx.Create(&user).Error
		}
		return tx.Model(&user).Select("name", "nickname", "picture", "role").Updates(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", email, err)
	}
	return &user, nil
}

// UpdateProfile sets both name and nickname.
func (s *UserService) UpdateProfile(ctx context.Context, email, name, nickname string) (*models.User, error) {
	return s.updateFields(ctx, email, map[string]interface{}{"name": name, "nickname": nickname})
}

// UpdateName sets the display name.
func (s *UserService) UpdateName(ctx context.Context, email, name string) (*models.User, error) {
	return s.updateFields(ctx, email, map[string]interface{}{"name": name})
}

// UpdateNickname sets the nickname.
func (s *UserService) UpdateNickname(ctx context.Context, email, nickname string) (*models.User, error) {
	return s.updateFields(ctx, email, map[string]interface{}{"nickname": nickname})
}

func (s *UserService) updateFields(ctx context.Context, email string, fields map[string]interface{}) (*models.User, error) {
	user, err := s.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		fields[k] = utils.TruncateRunes(utils.SanitizeTitle(v.(string)), 120)
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("update user %s: %w", email, err)
	}
	return s.ByEmail(ctx, email)
}
