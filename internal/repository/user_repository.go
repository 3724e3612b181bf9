package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/killthisworld/vybrix/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Create(ctx context.Context, anonToken string) (*model.User, error)
	FindByToken(ctx context.Context, anonToken string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	SetEmail(ctx context.Context, id, email string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, anonToken string) (*model.User, error) {
	u := &model.User{ID: uuid.New().String(), AnonToken: anonToken, Timezone: "UTC", Locale: "en"}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) FindByToken(ctx context.Context, anonToken string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("anon_token = ?", anonToken).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) SetEmail(ctx context.Context, id, email string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("email", email).Error
}
