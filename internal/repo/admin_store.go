package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"upravdom/internal/models"
)

type AdminStore struct{ db *gorm.DB }

func NewAdminStore(db *gorm.DB) *AdminStore { return &AdminStore{db: db} }

func (s *AdminStore) GetByUUID(ctx context.Context, id string) (*models.Admin, error) {
	var a models.Admin
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AdminStore) ListEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).Model(&models.Admin{}).Pluck("email", &emails).Error
	return emails, err
}
