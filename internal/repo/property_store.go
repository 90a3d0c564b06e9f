package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"upravdom/internal/models"
)

type PropertyStore struct{ db *gorm.DB }

func NewPropertyStore(db *gorm.DB) *PropertyStore { return &PropertyStore{db: db} }

func (s *PropertyStore) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	var b models.Building
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PropertyStore) GetApartment(ctx context.Context, id string) (*models.Apartment, error) {
	var a models.Apartment
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PropertyStore) ListBuildings(ctx context.Context, clientID uint) ([]models.Building, error) {
	var rows []models.Building
	err := s.db.WithContext(ctx).Where("client_id = ?", clientID).Order("label asc").Find(&rows).Error
	return rows, err
}
