package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"upravdom/internal/models"
)

type ClientStore struct{ db *gorm.DB }

func NewClientStore(db *gorm.DB) *ClientStore { return &ClientStore{db: db} }

func (s *ClientStore) GetByUUID(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ClientStore) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListBillingCustomers — клиенты, заведённые у биллинг-провайдера.
func (s *ClientStore) ListBillingCustomers(ctx context.Context) ([]models.Client, error) {
	var rows []models.Client
	err := s.db.WithContext(ctx).
		Where("billing_customer_id <> ''").
		Order("id asc").Find(&rows).Error
	return rows, err
}

// SeatCount — сколько мест биллим клиенту: сотрудники + активные жильцы.
func (s *ClientStore) SeatCount(ctx context.Context, clientID uint) (int, error) {
	var members, tenants int64
	if err := s.db.WithContext(ctx).Model(&models.ClientMember{}).
		Where("client_id = ?", clientID).Count(&members).Error; err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Tenant{}).
		Where("client_id = ? AND status = ?", clientID, "active").Count(&tenants).Error; err != nil {
		return 0, err
	}
	return int(members + tenants), nil
}

// UpdateStatus меняет статус подписки клиента и возвращает свежую строку
// (её публикует realtime-хаб). updated_at двигается всегда — это ключ
// упорядочивания для наблюдателей.
func (s *ClientStore) UpdateStatus(ctx context.Context, id, status string) (*models.Client, error) {
	tx := s.db.WithContext(ctx).Model(&models.Client{}).
		Where("uuid = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByUUID(ctx, id)
}

func (s *ClientStore) GetMemberByUUID(ctx context.Context, id string) (*models.ClientMember, error) {
	var m models.ClientMember
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
