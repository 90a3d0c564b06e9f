package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"upravdom/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already resolved")
	ErrDuplicateEmail = errors.New("email already registered")
)

type AccessRequestStore struct{ db *gorm.DB }

func NewAccessRequestStore(db *gorm.DB) *AccessRequestStore { return &AccessRequestStore{db: db} }

type SubmitInput struct {
	Name           string
	Email          string
	Message        string
	BuildingID     string
	BuildingLabel  string
	ApartmentID    string
	ApartmentLabel string
}

func (s *AccessRequestStore) Create(ctx context.Context, in SubmitInput) (*models.AccessRequest, error) {
	ar := models.AccessRequest{
		UUID:           uuid.NewString(),
		Name:           in.Name,
		Email:          in.Email,
		Message:        in.Message,
		BuildingID:     in.BuildingID,
		BuildingLabel:  in.BuildingLabel,
		ApartmentID:    in.ApartmentID,
		ApartmentLabel: in.ApartmentLabel,
		Status:         models.AccessStatusPending,
	}
	now := time.Now().UTC()
	ar.CreatedAt = now
	ar.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&ar).Error; err != nil {
		return nil, err
	}
	return &ar, nil
}

func (s *AccessRequestStore) GetByUUID(ctx context.Context, id string) (*models.AccessRequest, error) {
	var ar models.AccessRequest
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&ar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ar, nil
}

// Resolve — единственный способ сменить статус заявки. Условный UPDATE
// (compare-and-swap по status): из двух одновременных кликов
// approve/reject выигрывает ровно один.
func (s *AccessRequestStore) Resolve(ctx context.Context, id, from, to string) (changed bool, err error) {
	tx := s.db.WithContext(ctx).Model(&models.AccessRequest{}).
		Where("uuid = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (s *AccessRequestStore) ListPending(ctx context.Context, limit int) ([]models.AccessRequest, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.AccessRequest
	err := s.db.WithContext(ctx).
		Where("status = ?", models.AccessStatusPending).
		Order("created_at asc").Limit(limit).Find(&rows).Error
	return rows, err
}
