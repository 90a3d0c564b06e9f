package repo

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"

	"upravdom/internal/models"
)

type TenantStore struct{ db *gorm.DB }

func NewTenantStore(db *gorm.DB) *TenantStore { return &TenantStore{db: db} }

type ProvisionInput struct {
	Name        string
	Email       string
	ClientID    uint
	BuildingID  string
	ApartmentID string
}

// HashPassword — argon2id; соль хранится в той же колонке (salt:hash, hex).
func HashPassword(password string) []byte {
	var salt [16]byte
	_, _ = rand.Read(salt[:])
	key := argon2.IDKey([]byte(password), salt[:], 1, 64*1024, 1, 32)
	return []byte(hex.EncodeToString(salt[:]) + ":" + hex.EncodeToString(key))
}

func VerifyPassword(stored []byte, candidate string) bool {
	parts := strings.SplitN(string(stored), ":", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(candidate), salt, 1, 64*1024, 1, 32)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func tempPassword() string {
	var raw [9]byte
	_, _ = rand.Read(raw[:])
	return base64.RawURLEncoding.EncodeToString(raw[:]) // 12 символов
}

// Provision создаёт аккаунт жильца с временным паролем.
// Возвращает пароль открытым текстом один раз — для письма.
func (s *TenantStore) Provision(ctx context.Context, in ProvisionInput) (*models.Tenant, string, error) {
	var existing models.Tenant
	err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&existing).Error
	if err == nil {
		return nil, "", ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	pass := tempPassword()
	t := models.Tenant{
		UUID:         uuid.NewString(),
		ClientID:     in.ClientID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: HashPassword(pass),
		TempPassword: true,
		BuildingID:   in.BuildingID,
		ApartmentID:  in.ApartmentID,
		Status:       "active",
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, "", err
	}
	return &t, pass, nil
}

func (s *TenantStore) GetByEmail(ctx context.Context, email string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TenantStore) GetByUUID(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
