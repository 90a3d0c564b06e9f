package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы подписки клиента (управляющей компании).
const (
	ClientStatusActive   = "active"
	ClientStatusTrialing = "trialing"
	ClientStatusPastDue  = "past_due"
	ClientStatusCanceled = "canceled"
)

// Client — управляющая компания, единица биллинга.
// Поле Status читает realtime-наблюдатель: уход из active/trialing
// означает принудительный logout всех сессий клиента.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UUID              string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	Name              string `gorm:"size:255;not null" json:"name"`
	Email             string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	BillingCustomerID string `gorm:"index;size:128" json:"billing_customer_id"`
	Status            string `gorm:"size:32;not null;default:active" json:"status"`
}

// ClientMember — сотрудник управляющей компании.
type ClientMember struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UUID     string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	ClientID uint   `gorm:"index;not null" json:"client_id"`
	Name     string `gorm:"size:255" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role     string `gorm:"size:32" json:"role"` // owner|manager|viewer
}

// Tenant — жилец; аккаунт создаётся при одобрении заявки на доступ.
type Tenant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UUID         string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	ClientID     uint   `gorm:"index" json:"client_id"`
	Name         string `gorm:"size:255" json:"name"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash []byte `gorm:"not null" json:"-"`
	TempPassword bool   `gorm:"not null;default:false" json:"temp_password"`
	BuildingID   string `gorm:"size:64" json:"building_id"`
	ApartmentID  string `gorm:"size:64" json:"apartment_id"`
	Status       string `gorm:"size:32;not null;default:active" json:"status"`
}

// Admin — оператор платформы.
type Admin struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UUID  string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	Name  string `gorm:"size:255" json:"name"`
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`
}

// Session — opaque bearer-токен, привязанный к одному принципалу.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Token       string    `gorm:"uniqueIndex;size:128;not null" json:"-"`
	Kind        string    `gorm:"size:32;not null" json:"kind"` // admin|client|clientMember|tenant
	SubjectUUID string    `gorm:"index;size:64;not null" json:"subject_uuid"`
	ExpiresAt   time.Time `json:"expires_at"`
}
