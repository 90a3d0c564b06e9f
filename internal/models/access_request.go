package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AccessStatusPending  = "pending"
	AccessStatusApproved = "approved"
	AccessStatusRejected = "rejected"
)

// AccessRequest — заявка жильца на доступ к кабинету дома.
// Статус меняется ровно один раз: pending -> approved|rejected.
type AccessRequest struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UUID    string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	Name    string `gorm:"size:255;not null" json:"name"`
	Email   string `gorm:"index;size:255;not null" json:"email"`
	Message string `gorm:"size:2048" json:"message"`

	BuildingID     string `gorm:"size:64;not null" json:"building_id"`
	BuildingLabel  string `gorm:"size:255" json:"building_label"`
	ApartmentID    string `gorm:"size:64;not null" json:"apartment_id"`
	ApartmentLabel string `gorm:"size:255" json:"apartment_label"`

	Status   string         `gorm:"size:32;not null;default:pending" json:"status"`
	Metadata datatypes.JSON `json:"metadata,omitempty"`
}
