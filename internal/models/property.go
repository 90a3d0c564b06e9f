package models

import (
	"time"

	"gorm.io/gorm"
)

// Building — дом под управлением клиента.
type Building struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UUID     string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	ClientID uint   `gorm:"index;not null" json:"client_id"`
	Label    string `gorm:"size:255;not null" json:"label"`
	Address  string `gorm:"size:512" json:"address"`
}

// Apartment — квартира в доме.
type Apartment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UUID       string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	BuildingID uint   `gorm:"index;not null" json:"building_id"`
	Label      string `gorm:"size:64;not null" json:"label"` // напр. "12А"
	Floor      int    `json:"floor"`
}
