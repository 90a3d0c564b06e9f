package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Announcement — объявление управляющей компании в ленте дома.
type Announcement struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UUID       string `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	BuildingID uint   `gorm:"index;not null" json:"building_id"`
	AuthorUUID string `gorm:"size:64" json:"author_uuid"`
	Title      string `gorm:"size:255;not null" json:"title"`
	Body       string `gorm:"size:8192" json:"body"`
	Pinned     bool   `gorm:"not null;default:false" json:"pinned"`
}

const (
	PollStatusOpen   = "open"
	PollStatusClosed = "closed"
)

// Poll — опрос жильцов; варианты ответов лежат JSON-массивом.
type Poll struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UUID       string         `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	BuildingID uint           `gorm:"index;not null" json:"building_id"`
	Question   string         `gorm:"size:512;not null" json:"question"`
	Options    datatypes.JSON `json:"options"` // ["за","против","воздержался"]
	Status     string         `gorm:"size:32;not null;default:open" json:"status"`
	ClosesAt   *time.Time     `json:"closes_at,omitempty"`
}

// PollVote — голос жильца; одна пара (poll, voter).
type PollVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PollID    uint   `gorm:"uniqueIndex:idx_poll_voter;not null" json:"poll_id"`
	VoterUUID string `gorm:"uniqueIndex:idx_poll_voter;size:64;not null" json:"voter_uuid"`
	Option    int    `gorm:"not null" json:"option"` // индекс в Options
}
