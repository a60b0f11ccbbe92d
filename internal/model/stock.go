package model

import (
	"time"

	"gorm.io/datatypes"
)

// Stock is a watchlist entry. Tags drive tag-based selection on schedules.
type Stock struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Ticker    string         `gorm:"type:varchar(20);not null;uniqueIndex" json:"ticker"`
	Name      string         `gorm:"type:varchar(255)" json:"name"`
	Tags      datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Stock) TableName() string {
	return "stocks"
}
