package model

import (
	"time"

	"gorm.io/datatypes"
)

type StockSelection string

const (
	SelectionAll      StockSelection = "all"
	SelectionTagged   StockSelection = "tagged"
	SelectionSpecific StockSelection = "specific"
	SelectionNone     StockSelection = "none"
)

// Schedule is a recurring research job template. NextRunAt and NextTimerID
// are both set while a timer is armed and both cleared otherwise.
type Schedule struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	PromptID          uint           `gorm:"not null" json:"prompt_id"`
	Provider          string         `gorm:"type:varchar(50);not null" json:"provider"`
	Selection         StockSelection `gorm:"type:varchar(20);not null" json:"selection"`
	SelectionTags     datatypes.JSON `gorm:"type:jsonb" json:"selection_tags,omitempty"`
	SelectionStockIDs datatypes.JSON `gorm:"type:jsonb" json:"selection_stock_ids,omitempty"`
	CronExpression    string         `gorm:"type:varchar(100);not null" json:"cron_expression"`
	Timezone          string         `gorm:"type:varchar(64);not null" json:"timezone"`
	Enabled           bool           `gorm:"not null;default:true" json:"enabled"`
	LastRunAt         *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt         *time.Time     `json:"next_run_at,omitempty"`
	NextTimerID       *string        `gorm:"type:varchar(64)" json:"next_timer_id,omitempty"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Schedule) TableName() string {
	return "schedules"
}
