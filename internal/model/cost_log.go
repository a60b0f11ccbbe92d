package model

import "time"

// CostLogEntry is an append-only record of spend for a completed job. Rows
// are never mutated and are removed only alongside their owning job.
type CostLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobID     uint      `gorm:"not null;index" json:"job_id"`
	Provider  string    `gorm:"type:varchar(50);not null" json:"provider"`
	CostUSD   float64   `gorm:"not null" json:"cost_usd"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CostLogEntry) TableName() string {
	return "cost_log_entries"
}
