package model

import (
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal returns true once a job can no longer transition except through
// a manual retry.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ActiveStatuses are the states counted against the admission ceiling.
func ActiveStatuses() []JobStatus {
	return []JobStatus{JobStatusPending, JobStatusRunning}
}

// ResearchJob is one execution unit of an AI research prompt against a set of
// stocks. PromptSnapshot is frozen at creation time so in-flight jobs are not
// affected by later template edits.
type ResearchJob struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PromptID       uint           `gorm:"not null" json:"prompt_id"`
	PromptSnapshot string         `gorm:"type:text;not null" json:"prompt_snapshot"`
	StockIDs       datatypes.JSON `gorm:"type:jsonb;not null" json:"stock_ids"`
	Provider       string         `gorm:"type:varchar(50);not null" json:"provider"`
	Status         JobStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts       int            `gorm:"not null;default:0" json:"attempts"`
	ExternalJobID  *string        `gorm:"type:varchar(255);uniqueIndex" json:"external_job_id,omitempty"`
	Result         *string        `gorm:"type:text" json:"result,omitempty"`
	ErrorMessage   *string        `gorm:"type:text" json:"error_message,omitempty"`
	CostUSD        *float64       `json:"cost_usd,omitempty"`
	DurationMs     *int64         `json:"duration_ms,omitempty"`
	ScheduleID     *uint          `gorm:"index" json:"schedule_id,omitempty"`
	Favorite       bool           `gorm:"not null;default:false" json:"favorite"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

func (ResearchJob) TableName() string {
	return "research_jobs"
}

type GetResearchJobParam struct {
	IDs      []uint     `json:"ids"`
	Status   *JobStatus `json:"status"`
	Provider *string    `json:"provider"`
	Limit    *int       `json:"limit"`
}
