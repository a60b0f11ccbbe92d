package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// SysParamSchedulerPaused holds the global pause flag; read fresh on
	// every scheduling decision, never cached.
	SysParamSchedulerPaused = "SCHEDULER_PAUSED"
	// SysParamMonthlyBudgetUSD is the monthly spend threshold for alerting.
	SysParamMonthlyBudgetUSD = "MONTHLY_BUDGET_USD"
	// SysParamBudgetAlertMonth records the last YYYY-MM month for which a
	// budget alert was dispatched, so the alert fires once per month.
	SysParamBudgetAlertMonth = "BUDGET_ALERT_MONTH"
)

type SystemParameter struct {
	Name        string         `gorm:"column:name;type:varchar(100);primaryKey" json:"name"`
	Value       datatypes.JSON `gorm:"column:value;type:jsonb" json:"value"`
	Description string         `gorm:"column:description;type:text" json:"description"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

func (SystemParameter) TableName() string {
	return "system_parameters"
}
