package dto

import "time"

type CreateJobRequest struct {
	PromptID uint   `json:"prompt_id" validate:"required"`
	StockIDs []uint `json:"stock_ids" validate:"required,min=1"`
	Provider string `json:"provider" validate:"required,oneof=deep-research gemini"`
}

type ListJobsRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=pending running completed failed"`
	Provider string `query:"provider" validate:"omitempty,oneof=deep-research gemini"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

type CreateScheduleRequest struct {
	Name           string   `json:"name" validate:"required"`
	PromptID       uint     `json:"prompt_id" validate:"required"`
	Provider       string   `json:"provider" validate:"required,oneof=deep-research gemini"`
	Selection      string   `json:"selection" validate:"required,oneof=all tagged specific none"`
	SelectionTags  []string `json:"selection_tags" validate:"required_if=Selection tagged"`
	SelectionIDs   []uint   `json:"selection_stock_ids" validate:"required_if=Selection specific"`
	CronExpression string   `json:"cron_expression" validate:"required"`
	Timezone       string   `json:"timezone" validate:"required"`
	Enabled        *bool    `json:"enabled"`
}

type UpdateScheduleRequest struct {
	Name           *string  `json:"name"`
	PromptID       *uint    `json:"prompt_id"`
	Provider       *string  `json:"provider" validate:"omitempty,oneof=deep-research gemini"`
	Selection      *string  `json:"selection" validate:"omitempty,oneof=all tagged specific none"`
	SelectionTags  []string `json:"selection_tags"`
	SelectionIDs   []uint   `json:"selection_stock_ids"`
	CronExpression *string  `json:"cron_expression"`
	Timezone       *string  `json:"timezone"`
}

type PauseRequest struct {
	Paused bool `json:"paused"`
}

type ToggleScheduleRequest struct {
	Enabled bool `json:"enabled"`
}

type FavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

type UpsertStockRequest struct {
	Ticker string   `json:"ticker" validate:"required,max=20"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags"`
}

type UpsertPromptRequest struct {
	Name string `json:"name" validate:"required"`
	Text string `json:"text" validate:"required"`
}

type CostSummaryResponse struct {
	Month      string             `json:"month"`
	TotalUSD   float64            `json:"total_usd"`
	ByProvider map[string]float64 `json:"by_provider"`
	BudgetUSD  *float64           `json:"budget_usd,omitempty"`
	ComputedAt time.Time          `json:"computed_at"`
}
