package model

import "time"

// PromptTemplate is the editable source text for research jobs. Jobs snapshot
// the text at creation, so edits never touch in-flight work.
type PromptTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
