package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InsightHistory AI 洞察历史记录（仅保存由 AI 生成的结果）
type InsightHistory struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"user_id" gorm:"index;not null"`
	Insight     string          `json:"insight" gorm:"type:text;not null"`
	TopCategory Category        `json:"top_category" gorm:"size:20"`
	Percentage  int64           `json:"percentage"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(14,2)"`
	CreatedAt   time.Time       `json:"created_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (InsightHistory) TableName() string {
	return "insight_histories"
}
