package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense 消费记录模型
type Expense struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	UserID    uint            `json:"user_id" gorm:"index;not null"`
	Title     string          `json:"title" gorm:"size:50;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Category  Category        `json:"category" gorm:"size:20;not null;index"`
	Date      time.Time       `json:"date" gorm:"type:date;not null;index"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`
	User      User            `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// 标题与金额的校验规则
const (
	TitleMinLength = 2
	TitleMaxLength = 50
)

var (
	// MinAmount 单笔最小金额
	MinAmount = decimal.NewFromInt(1)
	// MaxAmount 单笔最大金额
	MaxAmount = decimal.NewFromInt(1_000_000)

	titlePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,]+$`)
)

// 校验错误
var (
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid date")
)

// Validate 校验消费记录的不变量，now 为“今天”的参照时间
func (e Expense) Validate(now time.Time) error {
	n := utf8.RuneCountInString(e.Title)
	if n < TitleMinLength || n > TitleMaxLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidTitle, TitleMinLength, TitleMaxLength)
	}
	if !titlePattern.MatchString(e.Title) {
		return fmt.Errorf("%w: only letters, digits, spaces and - _ . , are allowed", ErrInvalidTitle)
	}
	if e.Amount.LessThan(MinAmount) || e.Amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: must be between %s and %s", ErrInvalidAmount, MinAmount, MaxAmount)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	if DateOnly(e.Date).After(DateOnly(now)) {
		return fmt.Errorf("%w: date cannot be in the future", ErrInvalidDate)
	}
	return nil
}

// DateOnly 截断到当天零点（保留时区）
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
