package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"expenseai/models"

	"gorm.io/gorm"
)

// RangeFilter 可选的日期区间（闭区间），零值表示不限制
type RangeFilter struct {
	Start time.Time
	End   time.Time
}

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// ErrInvalidRange 日期区间无法解析或结束早于开始
var ErrInvalidRange = errors.New("invalid start_time or end_time, expected YYYY-MM-DD")

// ParseRange 解析可选的日期区间，空字符串表示该端不限制
func ParseRange(start, end string) (RangeFilter, error) {
	var rf RangeFilter
	for _, p := range []struct {
		in  string
		out *time.Time
	}{{start, &rf.Start}, {end, &rf.End}} {
		v := strings.TrimSpace(p.in)
		if v == "" {
			continue
		}
		t, err := time.ParseInLocation(DateLayout, v, time.Local)
		if err != nil {
			return RangeFilter{}, ErrInvalidRange
		}
		*p.out = t
	}
	if !rf.Start.IsZero() && !rf.End.IsZero() && rf.End.Before(rf.Start) {
		return RangeFilter{}, ErrInvalidRange
	}
	return rf, nil
}

// ListExpenses 读取某用户的全部记录快照，按 id 升序
func ListExpenses(ctx context.Context, db *gorm.DB, userID uint, rf RangeFilter) ([]models.Expense, error) {
	query := db.WithContext(ctx).Model(&models.Expense{}).Where("user_id = ?", userID)
	if !rf.Start.IsZero() {
		query = query.Where("date >= ?", models.DateOnly(rf.Start))
	}
	if !rf.End.IsZero() {
		query = query.Where("date <= ?", models.DateOnly(rf.End))
	}

	var expenses []models.Expense
	if err := query.Order("id ASC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

// GetExpense 按 id 查询，不存在时返回 (nil, nil)
func GetExpense(db *gorm.DB, id uint) (*models.Expense, error) {
	var expense models.Expense
	err := db.First(&expense, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &expense, nil
}
