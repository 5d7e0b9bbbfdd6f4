package mcptools

import (
	"context"
	"fmt"
	"strings"

	"expenseai/analytics"
	"expenseai/database"
	"expenseai/models"
	"expenseai/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultLimit = 50

// Service 以纯文本形式给 MCP 客户端返回某个用户的消费数据
type Service struct {
	db       *gorm.DB
	insights *service.InsightService
	userID   uint
	currency string
}

// NewService 创建只读服务，所有查询限定在 userID 名下
func NewService(db *gorm.DB, insights *service.InsightService, userID uint) *Service {
	return &Service{
		db:       db,
		insights: insights,
		userID:   userID,
		currency: insights.Currency(),
	}
}

// SpendingSummary 总额、按类别与按月汇总
func (s *Service) SpendingSummary(ctx context.Context, startDate, endDate string) (string, error) {
	records, err := s.load(ctx, startDate, endDate)
	if err != nil {
		return "", err
	}
	return formatSummary(analytics.Summarize(records), s.currency), nil
}

// SpendingInsight 生成一句消费洞察
func (s *Service) SpendingInsight(ctx context.Context, mode string) (string, error) {
	m := service.ParseMode(mode, s.insights.DefaultMode())
	insight, _, err := s.insights.Generate(ctx, s.userID, m)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\n(source: %s)", insight.Text, insight.Source), nil
}

// ListExpenses 按列表视图规则筛选排序后返回前 limit 条
func (s *Service) ListExpenses(ctx context.Context, state analytics.ViewState, startDate, endDate string, limit int) (string, error) {
	records, err := s.load(ctx, startDate, endDate)
	if err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	filtered := analytics.FilterAndSort(records, state)
	if len(filtered) == 0 {
		return "No expenses found.", nil
	}
	shown := filtered
	if len(shown) > limit {
		shown = shown[:limit]
	}
	return formatExpenses(shown, len(filtered), analytics.ComputeStats(filtered), s.currency), nil
}

func (s *Service) load(ctx context.Context, startDate, endDate string) ([]models.Expense, error) {
	rf, err := database.ParseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return database.ListExpenses(ctx, s.db, s.userID, rf)
}

func money(currency string, d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}

func formatSummary(sum analytics.Summary, currency string) string {
	if sum.Count == 0 {
		return "No expenses found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total: %s across %d expenses\n", money(currency, sum.Total), sum.Count)

	sb.WriteString("\nBy category:\n")
	for _, ct := range sum.Categories {
		pct, _ := analytics.Percentage(ct.Total, sum.Total)
		fmt.Fprintf(&sb, "  %-14s %12s  %3d%%\n", ct.Category, money(currency, ct.Total), pct)
	}

	sb.WriteString("\nBy month:\n")
	for _, mt := range sum.Monthly {
		fmt.Fprintf(&sb, "  %-4s %12s\n", mt.Month, money(currency, mt.Total))
	}
	return sb.String()
}

func formatExpenses(records []models.Expense, matched int, stats analytics.Stats, currency string) string {
	var sb strings.Builder
	for _, e := range records {
		fmt.Fprintf(&sb, "#%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date.Format(database.DateLayout), e.Title, e.Category, money(currency, e.Amount))
	}
	if matched > len(records) {
		fmt.Fprintf(&sb, "... %d more\n", matched-len(records))
	}
	fmt.Fprintf(&sb, "\n%d matching, total %s, average %s\n",
		stats.Count, money(currency, stats.Total), money(currency, stats.Average))
	return sb.String()
}
