package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"expenseai/analytics"
	"expenseai/config"
	"expenseai/database"
	"expenseai/models"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ErrNoEmail 用户未设置邮箱
var ErrNoEmail = errors.New("user has no email address")

// InsightService 读取用户记录快照、生成洞察并保存 AI 洞察历史
type InsightService struct {
	db          *gorm.DB
	generator   *analytics.InsightGenerator
	email       *EmailService
	defaultMode analytics.Mode
	currency    string
	logger      *slog.Logger
	group       singleflight.Group
}

// NewInsightService 按配置组装洞察服务；AI 未启用时 AI 模式直接走兜底
func NewInsightService(db *gorm.DB, cfg *config.Config, email *EmailService, logger *slog.Logger) *InsightService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "insight")

	var client analytics.TextGenerator
	if cfg.AI.Enabled {
		c, err := NewChatClient(cfg.AI)
		if err != nil {
			logger.Warn("AI client disabled", "error", err)
		} else {
			client = c
		}
	}

	currency := cfg.Insight.CurrencySymbol
	if currency == "" {
		currency = analytics.DefaultCurrency
	}

	gen := analytics.NewInsightGenerator(client,
		analytics.WithTimeout(cfg.AI.Timeout),
		analytics.WithFallback(analytics.Fallback(cfg.Insight.Fallback)),
		analytics.WithCurrency(currency),
		analytics.WithLogger(logger),
	)
	return newInsightService(db, gen, email, analytics.Mode(cfg.Insight.Mode), currency, logger)
}

func newInsightService(db *gorm.DB, gen *analytics.InsightGenerator, email *EmailService, mode analytics.Mode, currency string, logger *slog.Logger) *InsightService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightService{
		db:          db,
		generator:   gen,
		email:       email,
		defaultMode: ParseMode(string(mode), analytics.ModeRule),
		currency:    currency,
		logger:      logger,
	}
}

// ParseMode 解析洞察模式，空值或未知值使用 def
func ParseMode(s string, def analytics.Mode) analytics.Mode {
	switch analytics.Mode(s) {
	case analytics.ModeRule, analytics.ModeAI:
		return analytics.Mode(s)
	default:
		return def
	}
}

// DefaultMode 未指定模式时使用的模式
func (s *InsightService) DefaultMode() analytics.Mode {
	return s.defaultMode
}

// Currency 展示用货币符号
func (s *InsightService) Currency() string {
	return s.currency
}

type insightResult struct {
	insight analytics.Insight
	summary analytics.Summary
}

// Generate 为用户生成洞察。同一用户同一模式的并发请求合并为一次计算；
// 合并后的计算不受单个调用方取消的影响，调用方只在自己的 ctx 结束时放弃等待
func (s *InsightService) Generate(ctx context.Context, userID uint, mode analytics.Mode) (analytics.Insight, analytics.Summary, error) {
	mode = ParseMode(string(mode), s.defaultMode)
	key := strconv.FormatUint(uint64(userID), 10) + ":" + string(mode)
	shared := context.WithoutCancel(ctx)

	ch := s.group.DoChan(key, func() (interface{}, error) {
		records, err := database.ListExpenses(shared, s.db, userID, database.RangeFilter{})
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		summary := analytics.Summarize(records)
		insight := s.generator.Generate(shared, summary, mode)
		if insight.Source == analytics.SourceAI {
			s.saveHistory(userID, summary, insight)
		}
		return insightResult{insight: insight, summary: summary}, nil
	})

	select {
	case <-ctx.Done():
		return analytics.Insight{}, analytics.Summary{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return analytics.Insight{}, analytics.Summary{}, r.Err
		}
		res := r.Val.(insightResult)
		return res.insight, res.summary, nil
	}
}

// saveHistory 保存 AI 洞察，失败只记日志
func (s *InsightService) saveHistory(userID uint, summary analytics.Summary, insight analytics.Insight) {
	h := models.InsightHistory{
		UserID:      userID,
		Insight:     insight.Text,
		TopCategory: insight.TopCategory,
		Percentage:  insight.Percentage,
		Total:       summary.Total,
	}
	if err := s.db.Create(&h).Error; err != nil {
		s.logger.Warn("save insight history failed", "user_id", userID, "error", err)
	}
}

// HistoryPage 一页洞察历史，Page / PageSize 为实际使用的分页参数
type HistoryPage struct {
	Items    []models.InsightHistory
	Total    int64
	Page     int
	PageSize int
}

// 历史分页参数
const (
	DefaultHistoryPageSize = 10
	MaxHistoryPageSize     = 100
)

// History 分页查询 AI 洞察历史，按时间倒序。page < 1 取 1，pageSize 越界取默认值
func (s *InsightService) History(userID uint, page, pageSize int) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxHistoryPageSize {
		pageSize = DefaultHistoryPageSize
	}
	out := HistoryPage{Page: page, PageSize: pageSize}

	query := s.db.Model(&models.InsightHistory{}).Where("user_id = ?", userID)

	if err := query.Count(&out.Total).Error; err != nil {
		return HistoryPage{}, err
	}

	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out.Items).Error; err != nil {
		return HistoryPage{}, err
	}
	return out, nil
}

// EmailDigest 生成洞察并发送到用户邮箱
func (s *InsightService) EmailDigest(ctx context.Context, user models.User, mode analytics.Mode) (analytics.Insight, error) {
	if user.Email == "" {
		return analytics.Insight{}, ErrNoEmail
	}
	if s.email == nil || !s.email.Enabled() {
		return analytics.Insight{}, ErrEmailDisabled
	}

	insight, summary, err := s.Generate(ctx, user.ID, mode)
	if err != nil {
		return analytics.Insight{}, err
	}
	if err := s.email.SendInsightDigest(user.Email, user.Username, s.currency, summary, insight); err != nil {
		return analytics.Insight{}, err
	}
	return insight, nil
}
