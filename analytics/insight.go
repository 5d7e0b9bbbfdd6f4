package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expenseai/models"

	"github.com/shopspring/decimal"
)

// 固定文案
const (
	OnboardingMessage  = "Start adding expenses to get AI-powered insights."
	UnavailableMessage = "AI service temporarily unavailable."
)

// DefaultInsightTimeout AI 调用的默认超时
const DefaultInsightTimeout = 10 * time.Second

// Mode 洞察生成方式
type Mode string

const (
	ModeRule Mode = "rule"
	ModeAI   Mode = "ai"
)

// Fallback AI 调用失败时的兜底策略
type Fallback string

const (
	// FallbackMessage 返回固定的“服务不可用”文案
	FallbackMessage Fallback = "message"
	// FallbackRule 退回到规则计算结果
	FallbackRule Fallback = "rule"
)

// Source 洞察文本的来源
type Source string

const (
	SourceOnboarding Source = "onboarding"
	SourceRule       Source = "rule"
	SourceAI         Source = "ai"
	SourceFallback   Source = "fallback"
)

// ErrEmptyResponse 文本生成服务返回了空内容
var ErrEmptyResponse = errors.New("empty response from text generator")

// TextGenerator 外部文本生成服务（大模型）
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Insight 洞察结果，调用方总能拿到可展示的 Text
type Insight struct {
	Text        string          `json:"insight"`
	Source      Source          `json:"source"`
	TopCategory models.Category `json:"top_category,omitempty"`
	Percentage  int64           `json:"percentage"`
}

// InsightGenerator 洞察生成器
type InsightGenerator struct {
	client   TextGenerator
	timeout  time.Duration
	fallback Fallback
	currency string
	logger   *slog.Logger
}

// InsightOption 生成器选项
type InsightOption func(*InsightGenerator)

// WithTimeout 设置 AI 调用超时
func WithTimeout(d time.Duration) InsightOption {
	return func(g *InsightGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithFallback 设置兜底策略
func WithFallback(f Fallback) InsightOption {
	return func(g *InsightGenerator) {
		if f == FallbackMessage || f == FallbackRule {
			g.fallback = f
		}
	}
}

// WithCurrency 设置提示词中的货币符号
func WithCurrency(symbol string) InsightOption {
	return func(g *InsightGenerator) {
		g.currency = symbol
	}
}

// WithLogger 设置日志
func WithLogger(l *slog.Logger) InsightOption {
	return func(g *InsightGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewInsightGenerator 创建洞察生成器，client 为 nil 时 AI 模式直接走兜底
func NewInsightGenerator(client TextGenerator, opts ...InsightOption) *InsightGenerator {
	g := &InsightGenerator{
		client:   client,
		timeout:  DefaultInsightTimeout,
		fallback: FallbackMessage,
		currency: DefaultCurrency,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate 按模式生成洞察，未知模式按规则模式处理
func (g *InsightGenerator) Generate(ctx context.Context, s Summary, mode Mode) Insight {
	if mode == ModeAI {
		return g.AIAssisted(ctx, s)
	}
	return RuleBased(s)
}

// RuleBased 规则模式："You spend N% on X."
func RuleBased(s Summary) Insight {
	top, pct, ok := topShare(s)
	if !ok {
		return onboarding()
	}
	return Insight{
		Text:        fmt.Sprintf("You spend %d%% on %s.", pct, top.Category),
		Source:      SourceRule,
		TopCategory: top.Category,
		Percentage:  pct,
	}
}

// AIAssisted AI 模式：失败、超时或取消时返回兜底结果，不向调用方暴露错误
func (g *InsightGenerator) AIAssisted(ctx context.Context, s Summary) Insight {
	top, pct, ok := topShare(s)
	if !ok {
		return onboarding()
	}
	if g.client == nil {
		return g.fallbackInsight(s, errors.New("text generator not configured"))
	}

	text, err := g.call(ctx, BuildPrompt(s, top.Category, g.currency))
	if err != nil {
		return g.fallbackInsight(s, err)
	}
	return Insight{
		Text:        text,
		Source:      SourceAI,
		TopCategory: top.Category,
		Percentage:  pct,
	}
}

type generateResult struct {
	text string
	err  error
}

// call 在超时内调用外部服务；超时后放弃等待，结果通道有缓冲，后台 goroutine 不会阻塞
func (g *InsightGenerator) call(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan generateResult, 1)
	go func() {
		text, err := g.client.Generate(ctx, prompt)
		done <- generateResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	}
}

func (g *InsightGenerator) fallbackInsight(s Summary, cause error) Insight {
	g.logger.Warn("AI insight unavailable, using fallback",
		"fallback", string(g.fallback),
		"error", cause)

	if g.fallback == FallbackRule {
		in := RuleBased(s)
		in.Source = SourceFallback
		return in
	}
	return Insight{Text: UnavailableMessage, Source: SourceFallback}
}

func onboarding() Insight {
	return Insight{Text: OnboardingMessage, Source: SourceOnboarding}
}

// topShare 找出最高类别及其占比；空数据或总额为 0 时 ok=false
func topShare(s Summary) (CategoryTotal, int64, bool) {
	if s.Count == 0 {
		return CategoryTotal{}, 0, false
	}
	top, ok := TopCategory(s.Categories)
	if !ok {
		return CategoryTotal{}, 0, false
	}
	pct, ok := Percentage(top.Total, s.Total)
	if !ok {
		return CategoryTotal{}, 0, false
	}
	return top, pct, true
}

// TopCategory 金额最大的类别，并列时取列表中先出现的
func TopCategory(totals []CategoryTotal) (CategoryTotal, bool) {
	if len(totals) == 0 {
		return CategoryTotal{}, false
	}
	top := totals[0]
	for _, t := range totals[1:] {
		if t.Total.GreaterThan(top.Total) {
			top = t
		}
	}
	return top, true
}

// Percentage round(part/total*100)，total 为 0 时 ok=false
func Percentage(part, total decimal.Decimal) (int64, bool) {
	if total.IsZero() {
		return 0, false
	}
	return part.Mul(decimal.NewFromInt(100)).Div(total).Round(0).IntPart(), true
}
