package api

import (
	"context"
	"errors"
	"strconv"

	"expenseai/analytics"
	"expenseai/database"
	"expenseai/middleware"
	"expenseai/models"
	"expenseai/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InsightHandler 消费洞察处理器
type InsightHandler struct {
	svc *service.InsightService
}

// NewInsightHandler 创建洞察处理器
func NewInsightHandler(svc *service.InsightService) *InsightHandler {
	return &InsightHandler{svc: svc}
}

// GetInsight 获取消费洞察
// @Summary 获取消费洞察
// @Description 根据当前用户全部记录生成一句洞察。AI 不可用时按配置回退，始终返回 200
// @Tags AI洞察
// @Produce json
// @Security BearerAuth
// @Param mode query string false "模式 rule / ai，默认取配置"
// @Success 200 {object} Response{data=analytics.Insight} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 429 {object} Response "请求过于频繁"
// @Router /api/v1/ai/insight [get]
func (h *InsightHandler) GetInsight(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	mode := service.ParseMode(c.Query("mode"), h.svc.DefaultMode())

	insight, _, err := h.svc.Generate(c.Request.Context(), userID, mode)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// 调用方已放弃等待
		Success(c, analytics.Insight{Text: analytics.UnavailableMessage, Source: analytics.SourceFallback})
		return
	}
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to generate insight"))
		return
	}
	Success(c, insight)
}

// GetHistory AI 洞察历史
// @Summary AI 洞察历史
// @Description 仅包含由 AI 生成的洞察，按时间倒序
// @Tags AI洞察
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} Response{data=PageResponse{list=[]models.InsightHistory}} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/ai/insight/history [get]
func (h *InsightHandler) GetHistory(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	hist, err := h.svc.History(userID, page, pageSize)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load insight history"))
		return
	}

	Page(c, hist.Total, hist.Page, hist.PageSize, hist.Items)
}

// EmailInsight 发送洞察邮件
// @Summary 发送洞察邮件
// @Description 生成洞察与汇总并发送到当前用户的邮箱
// @Tags AI洞察
// @Produce json
// @Security BearerAuth
// @Param mode query string false "模式 rule / ai，默认取配置"
// @Success 200 {object} Response{data=analytics.Insight} "发送成功"
// @Failure 400 {object} Response "未设置邮箱或邮件服务未启用"
// @Failure 401 {object} Response "未授权"
// @Failure 500 {object} Response "发送失败"
// @Router /api/v1/ai/insight/email [post]
func (h *InsightHandler) EmailInsight(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		InternalError(c, SafeErrorMessage(err, "failed to load user"))
		return
	}

	mode := service.ParseMode(c.Query("mode"), h.svc.DefaultMode())
	insight, err := h.svc.EmailDigest(c.Request.Context(), user, mode)
	switch {
	case errors.Is(err, service.ErrNoEmail), errors.Is(err, service.ErrEmailDisabled):
		BadRequest(c, err.Error())
		return
	case err != nil:
		InternalError(c, SafeErrorMessage(err, "failed to send insight email"))
		return
	}
	SuccessWithMessage(c, "insight sent to "+user.Email, insight)
}
