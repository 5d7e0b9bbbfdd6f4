package api

import (
	"expenseai/analytics"
	"expenseai/database"
	"expenseai/middleware"
	"expenseai/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AnalyticsHandler 统计处理器
type AnalyticsHandler struct{}

// NewAnalyticsHandler 创建统计处理器
func NewAnalyticsHandler() *AnalyticsHandler {
	return &AnalyticsHandler{}
}

// TotalResponse 总金额
type TotalResponse struct {
	Total decimal.Decimal `json:"total" swaggertype:"number" example:"175"`
	Count int             `json:"count" example:"3"`
}

// loadRecords 读取当前用户在可选日期区间内的记录
func loadRecords(c *gin.Context) ([]models.Expense, bool) {
	rf, err := database.ParseRange(c.Query("start_time"), c.Query("end_time"))
	if err != nil {
		BadRequest(c, err.Error())
		return nil, false
	}
	records, err := database.ListExpenses(c.Request.Context(), database.DB, middleware.GetCurrentUserID(c), rf)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load expenses"))
		return nil, false
	}
	return records, true
}

// GetTotal 总支出
// @Summary 总支出
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=TotalResponse} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/analytics/total [get]
func (h *AnalyticsHandler) GetTotal(c *gin.Context) {
	records, ok := loadRecords(c)
	if !ok {
		return
	}
	Success(c, TotalResponse{Total: analytics.Total(records), Count: len(records)})
}

// GetCategoryTotals 按类别汇总
// @Summary 按类别汇总
// @Description 按金额降序
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=[]analytics.CategoryTotal} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/analytics/category [get]
func (h *AnalyticsHandler) GetCategoryTotals(c *gin.Context) {
	records, ok := loadRecords(c)
	if !ok {
		return
	}
	Success(c, analytics.CategoryTotals(records))
}

// GetMonthlyTotals 按月汇总
// @Summary 按月汇总
// @Description 按自然月（忽略年份）汇总，月份升序
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=[]analytics.MonthlyTotal} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/analytics/monthly [get]
func (h *AnalyticsHandler) GetMonthlyTotals(c *gin.Context) {
	records, ok := loadRecords(c)
	if !ok {
		return
	}
	Success(c, analytics.MonthlyTotals(records))
}

// GetSummary 汇总（总额、类别、月度）
// @Summary 汇总
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=analytics.Summary} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/analytics/summary [get]
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	records, ok := loadRecords(c)
	if !ok {
		return
	}
	Success(c, analytics.Summarize(records))
}
