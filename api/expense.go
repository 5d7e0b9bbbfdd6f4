package api

import (
	"strconv"
	"strings"
	"time"

	"expenseai/analytics"
	"expenseai/database"
	"expenseai/middleware"
	"expenseai/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DateLayout 请求与导出使用的日期格式
const DateLayout = database.DateLayout

// now 便于测试替换
var now = time.Now

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct{}

// NewExpenseHandler 创建消费记录处理器
func NewExpenseHandler() *ExpenseHandler {
	return &ExpenseHandler{}
}

// CreateExpenseRequest 创建消费记录请求
type CreateExpenseRequest struct {
	Title    string           `json:"title" binding:"required" example:"Lunch"`
	Amount   *decimal.Decimal `json:"amount" binding:"required" swaggertype:"number" example:"99.99"`
	Category string           `json:"category" binding:"required" example:"Food"`
	Date     string           `json:"date" example:"2024-01-15"` // 为空时取今天
}

// UpdateExpenseRequest 更新消费记录请求，仅更新传入的字段
type UpdateExpenseRequest struct {
	Title    *string          `json:"title" example:"Dinner"`
	Amount   *decimal.Decimal `json:"amount" swaggertype:"number" example:"120"`
	Category *string          `json:"category" example:"Food"`
	Date     *string          `json:"date" example:"2024-01-16"`
}

// ExpenseListRequest 列表视图参数
type ExpenseListRequest struct {
	analytics.ViewState
	StartTime string `form:"start_time" example:"2024-01-01"`
	EndTime   string `form:"end_time" example:"2024-12-31"`
}

// Create 创建消费记录
// @Summary 创建消费记录
// @Description 创建一条新的消费记录，date 为空时取今天，不允许未来日期
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExpenseRequest true "消费记录信息"
// @Success 200 {object} Response{data=models.Expense} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "invalid request"))
		return
	}

	today := now()
	date := models.DateOnly(today)
	if strings.TrimSpace(req.Date) != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			BadRequest(c, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = d
	}

	expense := models.Expense{
		UserID:   userID,
		Title:    strings.TrimSpace(req.Title),
		Amount:   *req.Amount,
		Category: models.Category(strings.TrimSpace(req.Category)),
		Date:     date,
	}
	if err := expense.Validate(today); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := database.DB.Create(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to create expense"))
		return
	}

	SuccessWithMessage(c, "expense added", expense)
}

// List 获取消费记录列表视图
// @Summary 获取消费记录列表
// @Description 按类别筛选、搜索标题或类别、排序后分页（每页 10 条），同时返回筛选后的统计
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param sort query string false "排序方式" Enums(date_desc, date_asc, amount_desc, amount_asc, title_asc, title_desc)
// @Param category query string false "类别筛选，all 表示全部"
// @Param search query string false "搜索关键字"
// @Param page query int false "页码" default(1)
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=analytics.View} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ExpenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "invalid request"))
		return
	}
	if c.Query("page") == "" {
		req.Page = 1
	}

	rf, err := database.ParseRange(req.StartTime, req.EndTime)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	records, err := database.ListExpenses(c.Request.Context(), database.DB, userID, rf)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load expenses"))
		return
	}

	Success(c, analytics.Apply(records, req.ViewState))
}

// Get 获取单条消费记录
// @Summary 获取单条消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response{data=models.Expense} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	expense, ok := loadOwnedExpense(c, false)
	if !ok {
		return
	}
	Success(c, expense)
}

// Update 更新消费记录
// @Summary 更新消费记录
// @Description 部分更新，合并后的记录重新校验
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Param request body UpdateExpenseRequest true "消费记录信息"
// @Success 200 {object} Response{data=models.Expense} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "无权操作"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	expense, ok := loadOwnedExpense(c, true)
	if !ok {
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "invalid request"))
		return
	}

	if req.Title != nil {
		expense.Title = strings.TrimSpace(*req.Title)
	}
	if req.Amount != nil {
		expense.Amount = *req.Amount
	}
	if req.Category != nil {
		expense.Category = models.Category(strings.TrimSpace(*req.Category))
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			BadRequest(c, "invalid date, expected YYYY-MM-DD")
			return
		}
		expense.Date = d
	}

	if err := expense.Validate(now()); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := database.DB.Model(expense).
		Select("title", "amount", "category", "date").
		Updates(expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to update expense"))
		return
	}

	SuccessWithMessage(c, "expense updated", expense)
}

// Delete 删除消费记录
// @Summary 删除消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "无权操作"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	expense, ok := loadOwnedExpense(c, true)
	if !ok {
		return
	}

	if err := database.DB.Delete(expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to delete expense"))
		return
	}

	SuccessWithMessage(c, "expense deleted", nil)
}

// GetCategories 获取消费类别列表
// @Summary 获取消费类别列表
// @Description 固定的类别集合
// @Tags 消费记录
// @Produce json
// @Success 200 {object} Response{data=[]string} "获取成功"
// @Router /api/v1/categories [get]
func (h *ExpenseHandler) GetCategories(c *gin.Context) {
	Success(c, models.GetCategories())
}

// loadOwnedExpense 按路径 id 读取记录。不存在返回 404；
// 属于其他用户时，写操作返回 401，读操作返回 404
func loadOwnedExpense(c *gin.Context, write bool) (*models.Expense, bool) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid id")
		return nil, false
	}

	expense, err := database.GetExpense(database.DB, uint(id))
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load expense"))
		return nil, false
	}
	if expense == nil {
		NotFound(c, "expense not found")
		return nil, false
	}
	if expense.UserID != userID {
		if write {
			Unauthorized(c, "not authorized")
		} else {
			NotFound(c, "expense not found")
		}
		return nil, false
	}
	return expense, true
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
}
