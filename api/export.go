package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"expenseai/analytics"
	"expenseai/database"
	"expenseai/middleware"
	"expenseai/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// loadExportRecords 按列表视图的筛选、搜索、排序条件取全部记录（不分页）
func loadExportRecords(c *gin.Context) ([]models.Expense, bool) {
	userID := middleware.GetCurrentUserID(c)

	var req ExpenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "invalid request"))
		return nil, false
	}
	rf, err := database.ParseRange(req.StartTime, req.EndTime)
	if err != nil {
		BadRequest(c, err.Error())
		return nil, false
	}

	records, err := database.ListExpenses(c.Request.Context(), database.DB, userID, rf)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load expenses"))
		return nil, false
	}
	return analytics.FilterAndSort(records, req.ViewState), true
}

// ExportCSV 导出消费记录为 CSV
// @Summary 导出消费记录为 CSV
// @Description 按列表视图的筛选条件导出全部记录（不分页）
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param sort query string false "排序方式"
// @Param category query string false "类别筛选"
// @Param search query string false "搜索关键字"
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	records, ok := loadExportRecords(c)
	if !ok {
		return
	}

	buf := new(bytes.Buffer)
	// BOM，Excel 打开时按 UTF-8 识别
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(buf)

	rows := make([][]string, 0, len(records)+2)
	rows = append(rows, []string{"ID", "Title", "Amount", "Category", "Date"})
	for _, e := range records {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(e.ID), 10),
			e.Title,
			e.Amount.StringFixed(2),
			string(e.Category),
			e.Date.Format(DateLayout),
		})
	}
	rows = append(rows, []string{"", "Total", analytics.Total(records).StringFixed(2), "", ""})

	if err := writer.WriteAll(rows); err != nil {
		InternalError(c, "failed to generate CSV")
		return
	}

	c.Header("Content-Disposition", "attachment; filename=expenses.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportJSONResponse JSON 导出结果
type ExportJSONResponse struct {
	Stats    analytics.Stats   `json:"stats"`
	Summary  analytics.Summary `json:"summary"`
	Expenses []models.Expense  `json:"expenses"`
}

// ExportJSON 导出消费记录为 JSON
// @Summary 导出消费记录为 JSON
// @Description 按列表视图的筛选条件导出全部记录及汇总
// @Tags 导出
// @Produce json
// @Security BearerAuth
// @Param sort query string false "排序方式"
// @Param category query string false "类别筛选"
// @Param search query string false "搜索关键字"
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=ExportJSONResponse} "导出成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	records, ok := loadExportRecords(c)
	if !ok {
		return
	}

	Success(c, ExportJSONResponse{
		Stats:    analytics.ComputeStats(records),
		Summary:  analytics.Summarize(records),
		Expenses: records,
	})
}

// ExportExcel 导出消费记录为 Excel
// @Summary 导出消费记录为 Excel
// @Description 两个工作表：明细（含合计行）与按类别汇总
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param sort query string false "排序方式"
// @Param category query string false "类别筛选"
// @Param search query string false "搜索关键字"
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	records, ok := loadExportRecords(c)
	if !ok {
		return
	}

	f, err := buildWorkbook(records)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to generate Excel"))
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=expenses.xlsx")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

const (
	expenseSheet  = "Expenses"
	categorySheet = "Categories"
)

func buildWorkbook(records []models.Expense) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", expenseSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(categorySheet); err != nil {
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return nil, err
	}

	_ = f.SetColWidth(expenseSheet, "A", "A", 8)
	_ = f.SetColWidth(expenseSheet, "B", "B", 30)
	_ = f.SetColWidth(expenseSheet, "C", "E", 14)

	if err := writeRow(f, expenseSheet, 1, "ID", "Title", "Amount", "Category", "Date"); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(expenseSheet, "A1", "E1", headerStyle)

	for i, e := range records {
		if err := writeRow(f, expenseSheet, i+2,
			e.ID, e.Title, e.Amount.InexactFloat64(), string(e.Category), e.Date.Format(DateLayout)); err != nil {
			return nil, err
		}
	}

	totalRow := len(records) + 2
	if err := writeRow(f, expenseSheet, totalRow,
		"Total", "", analytics.Total(records).InexactFloat64(), fmt.Sprintf("%d records", len(records)), ""); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(expenseSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("E%d", totalRow), summaryStyle)

	if err := writeRow(f, categorySheet, 1, "Category", "Total"); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(categorySheet, "A1", "B1", headerStyle)
	for i, ct := range analytics.CategoryTotals(records) {
		if err := writeRow(f, categorySheet, i+2, string(ct.Category), ct.Total.InexactFloat64()); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// writeRow 从 A 列开始写一行
func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
