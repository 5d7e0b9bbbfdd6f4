package analytics

import (
	"slices"
	"strings"

	"expenseai/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// PageSize 每页固定条数
const PageSize = 10

// CategoryAll 不按类别筛选
const CategoryAll = "all"

// SortKey 排序方式
type SortKey string

const (
	SortDateDesc   SortKey = "date_desc"
	SortDateAsc    SortKey = "date_asc"
	SortAmountDesc SortKey = "amount_desc"
	SortAmountAsc  SortKey = "amount_asc"
	SortTitleAsc   SortKey = "title_asc"
	SortTitleDesc  SortKey = "title_desc"
)

// DefaultSort 未知排序方式时使用
const DefaultSort = SortDateDesc

// Normalize 未知排序方式回退到 DefaultSort
func (k SortKey) Normalize() SortKey {
	switch k {
	case SortDateDesc, SortDateAsc, SortAmountDesc, SortAmountAsc, SortTitleAsc, SortTitleDesc:
		return k
	default:
		return DefaultSort
	}
}

// ViewState 列表视图参数
type ViewState struct {
	Sort     SortKey `form:"sort" json:"sort"`
	Category string  `form:"category" json:"category"`
	Search   string  `form:"search" json:"search"`
	Page     int     `form:"page" json:"page"`
}

// Stats 筛选后（分页前）的统计
type Stats struct {
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
}

// View 列表视图结果
type View struct {
	Records    []models.Expense  `json:"records"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	Stats      Stats             `json:"stats"`
	Categories []models.Category `json:"categories"`
}

// Apply 依次执行：类别筛选 -> 搜索 -> 排序 -> 统计 -> 分页
func Apply(records []models.Expense, state ViewState) View {
	filtered := FilterAndSort(records, state)
	return View{
		Records:    Paginate(filtered, state.Page),
		Page:       state.Page,
		PageSize:   PageSize,
		TotalPages: TotalPages(len(filtered)),
		Stats:      ComputeStats(filtered),
		Categories: DistinctCategories(records),
	}
}

// FilterAndSort 执行筛选、搜索和排序，返回新切片，不修改入参
func FilterAndSort(records []models.Expense, state ViewState) []models.Expense {
	out := make([]models.Expense, 0, len(records))
	match := searchMatcher(state.Search)
	for _, r := range records {
		if !categoryMatches(r, state.Category) {
			continue
		}
		if match != nil && !match(r) {
			continue
		}
		out = append(out, r)
	}
	sortRecords(out, state.Sort.Normalize())
	return out
}

func categoryMatches(r models.Expense, category string) bool {
	if category == "" || category == CategoryAll {
		return true
	}
	return string(r.Category) == category
}

// searchMatcher 空白查询返回 nil；否则按标题或类别做大小写无关的子串匹配
func searchMatcher(query string) func(models.Expense) bool {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	fold := cases.Fold()
	q := fold.String(query)
	return func(r models.Expense) bool {
		return strings.Contains(fold.String(r.Title), q) ||
			strings.Contains(fold.String(string(r.Category)), q)
	}
}

// sortRecords 稳定排序，键相同的记录保持原有相对顺序
func sortRecords(records []models.Expense, key SortKey) {
	var cmp func(a, b models.Expense) int
	switch key {
	case SortDateAsc:
		cmp = func(a, b models.Expense) int { return a.Date.Compare(b.Date) }
	case SortAmountDesc:
		cmp = func(a, b models.Expense) int { return b.Amount.Cmp(a.Amount) }
	case SortAmountAsc:
		cmp = func(a, b models.Expense) int { return a.Amount.Cmp(b.Amount) }
	case SortTitleAsc, SortTitleDesc:
		col := collate.New(language.English)
		if key == SortTitleAsc {
			cmp = func(a, b models.Expense) int { return col.CompareString(a.Title, b.Title) }
		} else {
			cmp = func(a, b models.Expense) int { return col.CompareString(b.Title, a.Title) }
		}
	default:
		cmp = func(a, b models.Expense) int { return b.Date.Compare(a.Date) }
	}
	slices.SortStableFunc(records, cmp)
}

// ComputeStats 总额、条数、平均值（保留两位小数，空集合为 0）
func ComputeStats(records []models.Expense) Stats {
	total := Total(records)
	avg := decimal.Zero
	if n := len(records); n > 0 {
		avg = total.DivRound(decimal.NewFromInt(int64(n)), 2)
	}
	return Stats{Total: total, Count: len(records), Average: avg}
}

// TotalPages ceil(n / PageSize)，n 为 0 时返回 0
func TotalPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

// Paginate 取第 page 页（从 1 开始），越界返回空页
func Paginate(records []models.Expense, page int) []models.Expense {
	if page < 1 || page > TotalPages(len(records)) {
		return []models.Expense{}
	}
	start := (page - 1) * PageSize
	end := min(start+PageSize, len(records))
	return records[start:end]
}

// DistinctCategories 出现过的类别，按名称排序
func DistinctCategories(records []models.Expense) []models.Category {
	seen := make(map[models.Category]struct{})
	out := make([]models.Category, 0)
	for _, r := range records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	slices.Sort(out)
	return out
}
