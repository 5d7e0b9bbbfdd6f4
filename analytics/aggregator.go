// Package analytics 消费记录的统计、洞察与列表视图计算。
//
// 包内所有函数都是输入快照的纯函数：不持有状态、不访问数据库，
// 传入的记录必须已经按用户隔离。
package analytics

import (
	"slices"
	"time"

	"expenseai/models"

	"github.com/shopspring/decimal"
)

// CategoryTotal 按类别汇总
type CategoryTotal struct {
	Category models.Category `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// MonthlyTotal 按月汇总（月份为 Jan..Dec）
type MonthlyTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// Summary 一次遍历得到的全部汇总数据
type Summary struct {
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
	Monthly    []MonthlyTotal  `json:"monthly"`
}

// Total 计算总金额，空集合返回 0
func Total(records []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// CategoryTotals 按类别汇总，按金额降序；金额相同时保持首次出现的顺序
func CategoryTotals(records []models.Expense) []CategoryTotal {
	var acc categoryAccumulator
	for _, r := range records {
		acc.add(r)
	}
	return acc.result()
}

// MonthlyTotals 按自然月（1-12，忽略年份）汇总，按月份升序
func MonthlyTotals(records []models.Expense) []MonthlyTotal {
	var acc monthAccumulator
	for _, r := range records {
		acc.add(r)
	}
	return acc.result()
}

// Summarize 计算总额、类别汇总和月度汇总
func Summarize(records []models.Expense) Summary {
	var (
		cats   categoryAccumulator
		months monthAccumulator
	)
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
		cats.add(r)
		months.add(r)
	}
	return Summary{
		Count:      len(records),
		Total:      total,
		Categories: cats.result(),
		Monthly:    months.result(),
	}
}

// categoryAccumulator 类别 -> 金额，order 记录首次出现的顺序
type categoryAccumulator struct {
	sums  map[models.Category]decimal.Decimal
	order []models.Category
}

func (a *categoryAccumulator) add(r models.Expense) {
	if a.sums == nil {
		a.sums = make(map[models.Category]decimal.Decimal)
	}
	sum, ok := a.sums[r.Category]
	if !ok {
		a.order = append(a.order, r.Category)
		sum = decimal.Zero
	}
	a.sums[r.Category] = sum.Add(r.Amount)
}

func (a *categoryAccumulator) result() []CategoryTotal {
	out := make([]CategoryTotal, 0, len(a.order))
	for _, c := range a.order {
		out = append(out, CategoryTotal{Category: c, Total: a.sums[c]})
	}
	slices.SortStableFunc(out, func(x, y CategoryTotal) int {
		return y.Total.Cmp(x.Total)
	})
	return out
}

// monthAccumulator 以月份为下标的定长累加器
type monthAccumulator struct {
	sums [12]decimal.Decimal
	seen [12]bool
}

func (a *monthAccumulator) add(r models.Expense) {
	i := int(r.Date.Month()) - 1
	if !a.seen[i] {
		a.seen[i] = true
		a.sums[i] = decimal.Zero
	}
	a.sums[i] = a.sums[i].Add(r.Amount)
}

func (a *monthAccumulator) result() []MonthlyTotal {
	out := make([]MonthlyTotal, 0, len(a.sums))
	for i, ok := range a.seen {
		if !ok {
			continue
		}
		out = append(out, MonthlyTotal{Month: MonthLabel(time.Month(i + 1)), Total: a.sums[i]})
	}
	return out
}

// MonthLabel 月份的三字母缩写
func MonthLabel(m time.Month) string {
	return m.String()[:3]
}
