package analytics

import (
	"fmt"
	"strconv"
	"strings"

	"expenseai/models"
)

// DefaultCurrency 提示词默认货币符号
const DefaultCurrency = "₹"

// BuildPrompt 构建 AI 洞察提示词：总额、最高类别、完整的类别明细
func BuildPrompt(s Summary, top models.Category, currency string) string {
	var b strings.Builder
	b.WriteString("User expense summary:\n")
	fmt.Fprintf(&b, "Total spending: %s%s\n", currency, s.Total.String())
	fmt.Fprintf(&b, "Top category: %s\n", top)
	fmt.Fprintf(&b, "Category breakdown: %s\n", breakdownJSON(s.Categories))
	b.WriteString("\nGive 1 short, friendly financial advice (max 2 lines).\n")
	return b.String()
}

// breakdownJSON 以列表顺序输出 {"Food":150,"Travel":25}，map 序列化会打乱顺序
func breakdownJSON(totals []CategoryTotal) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, t := range totals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(string(t.Category)))
		b.WriteByte(':')
		b.WriteString(t.Total.String())
	}
	b.WriteByte('}')
	return b.String()
}
