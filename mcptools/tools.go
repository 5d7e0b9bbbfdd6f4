package mcptools

import (
	"context"

	"expenseai/analytics"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools 注册全部只读工具
func RegisterTools(s *server.MCPServer, svc *Service) {
	registerSpendingSummary(s, svc)
	registerSpendingInsight(s, svc)
	registerListExpenses(s, svc)
}

func registerSpendingSummary(s *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("spending_summary",
		mcp.WithDescription("Total spending, per-category breakdown (highest first, with share of total) and per-month totals."),
		mcp.WithString("start_date",
			mcp.Description("Start date (YYYY-MM-DD), inclusive"),
		),
		mcp.WithString("end_date",
			mcp.Description("End date (YYYY-MM-DD), inclusive"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.SpendingSummary(ctx,
			mcp.ParseString(request, "start_date", ""),
			mcp.ParseString(request, "end_date", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	})
}

func registerSpendingInsight(s *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("spending_insight",
		mcp.WithDescription("One-sentence insight about where the money goes. The ai mode falls back when the language model is unavailable."),
		mcp.WithString("mode",
			mcp.Description("rule or ai; defaults to the server configuration"),
			mcp.Enum(string(analytics.ModeRule), string(analytics.ModeAI)),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.SpendingInsight(ctx, mcp.ParseString(request, "mode", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	})
}

func registerListExpenses(s *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("list_expenses",
		mcp.WithDescription("List expenses filtered by category and a case-insensitive search over title and category, sorted, with totals for the matching set."),
		mcp.WithString("category",
			mcp.Description("Exact category, or all"),
		),
		mcp.WithString("search",
			mcp.Description("Substring matched against title and category"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort order (default: date_desc)"),
			mcp.Enum(
				string(analytics.SortDateDesc), string(analytics.SortDateAsc),
				string(analytics.SortAmountDesc), string(analytics.SortAmountAsc),
				string(analytics.SortTitleAsc), string(analytics.SortTitleDesc),
			),
		),
		mcp.WithString("start_date",
			mcp.Description("Start date (YYYY-MM-DD), inclusive"),
		),
		mcp.WithString("end_date",
			mcp.Description("End date (YYYY-MM-DD), inclusive"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of expenses to return (default: 50)"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		state := analytics.ViewState{
			Category: mcp.ParseString(request, "category", ""),
			Search:   mcp.ParseString(request, "search", ""),
			Sort:     analytics.SortKey(mcp.ParseString(request, "sort", "")),
		}
		result, err := svc.ListExpenses(ctx, state,
			mcp.ParseString(request, "start_date", ""),
			mcp.ParseString(request, "end_date", ""),
			mcp.ParseInt(request, "limit", defaultLimit))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	})
}
