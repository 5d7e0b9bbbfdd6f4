// expense-mcp 通过 stdio 向 MCP 客户端暴露某个用户的消费统计与洞察
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"expenseai/config"
	"expenseai/database"
	"expenseai/mcptools"
	"expenseai/service"

	"github.com/mark3labs/mcp-go/server"
	"gorm.io/gorm/logger"
)

func main() {
	configFile := flag.String("config", "", "外部配置文件路径（可选）")
	userID := flag.Uint("user", 0, "用户 ID（必填）")
	flag.Parse()

	if *userID == 0 {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// stdout 留给协议，日志写 stderr
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	cfg.Server.Mode = "release"

	if err := database.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	database.DB.Logger = logger.Default.LogMode(logger.Silent)

	insights := service.NewInsightService(database.DB, cfg, nil, slog.Default())
	svc := mcptools.NewService(database.DB, insights, uint(*userID))

	s := server.NewMCPServer(
		"expenseai",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	mcptools.RegisterTools(s, svc)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
