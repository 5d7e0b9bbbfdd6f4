package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"expenseai/config"
	"expenseai/database"
	"expenseai/middleware"
	"expenseai/router"
)

// @title ExpenseAI API
// @version 1.0
// @description 消费记录管理、统计汇总、AI 消费洞察与数据导出
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println("expenseai v1.0.0")
		return
	}

	// 加载配置（内置配置 + 可选的外部配置 + 环境变量）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	config.SetupLogger(cfg.Log)

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		slog.Info("port overridden by flag", "port", port)
	}

	config.PrintConfig()

	if err := database.Init(cfg); err != nil {
		slog.Error("database init failed", "error", err)
		os.Exit(1)
	}

	middleware.InitJWT(cfg)

	r := router.SetupRouter(cfg)

	slog.Info("expenseai started",
		"swagger", fmt.Sprintf("http://localhost%s/swagger/index.html", cfg.Server.Port),
		"api", fmt.Sprintf("http://localhost%s/api/v1/", cfg.Server.Port))

	if err := r.Run(cfg.Server.Port); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
