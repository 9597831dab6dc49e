package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kubistream/kubi-main-app-sub000/internal/chain"
	"github.com/Kubistream/kubi-main-app-sub000/internal/config"
	"github.com/Kubistream/kubi-main-app-sub000/internal/database"
	"github.com/Kubistream/kubi-main-app-sub000/internal/logger"
	"github.com/Kubistream/kubi-main-app-sub000/internal/router"
	"github.com/Kubistream/kubi-main-app-sub000/internal/task"
	"github.com/Kubistream/kubi-main-app-sub000/internal/watcher"
	"github.com/Kubistream/kubi-main-app-sub000/internal/ws"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	// 初始化日志
	initLogger(cfg.Log)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化各链管理器
	managers := make(map[string]*chain.Manager, len(cfg.Chains))
	for name, chainCfg := range cfg.Chains {
		manager, err := chain.NewManager(name, chainCfg)
		if err != nil {
			logger.Fatal("Failed to initialize chain %s: %v", name, err)
		}
		managers[name] = manager
	}

	gateway, err := chain.NewGateway(managers)
	if err != nil {
		logger.Fatal("Failed to initialize token gateway: %v", err)
	}

	// 推送中心
	hub := ws.NewHub()

	// 每条链一个watcher
	watchers := make([]*watcher.Watcher, 0, len(managers))
	for _, manager := range managers {
		w := watcher.NewWatcher(manager, db)
		if err := w.Start(); err != nil {
			logger.Fatal("Failed to start watcher for chain %s: %v", manager.Name(), err)
		}
		watchers = append(watchers, w)
	}

	// 启动定时任务
	taskManager, err := task.NewManager(db, hub, gateway, cfg)
	if err != nil {
		logger.Fatal("Failed to create task manager: %v", err)
	}
	taskManager.Start()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 启动HTTP服务器
	r := router.Setup(db, hub, watchers)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	// 先停监控与任务，进行中的数据库写入允许完成
	for _, w := range watchers {
		w.Stop()
	}
	taskManager.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}

	for _, manager := range managers {
		manager.Close()
	}
	logger.Info("Server stopped")
}

// initLogger 按配置初始化默认日志器
func initLogger(cfg config.LogConfig) {
	level := logger.ParseLogLevel(cfg.Level)

	if cfg.Output == "file" {
		l, err := logger.NewWithFileRotation(level, cfg.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(l)
		return
	}

	l, err := logger.New(level)
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
}
