package main

import (
	"context"
	"log"

	"github.com/blues/dps/internal/config"
	"github.com/blues/dps/internal/database"
	"github.com/blues/dps/internal/gateway"
	"github.com/blues/dps/internal/logger"
	"github.com/blues/dps/internal/receipt"
	"github.com/blues/dps/internal/router"
	"github.com/blues/dps/internal/storage"
	"github.com/blues/dps/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	logger.Init(cfg.Log)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化对象存储
	store, err := storage.NewS3Store(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// 初始化支付网关适配器
	adapter := gateway.NewAdapter(cfg.Stripe)

	// 初始化收据生成工作器
	receipts, err := receipt.NewWorker(db, store, cfg.Receipt)
	if err != nil {
		log.Fatalf("Failed to initialize receipt worker: %v", err)
	}
	defer receipts.Release()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, adapter, receipts, cfg)

	// 启动定时任务
	manager := task.Start(db, cfg, receipts)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
