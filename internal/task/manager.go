package task

import (
	"github.com/blues/dps/internal/config"
	"github.com/blues/dps/internal/logger"
	"github.com/blues/dps/internal/receipt"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	config    *config.Config
	receipts  receipt.Dispatcher
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, cfg *config.Config, receipts receipt.Dispatcher) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		db:        db,
		config:    cfg,
		receipts:  receipts,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, cfg *config.Config, receipts receipt.Dispatcher) *Manager {
	manager := NewManager(db, cfg, receipts)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	// 注册账本对账任务
	m.registerJob(NewLedgerReconcileJob(m.db, m.config))
	// 注册收据补偿任务
	m.registerJob(NewReceiptRetryJob(m.db, m.config, m.receipts))
}

// Job 定时任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// registerJob 注册任务
func (m *Manager) registerJob(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
