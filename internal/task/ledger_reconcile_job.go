package task

import (
	"time"

	"github.com/blues/dps/internal/config"
	"github.com/blues/dps/internal/logger"
	"github.com/blues/dps/internal/logic"
	"github.com/blues/dps/internal/model"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// LedgerReconcileJob 账本对账任务。raised_amount 是缓存值，
// 增量更新中途崩溃可能留下偏差，这里定期以账本为准重算修复。
type LedgerReconcileJob struct {
	db            *gorm.DB
	config        *config.Config
	donationLogic *logic.DonationLogic
}

// NewLedgerReconcileJob 创建账本对账任务
func NewLedgerReconcileJob(db *gorm.DB, cfg *config.Config) *LedgerReconcileJob {
	return &LedgerReconcileJob{
		db:            db,
		config:        cfg,
		donationLogic: logic.NewDonationLogic(db, nil),
	}
}

// GetName 获取任务名称
func (j *LedgerReconcileJob) GetName() string {
	return "ledger_reconciler"
}

// GetSchedule 获取调度配置
func (j *LedgerReconcileJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *LedgerReconcileJob) Execute() {
	logger.Info("Starting ledger reconcile task")

	// 只有筹款类活动持有缓存总额
	var events []model.EventModel
	err := j.db.Where("type IN ?",
		[]model.EventType{model.EventTypeFundraising, model.EventTypeMixed}).
		Find(&events).Error
	if err != nil {
		logger.Error("Failed to fetch events for reconcile: %v", err)
		return
	}

	adjustedCount := 0
	for _, event := range events {
		result, err := j.donationLogic.ReconcileEventTotal(event.Id)
		if err != nil {
			logger.Error("Failed to reconcile event %d: %v", event.Id, err)
			continue
		}
		if result.Adjusted {
			logger.Warn("Reconciled event %d: cached=%.2f ledger=%.2f",
				event.Id, result.CachedAmount, result.LedgerAmount)
			adjustedCount++
		}
	}

	logger.Info("Ledger reconcile task completed. Checked %d events, adjusted %d",
		len(events), adjustedCount)
}
