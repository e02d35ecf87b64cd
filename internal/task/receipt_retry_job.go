package task

import (
	"time"

	"github.com/blues/dps/internal/config"
	"github.com/blues/dps/internal/logger"
	"github.com/blues/dps/internal/model"
	"github.com/blues/dps/internal/receipt"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// ReceiptRetryJob 收据补偿任务。收据生成是尽力而为的副作用，
// 上传失败不会影响捐赠状态，这里把漏掉的收据重新排队。
type ReceiptRetryJob struct {
	db       *gorm.DB
	config   *config.Config
	receipts receipt.Dispatcher
}

// NewReceiptRetryJob 创建收据补偿任务
func NewReceiptRetryJob(db *gorm.DB, cfg *config.Config, receipts receipt.Dispatcher) *ReceiptRetryJob {
	return &ReceiptRetryJob{
		db:       db,
		config:   cfg,
		receipts: receipts,
	}
}

// GetName 获取任务名称
func (j *ReceiptRetryJob) GetName() string {
	return "receipt_retrier"
}

// GetSchedule 获取调度配置
func (j *ReceiptRetryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *ReceiptRetryJob) Execute() {
	if j.receipts == nil {
		return
	}

	// 成功的银行卡捐赠入账后应当有收据
	var donations []model.DonationModel
	err := j.db.Where("status = ? AND payment_method = ? AND receipt_url = ''",
		model.DonationStatusSucceeded, model.PaymentMethodCard).
		Limit(100).
		Find(&donations).Error
	if err != nil {
		logger.Error("Failed to fetch donations missing receipts: %v", err)
		return
	}

	if len(donations) == 0 {
		return
	}

	for _, donation := range donations {
		j.receipts.Dispatch(donation.Id)
	}

	logger.Info("Receipt retry task re-dispatched %d donations", len(donations))
}
