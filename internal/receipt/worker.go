package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blues/dps/internal/config"
	"github.com/blues/dps/internal/logger"
	"github.com/blues/dps/internal/model"
	"github.com/blues/dps/internal/storage"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// Dispatcher 收据生成入口。捐赠写入事务提交后触发，
// 失败只记录日志，绝不回传到捐赠主流程。
type Dispatcher interface {
	Dispatch(donationId int64)
}

// Worker 收据生成工作器，协程池异步执行
type Worker struct {
	db         *gorm.DB
	uploader   storage.Uploader
	pool       *ants.Pool
	maxRetries int
	timeout    time.Duration
}

// NewWorker 创建收据生成工作器
func NewWorker(db *gorm.DB, uploader storage.Uploader, cfg config.ReceiptConfig) (*Worker, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt pool: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Worker{
		db:         db,
		uploader:   uploader,
		pool:       pool,
		maxRetries: maxRetries,
		timeout:    30 * time.Second,
	}, nil
}

// Dispatch 提交收据生成任务
func (w *Worker) Dispatch(donationId int64) {
	err := w.pool.Submit(func() {
		w.generate(donationId)
	})
	if err != nil {
		logger.Error("Failed to submit receipt task for donation %d: %v", donationId, err)
	}
}

// generate 生成收据并回写URL，带重试
func (w *Worker) generate(donationId int64) {
	var donation model.DonationModel
	if err := w.db.First(&donation, donationId).Error; err != nil {
		logger.Error("Receipt task: donation %d not found: %v", donationId, err)
		return
	}

	if donation.Status != model.DonationStatusSucceeded {
		logger.Warn("Receipt task: donation %d is %s, skipping", donationId, donation.Status)
		return
	}
	if donation.ReceiptURL != "" {
		return
	}

	key := fmt.Sprintf("receipts/receipt-%d-%s.txt", donationId, uuid.New().String())
	content := []byte(Render(&donation))

	var url string
	var err error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		url, err = w.uploader.Upload(ctx, key, content, "text/plain")
		cancel()
		if err == nil {
			break
		}
		logger.Warn("Receipt upload for donation %d failed (attempt %d/%d): %v",
			donationId, attempt, w.maxRetries, err)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if err != nil {
		logger.Error("Receipt upload for donation %d gave up after %d attempts: %v",
			donationId, w.maxRetries, err)
		return
	}

	if err := w.db.Model(&model.DonationModel{}).
		Where("id = ?", donationId).
		Update("receipt_url", url).Error; err != nil {
		logger.Error("Failed to attach receipt to donation %d: %v", donationId, err)
		return
	}

	logger.Info("Receipt attached to donation %d: %s", donationId, url)
}

// Release 释放协程池
func (w *Worker) Release() {
	w.pool.Release()
}

// Render 渲染纯文本收据
func Render(d *model.DonationModel) string {
	var b strings.Builder
	b.WriteString("DONATION RECEIPT\n")
	b.WriteString("================\n")
	fmt.Fprintf(&b, "Donation ID: %d\n", d.Id)
	fmt.Fprintf(&b, "Amount: %s %.2f\n", strings.ToUpper(d.Currency), d.AmountMajor())
	fmt.Fprintf(&b, "Donor: %s\n", d.FullName())
	fmt.Fprintf(&b, "Email: %s\n", d.Email)
	fmt.Fprintf(&b, "Date: %s\n", d.CreatedAt.Format(time.RFC3339))
	if d.PaymentIntentId != nil {
		fmt.Fprintf(&b, "Payment ID: %s\n", *d.PaymentIntentId)
	}
	b.WriteString("================\n")
	b.WriteString("Thank you for your generous donation!\n")
	return b.String()
}
