package logic

import (
	"errors"
	"math"
	"time"

	"github.com/blues/dps/internal/apperr"
	"github.com/blues/dps/internal/gateway"
	"github.com/blues/dps/internal/logger"
	"github.com/blues/dps/internal/model"
	"github.com/blues/dps/internal/receipt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DonationLogic 捐赠入账业务逻辑。网关成功事件和银行回单审核
// 是 raised_amount 仅有的两个写入方，都在这里收口。
type DonationLogic struct {
	db       *gorm.DB
	receipts receipt.Dispatcher
}

// NewDonationLogic 创建捐赠入账业务逻辑
func NewDonationLogic(db *gorm.DB, receipts receipt.Dispatcher) *DonationLogic {
	return &DonationLogic{db: db, receipts: receipts}
}

// ApplyCheckoutCompleted 入账网关支付成功事件。
// 以 payment_intent_id 的唯一约束保证幂等：同一事件重复投递时不新建记录、
// 不重复累加 raised_amount，直接返回已入账的捐赠。
func (l *DonationLogic) ApplyCheckoutCompleted(ev *gateway.CheckoutCompletedEvent) (*model.DonationModel, error) {
	if err := l.validateCheckoutEvent(ev); err != nil {
		return nil, err
	}

	// 快路径：该网关引用已入账，视为重复投递
	var existing model.DonationModel
	err := l.db.Where("payment_intent_id = ?", ev.PaymentIntentId).First(&existing).Error
	if err == nil {
		logger.Info("Gateway event %s already applied as donation %d, skipping",
			ev.GatewayEventId, existing.Id)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "查询捐赠记录失败", err)
	}

	var event model.EventModel
	if err := l.db.First(&event, ev.EventId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "活动不存在")
		}
		return nil, apperr.Wrap(apperr.Internal, "查询活动失败", err)
	}

	donation := model.DonationModel{
		EventId:         ev.EventId,
		UserId:          ev.UserId,
		AmountMinor:     ev.AmountMinor,
		Currency:        ev.Currency,
		PaymentIntentId: &ev.PaymentIntentId,
		Status:          model.DonationStatusSucceeded,
		PaymentMethod:   model.PaymentMethodCard,
		Email:           ev.Email,
		FirstName:       ev.FirstName,
		LastName:        ev.LastName,
		MobileNumber:    ev.MobileNumber,
		Anonymous:       ev.Anonymous,
		SupportMessage:  ev.SupportMessage,
	}

	// 开始事务：账本写入和活动总额累加必须是同一逻辑单元
	tx := l.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&donation).Error; err != nil {
		tx.Rollback()
		// 并发重复投递会撞唯一索引，重查确认后按已入账处理
		var applied model.DonationModel
		if qErr := l.db.Where("payment_intent_id = ?", ev.PaymentIntentId).
			First(&applied).Error; qErr == nil {
			logger.Info("Gateway event %s raced with a duplicate delivery, donation %d wins",
				ev.GatewayEventId, applied.Id)
			return &applied, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "创建捐赠记录失败", err)
	}

	// 记录已处理的网关事件，重复投递时静默跳过
	gatewayEvent := model.GatewayEventModel{
		GatewayEventId: ev.GatewayEventId,
		EventType:      "checkout.session.completed",
		DonationId:     donation.Id,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&gatewayEvent).Error; err != nil {
		tx.Rollback()
		return nil, apperr.Wrap(apperr.Internal, "记录网关事件失败", err)
	}

	if err := l.settleDonation(tx, &event, donation.AmountMajor()); err != nil {
		tx.Rollback()
		return nil, err
	}

	// 参与者集合语义：重复加入不报错不重复
	if ev.UserId != nil {
		participant := model.EventParticipantModel{EventId: ev.EventId, UserId: *ev.UserId}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error; err != nil {
			tx.Rollback()
			return nil, apperr.Wrap(apperr.Internal, "记录活动参与者失败", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "提交捐赠事务失败", err)
	}

	// 收据生成是尽力而为的副作用，失败不影响捐赠本身
	if l.receipts != nil {
		l.receipts.Dispatch(donation.Id)
	}

	return &donation, nil
}

// ApplyPaymentFailed 入账网关支付失败事件。找不到处理中的记录时为no-op。
func (l *DonationLogic) ApplyPaymentFailed(paymentIntentId string) error {
	if paymentIntentId == "" {
		return apperr.New(apperr.Validation, "支付引用不能为空")
	}

	result := l.db.Model(&model.DonationModel{}).
		Where("payment_intent_id = ? AND status = ?", paymentIntentId, model.DonationStatusProcessing).
		Update("status", model.DonationStatusCanceled)
	if result.Error != nil {
		return apperr.Wrap(apperr.Internal, "更新捐赠状态失败", result.Error)
	}

	if result.RowsAffected == 0 {
		logger.Info("Payment failed event for %s matched no processing donation, ignoring", paymentIntentId)
	}
	return nil
}

// BankSlipInput 银行回单捐赠入参
type BankSlipInput struct {
	EventId        int64
	UserId         *int64
	AmountMinor    int64
	Currency       string
	Email          string
	FirstName      string
	LastName       string
	MobileNumber   string
	Anonymous      bool
	SupportMessage string
	BankSlipURL    string
}

// SubmitBankSlip 提交银行回单捐赠。记录进入 processing 状态，
// 审核通过前绝不计入活动筹款总额。
func (l *DonationLogic) SubmitBankSlip(in *BankSlipInput) (*model.DonationModel, error) {
	if err := l.validateBankSlip(in); err != nil {
		return nil, err
	}

	var event model.EventModel
	if err := l.db.First(&event, in.EventId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "活动不存在")
		}
		return nil, apperr.Wrap(apperr.Internal, "查询活动失败", err)
	}

	donation := model.DonationModel{
		EventId:        in.EventId,
		UserId:         in.UserId,
		AmountMinor:    in.AmountMinor,
		Currency:       in.Currency,
		Status:         model.DonationStatusProcessing,
		PaymentMethod:  model.PaymentMethodBankSlip,
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		MobileNumber:   in.MobileNumber,
		Anonymous:      in.Anonymous,
		SupportMessage: in.SupportMessage,
		BankSlipURL:    in.BankSlipURL,
	}

	if err := l.db.Create(&donation).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "创建捐赠记录失败", err)
	}

	return &donation, nil
}

// ApproveBankSlip 审核通过银行回单捐赠。只接受 processing 状态，
// 重复审核返回 Conflict，保证至多计入一次。
func (l *DonationLogic) ApproveBankSlip(donationId int64, approverId int64) (*model.DonationModel, error) {
	var donation model.DonationModel
	if err := l.db.First(&donation, donationId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "捐赠不存在")
		}
		return nil, apperr.Wrap(apperr.Internal, "查询捐赠记录失败", err)
	}

	if donation.Status != model.DonationStatusProcessing {
		return nil, apperr.Newf(apperr.Conflict, "捐赠不在处理中状态，当前状态: %s", donation.Status)
	}

	var event model.EventModel
	if err := l.db.First(&event, donation.EventId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "活动不存在")
		}
		return nil, apperr.Wrap(apperr.Internal, "查询活动失败", err)
	}

	now := time.Now()

	tx := l.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// 带状态条件的更新挡住并发的重复审核
	result := tx.Model(&model.DonationModel{}).
		Where("id = ? AND status = ?", donationId, model.DonationStatusProcessing).
		Updates(map[string]interface{}{
			"status":      model.DonationStatusSucceeded,
			"verified_at": now,
			"verified_by": approverId,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, apperr.Wrap(apperr.Internal, "更新捐赠状态失败", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, apperr.New(apperr.Conflict, "捐赠已被其他管理员处理")
	}

	if err := l.settleDonation(tx, &event, donation.AmountMajor()); err != nil {
		tx.Rollback()
		return nil, err
	}

	if donation.UserId != nil {
		participant := model.EventParticipantModel{EventId: donation.EventId, UserId: *donation.UserId}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error; err != nil {
			tx.Rollback()
			return nil, apperr.Wrap(apperr.Internal, "记录活动参与者失败", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "提交审核事务失败", err)
	}

	donation.Status = model.DonationStatusSucceeded
	donation.VerifiedAt = &now
	donation.VerifiedBy = &approverId
	return &donation, nil
}

// UpdateDonationStatus 按转移表更新捐赠状态。转向 succeeded 等价于审核通过，
// 会走同一条计入总额的路径。
func (l *DonationLogic) UpdateDonationStatus(donationId int64, target model.DonationStatus, actorId int64) (*model.DonationModel, error) {
	if !target.IsValid() {
		return nil, apperr.Newf(apperr.Validation, "无效的捐赠状态: %s", target)
	}

	var donation model.DonationModel
	if err := l.db.First(&donation, donationId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "捐赠不存在")
		}
		return nil, apperr.Wrap(apperr.Internal, "查询捐赠记录失败", err)
	}

	if !donation.Status.CanTransitionTo(target) {
		return nil, apperr.Newf(apperr.Conflict, "不允许的状态转移: %s -> %s", donation.Status, target)
	}

	if target == model.DonationStatusSucceeded {
		return l.ApproveBankSlip(donationId, actorId)
	}

	result := l.db.Model(&model.DonationModel{}).
		Where("id = ? AND status = ?", donationId, donation.Status).
		Update("status", target)
	if result.Error != nil {
		return nil, apperr.Wrap(apperr.Internal, "更新捐赠状态失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.Conflict, "捐赠状态已被并发修改")
	}

	donation.Status = target
	return &donation, nil
}

// ListBankSlipDonations 按状态列出银行回单捐赠，供管理员审核
func (l *DonationLogic) ListBankSlipDonations(status model.DonationStatus) ([]model.DonationModel, error) {
	query := l.db.Where("payment_method = ?", model.PaymentMethodBankSlip)
	if status != "" {
		if !status.IsValid() {
			return nil, apperr.Newf(apperr.Validation, "无效的捐赠状态: %s", status)
		}
		query = query.Where("status = ?", status)
	}

	var donations []model.DonationModel
	if err := query.Order("created_at DESC").Find(&donations).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "查询银行回单捐赠失败", err)
	}
	return donations, nil
}

// ReconcileResult 对账结果
type ReconcileResult struct {
	EventId      int64   `json:"event_id"`
	CachedAmount float64 `json:"cached_amount"`
	LedgerAmount float64 `json:"ledger_amount"`
	Adjusted     bool    `json:"adjusted"`
}

// ReconcileEventTotal 以账本为准重算活动筹款总额。
// raised_amount 只是缓存，增量更新中途崩溃留下的偏差由这里修复。
func (l *DonationLogic) ReconcileEventTotal(eventId int64) (*ReconcileResult, error) {
	var event model.EventModel
	if err := l.db.First(&event, eventId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "活动不存在")
		}
		return nil, apperr.Wrap(apperr.Internal, "查询活动失败", err)
	}

	var totalMinor int64
	err := l.db.Model(&model.DonationModel{}).
		Where("event_id = ? AND status = ?", eventId, model.DonationStatusSucceeded).
		Select("COALESCE(SUM(amount_minor), 0)").
		Scan(&totalMinor).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "汇总账本失败", err)
	}

	ledgerAmount := float64(totalMinor) / 100
	result := &ReconcileResult{
		EventId:      eventId,
		CachedAmount: event.RaisedAmount,
		LedgerAmount: ledgerAmount,
	}

	// 增量浮点累加和一次性汇总可能差一个ULP，半分以内不算漂移
	if math.Abs(event.RaisedAmount-ledgerAmount) >= 0.005 {
		logger.Warn("Event %d raised amount drifted: cached=%.2f ledger=%.2f, repairing",
			eventId, event.RaisedAmount, ledgerAmount)
		if err := l.db.Model(&event).Update("raised_amount", ledgerAmount).Error; err != nil {
			return nil, apperr.Wrap(apperr.Internal, "修正筹款总额失败", err)
		}
		result.Adjusted = true
	}

	// 重算后补做完成状态检查
	if event.RaisesFunds() && event.FundingGoal > 0 &&
		event.ProgrammeStatus != model.ProgrammeStatusCompleted &&
		ledgerAmount >= event.FundingGoal {
		if err := l.db.Model(&event).
			Update("programme_status", model.ProgrammeStatusCompleted).Error; err != nil {
			return nil, apperr.Wrap(apperr.Internal, "更新活动状态失败", err)
		}
		logger.Info("Event %d reached funding goal during reconcile: %.2f/%.2f",
			eventId, ledgerAmount, event.FundingGoal)
	}

	return result, nil
}

// settleDonation 在事务内累加活动筹款总额并处理达成目标的状态转移。
// 累加用存储层的原子表达式，并发捐赠不会丢失更新。
func (l *DonationLogic) settleDonation(tx *gorm.DB, event *model.EventModel, amountMajor float64) error {
	if err := tx.Model(&model.EventModel{}).
		Where("id = ?", event.Id).
		Update("raised_amount", gorm.Expr("raised_amount + ?", amountMajor)).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "更新筹款总额失败", err)
	}

	// 达成目标：Completed 只进不出
	if event.RaisesFunds() && event.FundingGoal > 0 &&
		event.ProgrammeStatus != model.ProgrammeStatusCompleted &&
		event.RaisedAmount+amountMajor >= event.FundingGoal {
		if err := tx.Model(&model.EventModel{}).
			Where("id = ? AND programme_status != ?", event.Id, model.ProgrammeStatusCompleted).
			Update("programme_status", model.ProgrammeStatusCompleted).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "更新活动状态失败", err)
		}
		logger.Info("Event %d reached funding goal: %.2f/%.2f",
			event.Id, event.RaisedAmount+amountMajor, event.FundingGoal)
	}

	return nil
}

// validateCheckoutEvent 校验网关成功事件
func (l *DonationLogic) validateCheckoutEvent(ev *gateway.CheckoutCompletedEvent) error {
	if ev.PaymentIntentId == "" {
		return apperr.New(apperr.Validation, "支付引用不能为空")
	}
	if ev.EventId == 0 {
		return apperr.New(apperr.Validation, "活动ID不能为空")
	}
	if ev.AmountMinor <= 0 {
		return apperr.New(apperr.Validation, "捐赠金额必须大于0")
	}
	if ev.Email == "" || ev.FirstName == "" || ev.LastName == "" {
		return apperr.New(apperr.Validation, "捐赠人信息不完整")
	}
	return nil
}

// validateBankSlip 校验银行回单捐赠
func (l *DonationLogic) validateBankSlip(in *BankSlipInput) error {
	if in.EventId == 0 {
		return apperr.New(apperr.Validation, "活动ID不能为空")
	}
	if in.AmountMinor <= 0 {
		return apperr.New(apperr.Validation, "捐赠金额必须大于0")
	}
	if in.Email == "" || in.FirstName == "" || in.LastName == "" {
		return apperr.New(apperr.Validation, "捐赠人信息不完整")
	}
	if in.BankSlipURL == "" {
		return apperr.New(apperr.Validation, "银行回单凭证不能为空")
	}
	return nil
}
