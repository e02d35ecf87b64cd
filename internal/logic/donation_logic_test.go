package logic

import (
	"fmt"
	"testing"

	"github.com/blues/dps/internal/apperr"
	"github.com/blues/dps/internal/gateway"
	"github.com/blues/dps/internal/model"
)

// makeCheckoutEvent 构造网关成功事件
func makeCheckoutEvent(eventId int64, ref string, amountMinor int64) *gateway.CheckoutCompletedEvent {
	return &gateway.CheckoutCompletedEvent{
		GatewayEventId:  "evt_" + ref,
		PaymentIntentId: ref,
		EventId:         eventId,
		AmountMinor:     amountMinor,
		Currency:        "lkr",
		Email:           "donor@example.com",
		FirstName:       "Nimal",
		LastName:        "Perera",
		MobileNumber:    "0771234567",
	}
}

// makeBankSlip 构造银行回单捐赠入参
func makeBankSlip(eventId int64, amountMinor int64) *BankSlipInput {
	return &BankSlipInput{
		EventId:      eventId,
		AmountMinor:  amountMinor,
		Currency:     "lkr",
		Email:        "donor@example.com",
		FirstName:    "Kamala",
		LastName:     "Silva",
		MobileNumber: "0777654321",
		BankSlipURL:  "https://assets.example.com/slips/slip-1.jpg",
	}
}

// TestApplyCheckoutCompleted_Idempotent 同一网关事件重复投递只入账一次
func TestApplyCheckoutCompleted_Idempotent(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	ev := makeCheckoutEvent(event.Id, "pi_dup", 250000)

	first, err := donationLogic.ApplyCheckoutCompleted(ev)
	if err != nil {
		t.Fatalf("first delivery error = %v, want nil", err)
	}

	second, err := donationLogic.ApplyCheckoutCompleted(ev)
	if err != nil {
		t.Fatalf("second delivery error = %v, want nil", err)
	}

	if first.Id != second.Id {
		t.Errorf("second delivery created donation %d, want existing %d", second.Id, first.Id)
	}
	if got := countDonations(t, db); got != 1 {
		t.Errorf("donation count = %d, want 1", got)
	}

	reloaded := reloadEvent(t, db, event.Id)
	if reloaded.RaisedAmount != 2500 {
		t.Errorf("raised amount = %.2f, want 2500 (single increment)", reloaded.RaisedAmount)
	}
}

// TestApplyCheckoutCompleted_ParticipantSet 同一用户多次捐赠只加入参与者集合一次
func TestApplyCheckoutCompleted_ParticipantSet(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	userId := int64(42)
	for i := 0; i < 2; i++ {
		ev := makeCheckoutEvent(event.Id, fmt.Sprintf("pi_user_%d", i), 10000)
		ev.UserId = &userId
		if _, err := donationLogic.ApplyCheckoutCompleted(ev); err != nil {
			t.Fatalf("delivery %d error = %v, want nil", i, err)
		}
	}

	var participants int64
	if err := db.Model(&model.EventParticipantModel{}).
		Where("event_id = ?", event.Id).Count(&participants).Error; err != nil {
		t.Fatalf("failed to count participants: %v", err)
	}
	if participants != 1 {
		t.Errorf("participant count = %d, want 1", participants)
	}
}

// TestApplyCheckoutCompleted_CompletionTransition 达到目标金额时活动转为Completed
func TestApplyCheckoutCompleted_CompletionTransition(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 10000)

	// 已筹到9500，再捐500刚好达成目标
	if err := db.Model(event).Update("raised_amount", 9500.0).Error; err != nil {
		t.Fatalf("failed to preset raised amount: %v", err)
	}

	donationLogic := NewDonationLogic(db, nil)
	if _, err := donationLogic.ApplyCheckoutCompleted(makeCheckoutEvent(event.Id, "pi_goal", 50000)); err != nil {
		t.Fatalf("ApplyCheckoutCompleted error = %v, want nil", err)
	}

	reloaded := reloadEvent(t, db, event.Id)
	if reloaded.RaisedAmount != 10000 {
		t.Errorf("raised amount = %.2f, want 10000", reloaded.RaisedAmount)
	}
	if reloaded.ProgrammeStatus != model.ProgrammeStatusCompleted {
		t.Errorf("programme status = %s, want Completed", reloaded.ProgrammeStatus)
	}
}

// TestApplyCheckoutCompleted_Validation 非法事件在任何写入前被拒绝
func TestApplyCheckoutCompleted_Validation(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	ev := makeCheckoutEvent(event.Id, "", 10000)
	if _, err := donationLogic.ApplyCheckoutCompleted(ev); !apperr.Is(err, apperr.Validation) {
		t.Errorf("missing payment ref error = %v, want Validation", err)
	}

	ev = makeCheckoutEvent(event.Id, "pi_bad_amount", 0)
	if _, err := donationLogic.ApplyCheckoutCompleted(ev); !apperr.Is(err, apperr.Validation) {
		t.Errorf("zero amount error = %v, want Validation", err)
	}

	if got := countDonations(t, db); got != 0 {
		t.Errorf("donation count = %d, want 0 after rejected events", got)
	}
}

// TestApplyCheckoutCompleted_EventNotFound 活动不存在返回NotFound
func TestApplyCheckoutCompleted_EventNotFound(t *testing.T) {
	db := newTestDB(t)
	donationLogic := NewDonationLogic(db, nil)

	if _, err := donationLogic.ApplyCheckoutCompleted(makeCheckoutEvent(999, "pi_missing", 10000)); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("error = %v, want NotFound", err)
	}
}

// TestApplyPaymentFailed 失败事件取消处理中的记录，找不到时为no-op
func TestApplyPaymentFailed(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	// 处理中的重试意向记录
	ref := "pi_retry"
	donation := model.DonationModel{
		EventId:         event.Id,
		AmountMinor:     5000,
		Currency:        "lkr",
		PaymentIntentId: &ref,
		Status:          model.DonationStatusProcessing,
		PaymentMethod:   model.PaymentMethodCard,
		Email:           "donor@example.com",
		FirstName:       "Nimal",
		LastName:        "Perera",
	}
	if err := db.Create(&donation).Error; err != nil {
		t.Fatalf("failed to seed donation: %v", err)
	}

	if err := donationLogic.ApplyPaymentFailed(ref); err != nil {
		t.Fatalf("ApplyPaymentFailed error = %v, want nil", err)
	}

	var reloaded model.DonationModel
	if err := db.First(&reloaded, donation.Id).Error; err != nil {
		t.Fatalf("failed to reload donation: %v", err)
	}
	if reloaded.Status != model.DonationStatusCanceled {
		t.Errorf("status = %s, want canceled", reloaded.Status)
	}

	// 不存在的引用不报错
	if err := donationLogic.ApplyPaymentFailed("pi_unknown"); err != nil {
		t.Errorf("unknown ref error = %v, want nil", err)
	}

	// 取消不影响筹款总额
	if got := reloadEvent(t, db, event.Id).RaisedAmount; got != 0 {
		t.Errorf("raised amount = %.2f, want 0", got)
	}
}

// TestSubmitBankSlip_DoesNotCount 待审核的银行回单捐赠不计入筹款总额
func TestSubmitBankSlip_DoesNotCount(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	donation, err := donationLogic.SubmitBankSlip(makeBankSlip(event.Id, 80000))
	if err != nil {
		t.Fatalf("SubmitBankSlip error = %v, want nil", err)
	}

	if donation.Status != model.DonationStatusProcessing {
		t.Errorf("status = %s, want processing", donation.Status)
	}
	if donation.PaymentMethod != model.PaymentMethodBankSlip {
		t.Errorf("payment method = %s, want bank_slip", donation.PaymentMethod)
	}
	if got := reloadEvent(t, db, event.Id).RaisedAmount; got != 0 {
		t.Errorf("raised amount = %.2f, want 0 before approval", got)
	}
}

// TestSubmitBankSlip_RequiresProof 缺少回单凭证被拒绝
func TestSubmitBankSlip_RequiresProof(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	in := makeBankSlip(event.Id, 80000)
	in.BankSlipURL = ""
	if _, err := donationLogic.SubmitBankSlip(in); !apperr.Is(err, apperr.Validation) {
		t.Errorf("error = %v, want Validation", err)
	}
}

// TestApproveBankSlip_AtMostOnce 重复审核返回Conflict，总额只累加一次
func TestApproveBankSlip_AtMostOnce(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	donation, err := donationLogic.SubmitBankSlip(makeBankSlip(event.Id, 80000))
	if err != nil {
		t.Fatalf("SubmitBankSlip error = %v, want nil", err)
	}

	approved, err := donationLogic.ApproveBankSlip(donation.Id, 7)
	if err != nil {
		t.Fatalf("first approval error = %v, want nil", err)
	}
	if approved.Status != model.DonationStatusSucceeded {
		t.Errorf("status = %s, want succeeded", approved.Status)
	}
	if approved.VerifiedAt == nil || approved.VerifiedBy == nil || *approved.VerifiedBy != 7 {
		t.Errorf("verification fields not set: verifiedAt=%v verifiedBy=%v",
			approved.VerifiedAt, approved.VerifiedBy)
	}

	if _, err := donationLogic.ApproveBankSlip(donation.Id, 7); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("second approval error = %v, want Conflict", err)
	}

	if got := reloadEvent(t, db, event.Id).RaisedAmount; got != 800 {
		t.Errorf("raised amount = %.2f, want 800 (single increment)", got)
	}
}

// TestApproveBankSlip_NotFound 不存在的捐赠返回NotFound
func TestApproveBankSlip_NotFound(t *testing.T) {
	db := newTestDB(t)
	donationLogic := NewDonationLogic(db, nil)

	if _, err := donationLogic.ApproveBankSlip(12345, 1); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("error = %v, want NotFound", err)
	}
}

// TestUpdateDonationStatus_TransitionTable 转移表外的状态转移一律拒绝
func TestUpdateDonationStatus_TransitionTable(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	donation, err := donationLogic.SubmitBankSlip(makeBankSlip(event.Id, 10000))
	if err != nil {
		t.Fatalf("SubmitBankSlip error = %v, want nil", err)
	}

	// processing -> canceled 合法
	canceled, err := donationLogic.UpdateDonationStatus(donation.Id, model.DonationStatusCanceled, 1)
	if err != nil {
		t.Fatalf("processing->canceled error = %v, want nil", err)
	}
	if canceled.Status != model.DonationStatusCanceled {
		t.Errorf("status = %s, want canceled", canceled.Status)
	}

	// canceled 是终态
	if _, err := donationLogic.UpdateDonationStatus(donation.Id, model.DonationStatusSucceeded, 1); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("canceled->succeeded error = %v, want Conflict", err)
	}
	if _, err := donationLogic.UpdateDonationStatus(donation.Id, model.DonationStatusProcessing, 1); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("canceled->processing error = %v, want Conflict", err)
	}

	// 非法状态值
	if _, err := donationLogic.UpdateDonationStatus(donation.Id, "paid", 1); !apperr.Is(err, apperr.Validation) {
		t.Errorf("invalid status error = %v, want Validation", err)
	}

	// 取消的捐赠不计入总额
	if got := reloadEvent(t, db, event.Id).RaisedAmount; got != 0 {
		t.Errorf("raised amount = %.2f, want 0", got)
	}
}

// TestUpdateDonationStatus_ApproveViaTable processing->succeeded 等价于审核通过
func TestUpdateDonationStatus_ApproveViaTable(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 100000)
	donationLogic := NewDonationLogic(db, nil)

	donation, err := donationLogic.SubmitBankSlip(makeBankSlip(event.Id, 30000))
	if err != nil {
		t.Fatalf("SubmitBankSlip error = %v, want nil", err)
	}

	updated, err := donationLogic.UpdateDonationStatus(donation.Id, model.DonationStatusSucceeded, 9)
	if err != nil {
		t.Fatalf("processing->succeeded error = %v, want nil", err)
	}
	if updated.VerifiedBy == nil || *updated.VerifiedBy != 9 {
		t.Errorf("verifiedBy = %v, want 9", updated.VerifiedBy)
	}
	if got := reloadEvent(t, db, event.Id).RaisedAmount; got != 300 {
		t.Errorf("raised amount = %.2f, want 300", got)
	}
}

// TestSumInvariant_InterleavedPaths 两条支付路径交错后缓存总额等于账本汇总
func TestSumInvariant_InterleavedPaths(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 1000000)
	donationLogic := NewDonationLogic(db, nil)

	// 卡、回单、卡、回单交错入账，其中一条回单不审核
	if _, err := donationLogic.ApplyCheckoutCompleted(makeCheckoutEvent(event.Id, "pi_a", 100000)); err != nil {
		t.Fatalf("card donation a error = %v", err)
	}
	slipOne, err := donationLogic.SubmitBankSlip(makeBankSlip(event.Id, 50000))
	if err != nil {
		t.Fatalf("bank slip one error = %v", err)
	}
	if _, err := donationLogic.ApplyCheckoutCompleted(makeCheckoutEvent(event.Id, "pi_b", 70000)); err != nil {
		t.Fatalf("card donation b error = %v", err)
	}
	if _, err := donationLogic.ApproveBankSlip(slipOne.Id, 1); err != nil {
		t.Fatalf("approve slip one error = %v", err)
	}
	if _, err := donationLogic.SubmitBankSlip(makeBankSlip(event.Id, 999900)); err != nil {
		t.Fatalf("bank slip two error = %v", err)
	}

	// succeeded: 1000 + 700 + 500 = 2200，pending 的 9999 不计入
	reloaded := reloadEvent(t, db, event.Id)
	if reloaded.RaisedAmount != 2200 {
		t.Errorf("raised amount = %.2f, want 2200", reloaded.RaisedAmount)
	}

	result, err := donationLogic.ReconcileEventTotal(event.Id)
	if err != nil {
		t.Fatalf("ReconcileEventTotal error = %v", err)
	}
	if result.Adjusted {
		t.Errorf("reconcile adjusted a consistent cache: cached=%.2f ledger=%.2f",
			result.CachedAmount, result.LedgerAmount)
	}
	if result.LedgerAmount != 2200 {
		t.Errorf("ledger amount = %.2f, want 2200", result.LedgerAmount)
	}
}

// TestReconcileEventTotal_RepairsDrift 缓存漂移由对账修复并补做完成检查
func TestReconcileEventTotal_RepairsDrift(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 1000)
	donationLogic := NewDonationLogic(db, nil)

	if _, err := donationLogic.ApplyCheckoutCompleted(makeCheckoutEvent(event.Id, "pi_drift", 120000)); err != nil {
		t.Fatalf("ApplyCheckoutCompleted error = %v", err)
	}

	// 人为制造缓存漂移并抹掉完成状态
	if err := db.Model(event).Updates(map[string]interface{}{
		"raised_amount":    1.0,
		"programme_status": model.ProgrammeStatusActive,
	}).Error; err != nil {
		t.Fatalf("failed to corrupt cache: %v", err)
	}

	result, err := donationLogic.ReconcileEventTotal(event.Id)
	if err != nil {
		t.Fatalf("ReconcileEventTotal error = %v", err)
	}
	if !result.Adjusted {
		t.Error("reconcile did not adjust a drifted cache")
	}

	reloaded := reloadEvent(t, db, event.Id)
	if reloaded.RaisedAmount != 1200 {
		t.Errorf("raised amount = %.2f, want 1200", reloaded.RaisedAmount)
	}
	if reloaded.ProgrammeStatus != model.ProgrammeStatusCompleted {
		t.Errorf("programme status = %s, want Completed after reconcile", reloaded.ProgrammeStatus)
	}
}

// TestReconcileEventTotal_ToleratesRounding 半分以内的浮点误差不触发修复
func TestReconcileEventTotal_ToleratesRounding(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 1000000)
	donationLogic := NewDonationLogic(db, nil)

	if _, err := donationLogic.ApplyCheckoutCompleted(makeCheckoutEvent(event.Id, "pi_ulp", 100000)); err != nil {
		t.Fatalf("ApplyCheckoutCompleted error = %v", err)
	}

	// 模拟增量累加留下的最后一位浮点误差
	if err := db.Model(event).Update("raised_amount", 1000.0000001).Error; err != nil {
		t.Fatalf("failed to nudge cached amount: %v", err)
	}

	result, err := donationLogic.ReconcileEventTotal(event.Id)
	if err != nil {
		t.Fatalf("ReconcileEventTotal error = %v", err)
	}
	if result.Adjusted {
		t.Errorf("reconcile adjusted a sub-cent difference: cached=%v ledger=%v",
			result.CachedAmount, result.LedgerAmount)
	}

	// 达到一分钱的偏差仍然要修
	if err := db.Model(event).Update("raised_amount", 1000.01).Error; err != nil {
		t.Fatalf("failed to drift cached amount: %v", err)
	}
	result, err = donationLogic.ReconcileEventTotal(event.Id)
	if err != nil {
		t.Fatalf("ReconcileEventTotal error = %v", err)
	}
	if !result.Adjusted {
		t.Error("reconcile ignored a full-cent drift")
	}
	if got := reloadEvent(t, db, event.Id).RaisedAmount; got != 1000 {
		t.Errorf("raised amount = %v, want 1000 after repair", got)
	}
}

// TestListBankSlipDonations 按状态过滤银行回单捐赠
func TestListBankSlipDonations(t *testing.T) {
	db := newTestDB(t)
	event := seedEvent(t, db, 1000000)
	donationLogic := NewDonationLogic(db, nil)

	pending, err := donationLogic.SubmitBankSlip(makeBankSlip(event.Id, 10000))
	if err != nil {
		t.Fatalf("SubmitBankSlip error = %v", err)
	}
	approvedSlip, err := donationLogic.SubmitBankSlip(makeBankSlip(event.Id, 20000))
	if err != nil {
		t.Fatalf("SubmitBankSlip error = %v", err)
	}
	if _, err := donationLogic.ApproveBankSlip(approvedSlip.Id, 1); err != nil {
		t.Fatalf("ApproveBankSlip error = %v", err)
	}
	// 卡捐赠不应出现在回单列表里
	if _, err := donationLogic.ApplyCheckoutCompleted(makeCheckoutEvent(event.Id, "pi_card", 30000)); err != nil {
		t.Fatalf("ApplyCheckoutCompleted error = %v", err)
	}

	processing, err := donationLogic.ListBankSlipDonations(model.DonationStatusProcessing)
	if err != nil {
		t.Fatalf("ListBankSlipDonations(processing) error = %v", err)
	}
	if len(processing) != 1 || processing[0].Id != pending.Id {
		t.Errorf("processing list = %v, want only donation %d", processing, pending.Id)
	}

	all, err := donationLogic.ListBankSlipDonations("")
	if err != nil {
		t.Fatalf("ListBankSlipDonations(all) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("bank slip list length = %d, want 2", len(all))
	}

	if _, err := donationLogic.ListBankSlipDonations("paid"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("invalid status error = %v, want Validation", err)
	}
}
