package logic

import (
	"sort"
	"time"

	"github.com/blues/dps/internal/apperr"
	"github.com/blues/dps/internal/model"
	"gorm.io/gorm"
)

// ProgressLogic 捐赠进度统计，纯读侧，直接以账本为数据源
type ProgressLogic struct {
	db *gorm.DB
}

// NewProgressLogic 创建捐赠进度统计
func NewProgressLogic(db *gorm.DB) *ProgressLogic {
	return &ProgressLogic{db: db}
}

// MonthlyBucket 单月捐赠汇总，金额为主货币单位
type MonthlyBucket struct {
	Month         string  `json:"month"` // YYYY-MM
	CardTotal     float64 `json:"card_total"`
	BankSlipTotal float64 `json:"bank_slip_total"`
	CombinedTotal float64 `json:"combined_total"`
}

// EventProgress 单个活动的捐赠进度
type EventProgress struct {
	EventId       int64           `json:"event_id"`
	Title         string          `json:"title"`
	StartMonth    string          `json:"start_month"` // 活动创建月份的可读标签
	Monthly       []MonthlyBucket `json:"monthly"`
	TotalCard     float64         `json:"total_card"`
	TotalBankSlip float64         `json:"total_bank_slip"`
	GrandTotal    float64         `json:"grand_total"`
}

// OrganizerProgress 主办方捐赠进度报告
type OrganizerProgress struct {
	OrganizerId int64           `json:"organizer_id"`
	Events      []EventProgress `json:"events"`
}

// OrganizerDonationProgress 生成主办方名下所有筹款活动的捐赠进度报告。
// 成功捐赠按 created_at 的自然月分桶，无捐赠的月份不补零，月份升序。
func (p *ProgressLogic) OrganizerDonationProgress(organizerId int64) (*OrganizerProgress, error) {
	var events []model.EventModel
	err := p.db.Where("organizer_id = ? AND type IN ?",
		organizerId, []model.EventType{model.EventTypeFundraising, model.EventTypeMixed}).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "查询主办方活动失败", err)
	}
	if len(events) == 0 {
		return nil, apperr.New(apperr.NotFound, "主办方没有筹款活动")
	}

	report := &OrganizerProgress{OrganizerId: organizerId}
	for _, event := range events {
		progress, err := p.eventProgress(&event)
		if err != nil {
			return nil, err
		}
		report.Events = append(report.Events, *progress)
	}

	return report, nil
}

// eventProgress 汇总单个活动的成功捐赠
func (p *ProgressLogic) eventProgress(event *model.EventModel) (*EventProgress, error) {
	var donations []model.DonationModel
	err := p.db.Where("event_id = ? AND status = ?", event.Id, model.DonationStatusSucceeded).
		Find(&donations).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "查询捐赠记录失败", err)
	}

	buckets := make(map[string]*MonthlyBucket)
	progress := &EventProgress{
		EventId:    event.Id,
		Title:      event.Title,
		StartMonth: event.CreatedAt.Format("January 2006"),
	}

	for _, donation := range donations {
		month := donation.CreatedAt.Format("2006-01")
		bucket, ok := buckets[month]
		if !ok {
			bucket = &MonthlyBucket{Month: month}
			buckets[month] = bucket
		}

		amount := donation.AmountMajor()
		switch donation.PaymentMethod {
		case model.PaymentMethodCard:
			bucket.CardTotal += amount
			progress.TotalCard += amount
		case model.PaymentMethodBankSlip:
			bucket.BankSlipTotal += amount
			progress.TotalBankSlip += amount
		}
		bucket.CombinedTotal += amount
		progress.GrandTotal += amount
	}

	months := make([]string, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	sort.Strings(months)

	progress.Monthly = make([]MonthlyBucket, 0, len(months))
	for _, month := range months {
		progress.Monthly = append(progress.Monthly, *buckets[month])
	}

	return progress, nil
}

// UserSummary 用户捐赠汇总
type UserSummary struct {
	TotalMinor int64   `json:"total_minor"`
	TotalMajor float64 `json:"total_major"`
	Count      int64   `json:"count"`
}

// UserDonationSummary 汇总用户的成功捐赠。没有捐赠时返回全零而不是错误。
func (p *ProgressLogic) UserDonationSummary(userId int64) (*UserSummary, error) {
	var row struct {
		TotalMinor int64
		Count      int64
	}
	err := p.db.Model(&model.DonationModel{}).
		Where("user_id = ? AND status = ?", userId, model.DonationStatusSucceeded).
		Select("COALESCE(SUM(amount_minor), 0) AS total_minor, COUNT(*) AS count").
		Scan(&row).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "汇总用户捐赠失败", err)
	}

	return &UserSummary{
		TotalMinor: row.TotalMinor,
		TotalMajor: float64(row.TotalMinor) / 100,
		Count:      row.Count,
	}, nil
}

// HistoryEntry 用户捐赠历史条目，附带活动快照
type HistoryEntry struct {
	EventId          int64     `json:"event_id"`
	EventTitle       string    `json:"event_title"`
	EventCategory    string    `json:"event_category"`
	GreetingSentence string    `json:"greeting_sentence"`
	DonatedDate      time.Time `json:"donated_date"`
	AmountMinor      int64     `json:"amount_minor"`
	AmountMajor      float64   `json:"amount_major"`
	PaymentMethod    string    `json:"payment_method"`
}

// UserDonationHistory 用户成功捐赠历史，按时间倒序
func (p *ProgressLogic) UserDonationHistory(userId int64) ([]HistoryEntry, error) {
	var donations []model.DonationModel
	err := p.db.Where("user_id = ? AND status = ?", userId, model.DonationStatusSucceeded).
		Order("created_at DESC").
		Find(&donations).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "查询捐赠历史失败", err)
	}

	eventIds := make([]int64, 0, len(donations))
	seen := make(map[int64]bool)
	for _, donation := range donations {
		if !seen[donation.EventId] {
			seen[donation.EventId] = true
			eventIds = append(eventIds, donation.EventId)
		}
	}

	eventsById := make(map[int64]model.EventModel)
	if len(eventIds) > 0 {
		var events []model.EventModel
		if err := p.db.Where("id IN ?", eventIds).Find(&events).Error; err != nil {
			return nil, apperr.Wrap(apperr.Internal, "查询活动失败", err)
		}
		for _, event := range events {
			eventsById[event.Id] = event
		}
	}

	history := make([]HistoryEntry, 0, len(donations))
	for _, donation := range donations {
		entry := HistoryEntry{
			EventId:       donation.EventId,
			EventTitle:    "Unknown Event",
			EventCategory: "Unknown",
			DonatedDate:   donation.CreatedAt,
			AmountMinor:   donation.AmountMinor,
			AmountMajor:   donation.AmountMajor(),
			PaymentMethod: string(donation.PaymentMethod),
		}
		if event, ok := eventsById[donation.EventId]; ok {
			entry.EventTitle = event.Title
			entry.EventCategory = event.Category
			entry.GreetingSentence = event.GreetingSentence
		}
		history = append(history, entry)
	}

	return history, nil
}
