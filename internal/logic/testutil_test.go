package logic

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/blues/dps/internal/database"
	"github.com/blues/dps/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 创建测试数据库，结构与生产迁移保持一致
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// seedEvent 插入一个筹款活动
func seedEvent(t *testing.T, db *gorm.DB, goal float64) *model.EventModel {
	t.Helper()

	event := model.EventModel{
		Title:       "Flood Relief",
		Category:    "Disaster Relief",
		Type:        model.EventTypeFundraising,
		FundingGoal: goal,
		EventDate:   time.Now().AddDate(0, 1, 0),
		Location:    "Colombo",
		OrganizerId: 1,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return &event
}

// reloadEvent 重新读取活动
func reloadEvent(t *testing.T, db *gorm.DB, id int64) *model.EventModel {
	t.Helper()

	var event model.EventModel
	if err := db.First(&event, id).Error; err != nil {
		t.Fatalf("failed to reload event %d: %v", id, err)
	}
	return &event
}

// countDonations 统计捐赠记录数
func countDonations(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&model.DonationModel{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count donations: %v", err)
	}
	return count
}
