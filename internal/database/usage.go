package database

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 调用结果
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// UsageRecord 一次功能调用的台账记录
type UsageRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RequestID  string    `gorm:"size:64;index" json:"request_id"`
	Feature    string    `gorm:"size:32;index" json:"feature"`
	Platform   string    `gorm:"size:16" json:"platform"`
	Outcome    string    `gorm:"size:16" json:"outcome"`
	ErrorCode  string    `gorm:"size:32" json:"error_code,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 表名
func (UsageRecord) TableName() string { return "usage_records" }

// FeatureUsage 按功能与结果聚合的调用次数
type FeatureUsage struct {
	Feature string `json:"feature"`
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

// UsageRecorder 用量台账
type UsageRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUsageRecorder 创建台账
func NewUsageRecorder(db *gorm.DB, logger *zap.Logger) *UsageRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageRecorder{db: db, logger: logger.With(zap.String("component", "usage_ledger"))}
}

// Migrate 建表
func (r *UsageRecorder) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&UsageRecord{})
}

// Record 写入一行；失败只记日志
func (r *UsageRecorder) Record(ctx context.Context, rec UsageRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	// 请求取消后仍要落账
	ctx = context.WithoutCancel(ctx)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		r.logger.Warn("failed to record usage",
			zap.String("request_id", rec.RequestID),
			zap.String("feature", rec.Feature),
			zap.Error(err))
	}
}

// Summary 统计 since 之后各功能的调用次数
func (r *UsageRecorder) Summary(ctx context.Context, since time.Time) ([]FeatureUsage, error) {
	var out []FeatureUsage
	err := r.db.WithContext(ctx).
		Model(&UsageRecord{}).
		Select("feature, outcome, count(*) as count").
		Where("created_at >= ?", since).
		Group("feature, outcome").
		Order("feature, outcome").
		Scan(&out).Error
	return out, err
}
