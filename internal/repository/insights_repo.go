package repository

import (
	"context"
	"time"

	"GBPSync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsightsRepository 每日指标与月度关键词
type InsightsRepository interface {
	UpsertPerformanceMetrics(ctx context.Context, rows []*model.PerformanceMetric) (int, error)
	UpsertSearchKeywords(ctx context.Context, rows []*model.SearchKeyword) (int, error)
}

type insightsRepository struct {
	db *gorm.DB
}

func NewInsightsRepository(db *gorm.DB) InsightsRepository {
	return &insightsRepository{db: db}
}

func metricKey(m *model.PerformanceMetric) string {
	return m.LocationID + "|" + m.MetricDate.Format("2006-01-02") + "|" + m.MetricType
}

func keywordKey(k *model.SearchKeyword) string {
	return k.LocationID + "|" + k.SearchKeyword + "|" + k.MonthYear.Format("2006-01")
}

// UpsertPerformanceMetrics 冲突键 (location_id, metric_date, metric_type)，重复同步覆盖而非追加
func (r *insightsRepository) UpsertPerformanceMetrics(ctx context.Context, rows []*model.PerformanceMetric) (int, error) {
	rows = dedupBy(rows, metricKey)
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now()
	for _, m := range rows {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.UpdatedAt = now
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "location_id"}, {Name: "metric_date"}, {Name: "metric_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"metric_value", "sub_entity_type", "updated_at"}),
	}).CreateInBatches(rows, BatchSize).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UpsertSearchKeywords 冲突键 (location_id, search_keyword, month_year)
func (r *insightsRepository) UpsertSearchKeywords(ctx context.Context, rows []*model.SearchKeyword) (int, error) {
	rows = dedupBy(rows, keywordKey)
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now()
	for _, k := range rows {
		if k.ID == "" {
			k.ID = uuid.NewString()
		}
		k.UpdatedAt = now
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "location_id"}, {Name: "search_keyword"}, {Name: "month_year"}},
		DoUpdates: clause.AssignmentColumns([]string{"impressions_count", "is_thresholded", "updated_at"}),
	}).CreateInBatches(rows, BatchSize).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
