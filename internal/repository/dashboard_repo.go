package repository

import (
	"context"
	"time"

	"GBPSync/internal/model"

	"gorm.io/gorm"
)

// LocationReviewStat 单门店评论聚合
type LocationReviewStat struct {
	LocationID string  `gorm:"column:location_id"`
	Total      int     `gorm:"column:total"`
	AvgRating  float64 `gorm:"column:avg_rating"`
	Pending    int     `gorm:"column:pending"`
	Replied    int     `gorm:"column:replied"`
}

// DashboardRepository 概览页读路径
type DashboardRepository interface {
	ListLocations(ctx context.Context, accountID string) ([]*model.Location, error)
	// ReviewStats 只统计未归档门店的评论，from/to 为 nil 时不限时间
	ReviewStats(ctx context.Context, accountID string, from, to *time.Time) ([]LocationReviewStat, error)
	CountUnansweredQuestions(ctx context.Context, locationIDs []string) (int64, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) ListLocations(ctx context.Context, accountID string) ([]*model.Location, error) {
	var list []*model.Location
	if err := r.db.WithContext(ctx).Where("account_id = ? AND is_archived = ?", accountID, false).
		Order("location_name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *dashboardRepository) ReviewStats(ctx context.Context, accountID string, from, to *time.Time) ([]LocationReviewStat, error) {
	live := r.db.Model(&model.Location{}).Select("id").Where("account_id = ? AND is_archived = ?", accountID, false)
	db := r.db.WithContext(ctx).Model(&model.Review{}).
		Select(`location_id,
			COUNT(*) AS total,
			COALESCE(AVG(rating), 0) AS avg_rating,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN has_reply THEN 1 ELSE 0 END) AS replied`, model.ReviewStatusPending).
		Where("account_id = ?", accountID).
		Where("location_id IN (?)", live)
	if from != nil {
		db = db.Where("review_date >= ?", *from)
	}
	if to != nil {
		db = db.Where("review_date < ?", *to)
	}
	var stats []LocationReviewStat
	if err := db.Group("location_id").Scan(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *dashboardRepository) CountUnansweredQuestions(ctx context.Context, locationIDs []string) (int64, error) {
	if len(locationIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Question{}).
		Where("location_id IN ? AND answer_status = ?", locationIDs, "pending").
		Count(&n).Error
	return n, err
}
