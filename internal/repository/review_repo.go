package repository

import (
	"context"
	"time"

	"GBPSync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository 评论仓储，冲突键 external_review_id
type ReviewRepository interface {
	// UpsertReviews 返回去重后写入的行数，以及本次新插入（此前不存在）的评论
	UpsertReviews(ctx context.Context, rows []*model.Review) (written int, newRows []*model.Review, err error)
	GetByID(ctx context.Context, id string) (*model.Review, error)
	UpdateReply(ctx context.Context, id, replyText string, replyDate time.Time) error
}

var reviewUpdateColumns = []string{
	"location_id", "account_id", "review_name", "reviewer_name", "rating", "review_text",
	"review_date", "reply_text", "reply_date", "has_reply", "sentiment", "updated_at",
}

// 本地标记的 flagged/archived 不被平台状态覆盖
const reviewStatusMerge = "CASE WHEN gmb_reviews.status IN ('flagged','archived') THEN gmb_reviews.status ELSE excluded.status END"

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) UpsertReviews(ctx context.Context, rows []*model.Review) (int, []*model.Review, error) {
	rows = dedupBy(rows, func(rv *model.Review) string { return rv.ExternalReviewID })
	if len(rows) == 0 {
		return 0, nil, nil
	}

	existing := make(map[string]struct{}, len(rows))
	for _, part := range chunk(rows, BatchSize) {
		ids := make([]string, 0, len(part))
		for _, rv := range part {
			ids = append(ids, rv.ExternalReviewID)
		}
		var found []string
		if err := r.db.WithContext(ctx).Model(&model.Review{}).
			Where("external_review_id IN ?", ids).
			Pluck("external_review_id", &found).Error; err != nil {
			return 0, nil, err
		}
		for _, id := range found {
			existing[id] = struct{}{}
		}
	}

	now := time.Now()
	var created []*model.Review
	for _, rv := range rows {
		if rv.ID == "" {
			rv.ID = uuid.NewString()
		}
		rv.UpdatedAt = now
		if _, ok := existing[rv.ExternalReviewID]; !ok {
			created = append(created, rv)
		}
	}

	set := clause.AssignmentColumns(reviewUpdateColumns)
	set = append(set, clause.Assignment{Column: clause.Column{Name: "status"}, Value: gorm.Expr(reviewStatusMerge)})
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_review_id"}},
		DoUpdates: set,
	}).CreateInBatches(rows, BatchSize).Error
	if err != nil {
		return 0, nil, err
	}
	return len(rows), created, nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*model.Review, error) {
	var rv model.Review
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rv).Error; err != nil {
		return nil, notFound(err)
	}
	return &rv, nil
}

func (r *reviewRepository) UpdateReply(ctx context.Context, id, replyText string, replyDate time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Review{}).Where("id = ?", id).Updates(map[string]interface{}{
		"reply_text": replyText,
		"reply_date": replyDate,
		"has_reply":  true,
		"status":     gorm.Expr("CASE WHEN status IN ('flagged','archived') THEN status ELSE ? END", model.ReviewStatusReplied),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
