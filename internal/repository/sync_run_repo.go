package repository

import (
	"context"

	"GBPSync/internal/model"

	"gorm.io/gorm"
)

// SyncRunRepository 同步执行记录
type SyncRunRepository interface {
	Create(ctx context.Context, run *model.SyncRun) error
	Finish(ctx context.Context, run *model.SyncRun) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.SyncRun, error)
}

type syncRunRepository struct {
	db *gorm.DB
}

func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepository{db: db}
}

func (r *syncRunRepository) Create(ctx context.Context, run *model.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *syncRunRepository) Finish(ctx context.Context, run *model.SyncRun) error {
	return r.db.WithContext(ctx).Model(&model.SyncRun{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"status":        run.Status,
		"counts":        run.Counts,
		"error_code":    run.ErrorCode,
		"error_message": run.ErrorMessage,
		"duration_ms":   run.DurationMs,
		"finished_at":   run.FinishedAt,
	}).Error
}

func (r *syncRunRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []*model.SyncRun
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).
		Order("started_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
