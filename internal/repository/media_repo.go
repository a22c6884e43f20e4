package repository

import (
	"context"
	"time"

	"GBPSync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MediaRepository 媒体仓储，冲突键 external_media_id
type MediaRepository interface {
	UpsertMedia(ctx context.Context, rows []*model.MediaItem) (int, error)
}

type mediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) UpsertMedia(ctx context.Context, rows []*model.MediaItem) (int, error) {
	rows = dedupBy(rows, func(m *model.MediaItem) string { return m.ExternalMediaID })
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
		Columns: []clause.Column{{Name: "external_media_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"location_id", "media_type", "category", "url", "thumbnail_url", "external_created_at", "metadata", "updated_at",
		}),
	}).CreateInBatches(rows, BatchSize).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
