package repository

import (
	"context"
	"time"

	"GBPSync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocationRepository 门店仓储，冲突键 (account_id, external_location_id)
type LocationRepository interface {
	UpsertLocations(ctx context.Context, rows []*model.Location) (int, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]*model.Location, error)
	// ArchiveMissing 归档账号下不在 keep 中的门店，keep 为空时不做任何事
	ArchiveMissing(ctx context.Context, accountID string, keepExternalIDs []string) (int64, error)
	UpdateReviewSummary(ctx context.Context, locationID string, rating *float64, reviewCount int) error
}

var locationUpdateColumns = []string{
	"location_name", "address", "phone", "category", "website", "metadata",
	"is_active", "is_archived", "last_synced_at", "updated_at",
}

type locationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func locationKey(l *model.Location) string { return l.AccountID + "|" + l.ExternalLocationID }

func (r *locationRepository) UpsertLocations(ctx context.Context, rows []*model.Location) (int, error) {
	rows = dedupBy(rows, locationKey)
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now()
	for _, l := range rows {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		l.UpdatedAt = now
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "external_location_id"}},
		DoUpdates: clause.AssignmentColumns(locationUpdateColumns),
	}).CreateInBatches(rows, BatchSize).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *locationRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*model.Location, error) {
	var list []*model.Location
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND is_active = ? AND is_archived = ?", accountID, true, false).
		Order("location_name ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *locationRepository) ArchiveMissing(ctx context.Context, accountID string, keepExternalIDs []string) (int64, error) {
	if len(keepExternalIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Location{}).
		Where("account_id = ? AND is_archived = ? AND external_location_id NOT IN ?", accountID, false, keepExternalIDs).
		Updates(map[string]interface{}{"is_archived": true, "is_active": false, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (r *locationRepository) UpdateReviewSummary(ctx context.Context, locationID string, rating *float64, reviewCount int) error {
	updates := map[string]interface{}{"review_count": reviewCount, "updated_at": time.Now()}
	if rating != nil {
		updates["rating"] = *rating
	}
	return r.db.WithContext(ctx).Model(&model.Location{}).Where("id = ?", locationID).Updates(updates).Error
}
