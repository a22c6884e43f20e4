package repository

import (
	"context"
	"time"

	"GBPSync/internal/model"

	"gorm.io/gorm"
)

// AccountRepository 外部账号仓储
type AccountRepository interface {
	Create(ctx context.Context, a *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	ListActive(ctx context.Context, provider model.Provider) ([]*model.Account, error)
	// UpdateTokens 单次写入 access token、过期时间，refreshToken 非 nil 时一并更新
	UpdateTokens(ctx context.Context, id, accessToken string, expiresAt time.Time, refreshToken *string) error
	UpdateAccountName(ctx context.Context, id, accountName string) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
	Deactivate(ctx context.Context, id string) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *accountRepository) ListActive(ctx context.Context, provider model.Provider) ([]*model.Account, error) {
	var list []*model.Account
	db := r.db.WithContext(ctx).Where("is_active = ?", true)
	if provider != "" {
		db = db.Where("provider = ?", provider)
	}
	if err := db.Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *accountRepository) UpdateTokens(ctx context.Context, id, accessToken string, expiresAt time.Time, refreshToken *string) error {
	updates := map[string]interface{}{
		"access_token":     accessToken,
		"token_expires_at": expiresAt,
		"updated_at":       time.Now(),
	}
	if refreshToken != nil {
		updates["refresh_token"] = *refreshToken
	}
	return r.update(ctx, id, updates)
}

func (r *accountRepository) UpdateAccountName(ctx context.Context, id, accountName string) error {
	return r.update(ctx, id, map[string]interface{}{"account_name": accountName, "updated_at": time.Now()})
}

func (r *accountRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{"last_sync_at": at, "updated_at": time.Now()})
}

func (r *accountRepository) Deactivate(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]interface{}{"is_active": false, "updated_at": time.Now()})
}

func (r *accountRepository) update(ctx context.Context, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
