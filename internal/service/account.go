package service

import (
	"context"
	"errors"
	"fmt"

	"GBPSync/internal/model"
	"GBPSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// loadOwnedAccount 账号必须存在且属于 userID
func loadOwnedAccount(ctx context.Context, accounts repository.AccountRepository, userID, accountID string) (*model.Account, error) {
	acc, err := accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newSyncError(CodeAccountNotFound, "账号不存在", nil)
		}
		return nil, fmt.Errorf("查询账号失败: %w", err)
	}
	if acc.UserID != userID {
		return nil, newSyncError(CodeForbidden, "无权访问该账号", nil)
	}
	return acc, nil
}

// AccountService 账号的用户侧操作
type AccountService struct {
	accounts repository.AccountRepository
	runs     repository.SyncRunRepository
	syncer   AccountSyncer
	logger   *logrus.Logger
}

func NewAccountService(repos Repositories, syncer AccountSyncer, logger *logrus.Logger) *AccountService {
	return &AccountService{
		accounts: repos.Accounts,
		runs:     repos.SyncRuns,
		syncer:   syncer,
		logger:   logger,
	}
}

// SyncForUser 校验归属后触发同步
func (s *AccountService) SyncForUser(ctx context.Context, userID, accountID string, syncType model.SyncType) (*SyncResult, error) {
	if _, err := loadOwnedAccount(ctx, s.accounts, userID, accountID); err != nil {
		return nil, err
	}
	return s.syncer.SyncAccount(ctx, accountID, syncType)
}

// Disconnect 停用账号，不删除数据
func (s *AccountService) Disconnect(ctx context.Context, userID, accountID string) error {
	if _, err := loadOwnedAccount(ctx, s.accounts, userID, accountID); err != nil {
		return err
	}
	if err := s.accounts.Deactivate(ctx, accountID); err != nil {
		return fmt.Errorf("停用账号失败: %w", err)
	}
	s.logger.WithField("account_id", accountID).Info("账号已断开")
	return nil
}

func (s *AccountService) ListSyncRuns(ctx context.Context, userID, accountID string, limit int) ([]*model.SyncRun, error) {
	if _, err := loadOwnedAccount(ctx, s.accounts, userID, accountID); err != nil {
		return nil, err
	}
	return s.runs.ListByAccount(ctx, accountID, limit)
}
