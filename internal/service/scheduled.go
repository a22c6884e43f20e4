package service

import (
	"context"
	"time"

	"GBPSync/internal/model"
	"GBPSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// AccountSyncer 单账号同步
type AccountSyncer interface {
	SyncAccount(ctx context.Context, accountID string, syncType model.SyncType) (*SyncResult, error)
}

// RunSummary 一轮定时同步的结果
type RunSummary struct {
	SyncType  model.SyncType    `json:"sync_type"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"` // account_id → 错误码
	TookMs    int64             `json:"took_ms"`
}

// ScheduledSyncService 定时对所有活跃 Google 账号执行同步；单账号失败不阻塞整轮
type ScheduledSyncService struct {
	accounts repository.AccountRepository
	syncer   AccountSyncer
	timeout  time.Duration
	logger   *logrus.Logger
}

func NewScheduledSyncService(accounts repository.AccountRepository, syncer AccountSyncer, perAccountTimeout time.Duration, logger *logrus.Logger) *ScheduledSyncService {
	return &ScheduledSyncService{
		accounts: accounts,
		syncer:   syncer,
		timeout:  perAccountTimeout,
		logger:   logger,
	}
}

func (s *ScheduledSyncService) Run(ctx context.Context, syncType model.SyncType) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{SyncType: syncType, Errors: map[string]string{}}

	accounts, err := s.accounts.ListActive(ctx, model.ProviderGoogle)
	if err != nil {
		return summary, err
	}
	summary.Total = len(accounts)
	if len(accounts) == 0 {
		s.logger.Debug("ScheduledSync: 无活跃账号")
		return summary, nil
	}

	for _, acc := range accounts {
		if ctx.Err() != nil {
			break
		}
		if err := s.syncOne(ctx, acc.ID, syncType); err != nil {
			summary.Failed++
			code := "INTERNAL"
			if se, ok := AsSyncError(err); ok {
				code = se.Code
			}
			summary.Errors[acc.ID] = code
			s.logger.WithError(err).WithFields(logrus.Fields{
				"account_id": acc.ID,
				"sync_type":  syncType,
			}).Warn("ScheduledSync: 账号同步失败，跳过")
			continue
		}
		summary.Succeeded++
	}

	summary.TookMs = time.Since(start).Milliseconds()
	s.logger.WithFields(logrus.Fields{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"took_ms":   summary.TookMs,
	}).Info("ScheduledSync: 本轮完成")
	return summary, ctx.Err()
}

func (s *ScheduledSyncService) syncOne(ctx context.Context, accountID string, syncType model.SyncType) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	_, err := s.syncer.SyncAccount(ctx, accountID, syncType)
	return err
}
