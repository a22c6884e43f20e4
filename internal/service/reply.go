package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"GBPSync/internal/interfaces"
	"GBPSync/internal/model"
	"GBPSync/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultReplyInterval 批量回复之间的间隔
const DefaultReplyInterval = 500 * time.Millisecond

type ReplyItem struct {
	ReviewID string `json:"review_id"`
	Comment  string `json:"comment"`
}

type ReplyOutcome struct {
	ReviewID string `json:"review_id"`
	Success  bool   `json:"success"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ReplyService 手动/批量回复评论，与同步互不依赖
type ReplyService struct {
	accounts repository.AccountRepository
	reviews  repository.ReviewRepository
	clients  map[model.Provider]interfaces.GMBClient
	tokens   interfaces.TokenProvider
	interval time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

func NewReplyService(repos Repositories, clients map[model.Provider]interfaces.GMBClient, tokens interfaces.TokenProvider, interval time.Duration, logger *logrus.Logger) *ReplyService {
	if interval <= 0 {
		interval = DefaultReplyInterval
	}
	return &ReplyService{
		accounts: repos.Accounts,
		reviews:  repos.Reviews,
		clients:  clients,
		tokens:   tokens,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Reply 发布单条回复并更新本地回复字段
func (s *ReplyService) Reply(ctx context.Context, userID, accountID, reviewID, comment string) (*model.Review, error) {
	acc, client, err := s.resolve(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	return s.reply(ctx, acc, client, reviewID, comment)
}

// BulkReply 按固定间隔逐条回复，返回每条的结果
func (s *ReplyService) BulkReply(ctx context.Context, userID, accountID string, items []ReplyItem) ([]ReplyOutcome, error) {
	acc, client, err := s.resolve(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(s.interval), 1)
	outcomes := make([]ReplyOutcome, 0, len(items))
	for _, item := range items {
		if err := limiter.Wait(ctx); err != nil {
			return outcomes, err
		}
		out := ReplyOutcome{ReviewID: item.ReviewID, Success: true}
		if _, err := s.reply(ctx, acc, client, item.ReviewID, item.Comment); err != nil {
			out.Success = false
			out.Error = err.Error()
			if se, ok := AsSyncError(err); ok {
				out.Code = se.Code
			}
			s.logger.WithError(err).WithFields(logrus.Fields{
				"account_id": acc.ID,
				"review_id":  item.ReviewID,
			}).Warn("批量回复单条失败")
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (s *ReplyService) resolve(ctx context.Context, userID, accountID string) (*model.Account, interfaces.GMBClient, error) {
	acc, err := loadOwnedAccount(ctx, s.accounts, userID, accountID)
	if err != nil {
		return nil, nil, err
	}
	if !acc.IsActive {
		return nil, nil, newSyncError(CodeAccountInactive, "账号已停用", nil)
	}
	client, ok := s.clients[acc.Provider]
	if !ok {
		return nil, nil, newSyncError(CodeUnsupportedProvider, fmt.Sprintf("不支持的平台: %s", acc.Provider), nil)
	}
	return acc, client, nil
}

func (s *ReplyService) reply(ctx context.Context, acc *model.Account, client interfaces.GMBClient, reviewID, comment string) (*model.Review, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, newSyncError(CodeInvalidRequest, "回复内容不能为空", nil)
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newSyncError(CodeReviewNotFound, "评论不存在", nil)
		}
		return nil, fmt.Errorf("查询评论失败: %w", err)
	}
	if review.AccountID != acc.ID {
		return nil, newSyncError(CodeReviewNotFound, "评论不属于该账号", nil)
	}
	if review.ReviewName == "" {
		return nil, newSyncError(CodeInvalidRequest, "评论缺少资源名，请先同步", nil)
	}

	token, err := s.tokens.GetValidAccessToken(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if _, err := client.UpdateReviewReply(ctx, token, review.ReviewName, comment); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.reviews.UpdateReply(ctx, review.ID, comment, now); err != nil {
		return nil, fmt.Errorf("更新回复字段失败: %w", err)
	}
	review.ReplyText = &comment
	review.ReplyDate = &now
	review.HasReply = true
	if review.Status != model.ReviewStatusFlagged && review.Status != model.ReviewStatusArchived {
		review.Status = model.ReviewStatusReplied
	}
	return review, nil
}
