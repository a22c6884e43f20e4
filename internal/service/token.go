package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"GBPSync/internal/config"
	"GBPSync/internal/metrics"
	"GBPSync/internal/model"
	"GBPSync/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
)

// TokenExpiryBuffer 剩余有效期不足该值时主动刷新
const TokenExpiryBuffer = 10 * time.Minute

const (
	refreshLockTTL  = 30 * time.Second
	refreshLockWait = 10 * time.Second
	refreshLockPoll = 250 * time.Millisecond
	refreshTimeout  = 30 * time.Second
	defaultLifetime = time.Hour
)

// RefreshLocker 跨进程的单账号刷新锁（Redis 实现），未配置时只做进程内去重
type RefreshLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// TokenService 为每个外部账号提供有效的 access token，刷新后落库
type TokenService struct {
	accounts   repository.AccountRepository
	oauth      *oauth2.Config
	httpClient *http.Client
	locker     RefreshLocker
	group      singleflight.Group
	logger     *logrus.Logger
	now        func() time.Time
}

func NewTokenService(accounts repository.AccountRepository, cfg *config.GoogleConfig, httpClient *http.Client, locker RefreshLocker, logger *logrus.Logger) *TokenService {
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &TokenService{
		accounts: accounts,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
		},
		httpClient: httpClient,
		locker:     locker,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock 替换时钟（测试）
func (s *TokenService) SetClock(now func() time.Time) { s.now = now }

func (s *TokenService) fresh(a *model.Account) bool {
	return a.AccessToken != "" && a.TokenExpiresAt != nil && a.TokenExpiresAt.After(s.now().Add(TokenExpiryBuffer))
}

// GetValidAccessToken 缓存命中时不访问网络也不写库；否则用 refresh token 换新并只写一次
func (s *TokenService) GetValidAccessToken(ctx context.Context, accountID string) (string, error) {
	acc, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if s.fresh(acc) {
		return acc.AccessToken, nil
	}

	// 同一进程内同账号的并发刷新合并为一次；刷新不跟随任一调用方的取消
	ch := s.group.DoChan(accountID, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refreshLocked(rctx, accountID)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *TokenService) loadAccount(ctx context.Context, accountID string) (*model.Account, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newSyncError(CodeAccountNotFound, "账号不存在", nil)
		}
		return nil, fmt.Errorf("查询账号失败: %w", err)
	}
	return acc, nil
}

func (s *TokenService) refreshLocked(ctx context.Context, accountID string) (string, error) {
	if s.locker != nil {
		unlock, err := s.waitForLock(ctx, accountID)
		if err != nil {
			s.logger.WithError(err).WithField("account_id", accountID).Warn("获取刷新锁失败，直接刷新")
		}
		if unlock != nil {
			defer unlock()
		}
	}

	// 拿到锁后重读一次，其它进程可能已经刷新过
	acc, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if s.fresh(acc) {
		return acc.AccessToken, nil
	}
	return s.refresh(ctx, acc)
}

// waitForLock 抢不到锁时轮询账号，令牌被别人刷新好就提前返回
func (s *TokenService) waitForLock(ctx context.Context, accountID string) (func(), error) {
	key := "gmbsync:token_refresh:" + accountID
	deadline := s.now().Add(refreshLockWait)
	for {
		unlock, ok, err := s.locker.TryLock(ctx, key, refreshLockTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}
		if acc, err := s.accounts.GetByID(ctx, accountID); err == nil && s.fresh(acc) {
			return nil, nil
		}
		if s.now().After(deadline) {
			return nil, fmt.Errorf("等待刷新锁超时: %s", accountID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(refreshLockPoll):
		}
	}
}

func (s *TokenService) refresh(ctx context.Context, acc *model.Account) (string, error) {
	log := s.logger.WithField("account_id", acc.ID)
	if acc.RefreshToken == "" {
		metrics.IncTokenRefresh("missing_refresh_token")
		return "", newSyncError(CodeMissingRefreshToken, "未保存 refresh token，需要重新授权", nil)
	}

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	tok, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: acc.RefreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			metrics.IncTokenRefresh("invalid_grant")
			log.WithField("description", re.ErrorDescription).Warn("refresh token 已失效")
			return "", newSyncError(CodeInvalidGrant, "refresh token 已被撤销或过期，需要重新授权", err)
		}
		metrics.IncTokenRefresh("error")
		return "", newSyncError(CodeTokenRefreshFailed, "刷新 access token 失败", err)
	}

	now := s.now()
	var expiresAt time.Time
	switch {
	case tok.ExpiresIn > 0:
		expiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	case !tok.Expiry.IsZero():
		expiresAt = tok.Expiry
	default:
		expiresAt = now.Add(defaultLifetime)
	}

	// 只在平台轮换了 refresh token 时写回
	var rotated *string
	if tok.RefreshToken != "" && tok.RefreshToken != acc.RefreshToken {
		rt := tok.RefreshToken
		rotated = &rt
	}
	if err := s.accounts.UpdateTokens(ctx, acc.ID, tok.AccessToken, expiresAt, rotated); err != nil {
		metrics.IncTokenRefresh("persist_error")
		return "", fmt.Errorf("保存新令牌失败: %w", err)
	}

	metrics.IncTokenRefresh("ok")
	log.WithFields(logrus.Fields{
		"expires_at": expiresAt,
		"rotated":    rotated != nil,
	}).Info("access token 已刷新")
	return tok.AccessToken, nil
}
