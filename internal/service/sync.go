package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"GBPSync/internal/adapter/google"
	"GBPSync/internal/config"
	"GBPSync/internal/interfaces"
	"GBPSync/internal/metrics"
	"GBPSync/internal/model"
	"GBPSync/internal/normalize"
	"GBPSync/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Counts 各资源本次写入的行数
type Counts struct {
	Locations          int `json:"locations"`
	Reviews            int `json:"reviews"`
	Media              int `json:"media"`
	PerformanceMetrics int `json:"performance_metrics"`
	SearchKeywords     int `json:"search_keywords"`
}

type SyncResult struct {
	AccountID string         `json:"account_id"`
	SyncType  model.SyncType `json:"sync_type"`
	Counts    Counts         `json:"counts"`
	TookMs    int64          `json:"took_ms"`
}

// ReviewHandoff 新评论交给自动回复，不阻塞同步
type ReviewHandoff interface {
	Enqueue(reviewID string) bool
}

type counters struct {
	locations, reviews, media, metrics, keywords atomic.Int64
}

func (c *counters) snapshot() Counts {
	return Counts{
		Locations:          int(c.locations.Load()),
		Reviews:            int(c.reviews.Load()),
		Media:              int(c.media.Load()),
		PerformanceMetrics: int(c.metrics.Load()),
		SearchKeywords:     int(c.keywords.Load()),
	}
}

// syncRun 一次 SyncAccount 的上下文
type syncRun struct {
	account     *model.Account
	accountName string
	token       string
	syncType    model.SyncType
	client      interfaces.GMBClient
	counts      *counters
	log         *logrus.Entry
}

// SyncService 单账号同步编排：resolve → 账号资源名 → token → 门店 → 评论/媒体 → 指标/关键词 → 打时间戳
type SyncService struct {
	repos     Repositories
	clients   map[model.Provider]interfaces.GMBClient
	tokens    interfaces.TokenProvider
	autoReply ReviewHandoff
	cfg       config.SyncConfig
	logger    *logrus.Logger
	now       func() time.Time
}

func NewSyncService(repos Repositories, clients map[model.Provider]interfaces.GMBClient, tokens interfaces.TokenProvider, autoReply ReviewHandoff, cfg config.SyncConfig, logger *logrus.Logger) *SyncService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if cfg.MetricsDays <= 0 {
		cfg.MetricsDays = 30
	}
	if cfg.KeywordMonths <= 0 {
		cfg.KeywordMonths = 3
	}
	return &SyncService{
		repos:     repos,
		clients:   clients,
		tokens:    tokens,
		autoReply: autoReply,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock 替换时钟（测试）
func (s *SyncService) SetClock(now func() time.Time) { s.now = now }

// SyncAccount 账号级问题返回 *SyncError；单门店单资源失败只记日志并计 0
func (s *SyncService) SyncAccount(ctx context.Context, accountID string, syncType model.SyncType) (*SyncResult, error) {
	start := s.now()
	if syncType == "" {
		syncType = model.SyncTypeIncremental
	}
	log := s.logger.WithFields(logrus.Fields{"account_id": accountID, "sync_type": syncType})

	// 1. resolve-account
	acc, err := s.repos.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.ObserveSync(string(syncType), model.SyncRunFailed, s.now().Sub(start))
			return nil, newSyncError(CodeAccountNotFound, "账号不存在", nil)
		}
		return nil, fmt.Errorf("查询账号失败: %w", err)
	}

	run := s.startRun(ctx, acc.ID, syncType, start, log)
	counts := &counters{}
	result, err := s.syncAccount(ctx, acc, syncType, counts, log)
	took := s.now().Sub(start)
	s.finishRun(ctx, run, counts.snapshot(), took, err, log)

	if err != nil {
		metrics.ObserveSync(string(syncType), model.SyncRunFailed, took)
		log.WithError(err).Error("账号同步失败")
		return nil, err
	}
	result.TookMs = took.Milliseconds()
	metrics.ObserveSync(string(syncType), model.SyncRunCompleted, took)
	log.WithFields(logrus.Fields{
		"locations":           result.Counts.Locations,
		"reviews":             result.Counts.Reviews,
		"media":               result.Counts.Media,
		"performance_metrics": result.Counts.PerformanceMetrics,
		"search_keywords":     result.Counts.SearchKeywords,
		"took_ms":             result.TookMs,
	}).Info("账号同步完成")
	return result, nil
}

func (s *SyncService) syncAccount(ctx context.Context, acc *model.Account, syncType model.SyncType, counts *counters, log *logrus.Entry) (*SyncResult, error) {
	if !acc.IsActive {
		return nil, newSyncError(CodeAccountInactive, "账号已停用", nil)
	}
	client, ok := s.clients[acc.Provider]
	if !ok {
		return nil, newSyncError(CodeUnsupportedProvider, fmt.Sprintf("不支持的平台: %s", acc.Provider), nil)
	}

	// 2. ensure-account-resource-name
	accountName, err := s.ensureAccountResourceName(ctx, acc, client)
	if err != nil {
		return nil, err
	}

	// 3. get-token
	token, err := s.tokens.GetValidAccessToken(ctx, acc.ID)
	if err != nil {
		if _, ok := AsSyncError(err); ok {
			return nil, err
		}
		return nil, newSyncError(CodeTokenRefreshFailed, "无法获取 access token", err)
	}

	r := &syncRun{
		account:     acc,
		accountName: accountName,
		token:       token,
		syncType:    syncType,
		client:      client,
		counts:      counts,
		log:         log.WithField("account_name", accountName),
	}

	// 4. sync-locations
	if err := s.syncLocations(ctx, r); err != nil {
		return nil, err
	}

	locations, err := s.repos.Locations.ListActiveByAccount(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("读取门店失败: %w", err)
	}

	// 5. sync-reviews-and-media
	s.forEachLocation(ctx, locations, func(ctx context.Context, loc *model.Location) {
		s.syncReviews(ctx, r, loc)
		s.syncMedia(ctx, r, loc)
	})

	// 6. sync-performance-and-keywords
	now := s.now()
	s.forEachLocation(ctx, locations, func(ctx context.Context, loc *model.Location) {
		s.syncPerformance(ctx, r, loc, now)
		s.syncKeywords(ctx, r, loc, now)
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("同步被中断: %w", err)
	}

	// 7. stamp-last-sync
	if err := s.repos.Accounts.MarkSynced(ctx, acc.ID, s.now()); err != nil {
		log.WithError(err).Warn("更新 last_sync_at 失败")
	}

	c := counts.snapshot()
	metrics.AddRowsSynced("locations", c.Locations)
	metrics.AddRowsSynced("reviews", c.Reviews)
	metrics.AddRowsSynced("media", c.Media)
	metrics.AddRowsSynced("performance_metrics", c.PerformanceMetrics)
	metrics.AddRowsSynced("search_keywords", c.SearchKeywords)
	return &SyncResult{AccountID: acc.ID, SyncType: syncType, Counts: c}, nil
}

// ensureAccountResourceName 返回 accounts/{id}；本地没有时向平台查询并落库
func (s *SyncService) ensureAccountResourceName(ctx context.Context, acc *model.Account, client interfaces.GMBClient) (string, error) {
	if strings.HasPrefix(acc.AccountName, "accounts/") {
		return acc.AccountName, nil
	}

	name := ""
	if strings.HasPrefix(acc.ProviderAccountID, "accounts/") {
		name = acc.ProviderAccountID
	} else {
		token, err := s.tokens.GetValidAccessToken(ctx, acc.ID)
		if err != nil {
			if _, ok := AsSyncError(err); ok {
				return "", err
			}
			return "", newSyncError(CodeTokenRefreshFailed, "无法获取 access token", err)
		}
		page, err := client.ListAccounts(ctx, token, "")
		if err != nil {
			return "", newSyncError(CodeAccountResourceUnresolved, "无法获取商家账号列表", err)
		}
		for _, a := range page.Accounts {
			if strings.HasPrefix(a.Name, "accounts/") {
				name = a.Name
				break
			}
		}
	}
	if name == "" {
		return "", newSyncError(CodeAccountResourceUnresolved, "未找到可用的商家账号", nil)
	}

	if err := s.repos.Accounts.UpdateAccountName(ctx, acc.ID, name); err != nil {
		s.logger.WithError(err).WithField("account_id", acc.ID).Warn("保存账号资源名失败")
	}
	acc.AccountName = name
	return name, nil
}

// forEachLocation 有界并发执行，单门店失败不影响其它门店
func (s *SyncService) forEachLocation(ctx context.Context, locations []*model.Location, fn func(ctx context.Context, loc *model.Location)) {
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, loc := range locations {
		loc := loc
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx, loc)
			return nil
		})
	}
	_ = g.Wait()
}

// paginate incremental 只取第一页；full 跟随 nextPageToken 直到耗尽或达到 MaxPages。
// exhausted 为 true 表示已读到最后一页
func (s *SyncService) paginate(ctx context.Context, syncType model.SyncType, fetch func(pageToken string) (string, error)) (exhausted bool, err error) {
	pageToken := ""
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		next, err := fetch(pageToken)
		if err != nil {
			return false, err
		}
		if next == "" {
			return true, nil
		}
		if syncType != model.SyncTypeFull {
			return false, nil
		}
		if page+1 >= s.cfg.MaxPages {
			s.logger.WithField("max_pages", s.cfg.MaxPages).Warn("达到最大页数，停止翻页")
			return false, nil
		}
		pageToken = next
	}
}

func (s *SyncService) syncLocations(ctx context.Context, r *syncRun) error {
	seen := make([]string, 0)
	now := s.now()
	exhausted, err := s.paginate(ctx, r.syncType, func(pageToken string) (string, error) {
		page, err := r.client.FetchLocations(ctx, r.token, r.accountName, pageToken)
		if err != nil {
			return "", err
		}
		rows := make([]*model.Location, 0, len(page.Locations))
		for _, g := range page.Locations {
			if loc, ok := normalize.Location(r.account.ID, g, now); ok {
				rows = append(rows, loc)
				seen = append(seen, loc.ExternalLocationID)
			}
		}
		n, err := s.repos.Locations.UpsertLocations(ctx, rows)
		if err != nil {
			return "", fmt.Errorf("写入门店失败: %w", err)
		}
		r.counts.locations.Add(int64(n))
		return page.NextPageToken, nil
	})
	if err != nil {
		return newSyncError(CodeLocationsSyncFailed, "门店同步失败", err)
	}

	// 只有 full 同步拿到了完整列表，才能判断哪些门店在上游被删除
	if r.syncType == model.SyncTypeFull && !exhausted {
		r.log.WithField("seen", len(seen)).Warn("门店列表未翻到最后一页，跳过归档")
		return nil
	}
	if r.syncType == model.SyncTypeFull && len(seen) > 0 {
		archived, err := s.repos.Locations.ArchiveMissing(ctx, r.account.ID, seen)
		if err != nil {
			r.log.WithError(err).Warn("归档已删除门店失败")
		} else if archived > 0 {
			r.log.WithField("archived", archived).Info("已归档上游删除的门店")
		}
	}
	return nil
}

func (s *SyncService) locationFailed(r *syncRun, loc *model.Location, resource string, err error) {
	metrics.IncLocationFailure(resource)
	r.log.WithError(err).WithFields(logrus.Fields{
		"location_id": loc.ID,
		"external_id": loc.ExternalLocationID,
		"resource":    resource,
	}).Warn("门店资源同步失败，跳过")
}

func (s *SyncService) syncReviews(ctx context.Context, r *syncRun, loc *model.Location) {
	summarized := false
	_, err := s.paginate(ctx, r.syncType, func(pageToken string) (string, error) {
		page, err := r.client.FetchReviews(ctx, r.token, r.accountName, loc.ExternalLocationID, pageToken)
		if err != nil {
			return "", err
		}
		if !summarized && page.TotalReviewCount > 0 {
			summarized = true
			rating := page.AverageRating
			if err := s.repos.Locations.UpdateReviewSummary(ctx, loc.ID, &rating, page.TotalReviewCount); err != nil {
				r.log.WithError(err).WithField("location_id", loc.ID).Warn("更新门店评分汇总失败")
			}
		}

		rows := normalize.Reviews(r.account.ID, loc.ID, page.Reviews)
		n, created, err := s.repos.Reviews.UpsertReviews(ctx, rows)
		if err != nil {
			return "", fmt.Errorf("写入评论失败: %w", err)
		}
		r.counts.reviews.Add(int64(n))
		s.handoffNewReviews(r, created)
		return page.NextPageToken, nil
	})
	if err != nil {
		s.locationFailed(r, loc, "reviews", err)
	}
}

// handoffNewReviews 新出现且未回复的评论交给自动回复队列
func (s *SyncService) handoffNewReviews(r *syncRun, created []*model.Review) {
	if s.autoReply == nil {
		return
	}
	for _, rv := range created {
		if rv.HasReply {
			continue
		}
		if !s.autoReply.Enqueue(rv.ID) {
			r.log.WithField("review_id", rv.ID).Warn("自动回复队列已满，丢弃")
		}
	}
}

func (s *SyncService) syncMedia(ctx context.Context, r *syncRun, loc *model.Location) {
	_, err := s.paginate(ctx, r.syncType, func(pageToken string) (string, error) {
		page, err := r.client.FetchMedia(ctx, r.token, r.accountName, loc.ExternalLocationID, pageToken)
		if err != nil {
			return "", err
		}
		n, err := s.repos.Media.UpsertMedia(ctx, normalize.MediaItems(loc.ID, page.MediaItems))
		if err != nil {
			return "", fmt.Errorf("写入媒体失败: %w", err)
		}
		r.counts.media.Add(int64(n))
		return page.NextPageToken, nil
	})
	if err != nil {
		s.locationFailed(r, loc, "media", err)
	}
}

// MetricsWindow 每日指标窗口：截至昨天的最近 days 天
func MetricsWindow(now time.Time, days int) (start, end model.Date) {
	end = model.DateOf(now.UTC().AddDate(0, 0, -1))
	start = model.DateOf(now.UTC().AddDate(0, 0, -days))
	return start, end
}

// KeywordMonths 最近 n 个已结束的自然月，按时间升序
func KeywordMonths(now time.Time, n int) []model.Month {
	current := model.MonthOf(now.UTC())
	months := make([]model.Month, 0, n)
	for i := n; i >= 1; i-- {
		months = append(months, current.AddMonths(-i))
	}
	return months
}

func (s *SyncService) syncPerformance(ctx context.Context, r *syncRun, loc *model.Location, now time.Time) {
	start, end := MetricsWindow(now, s.cfg.MetricsDays)
	points, err := r.client.FetchDailyMetrics(ctx, r.token, loc.ExternalLocationID, start, end, google.DailyMetrics)
	if err != nil {
		s.locationFailed(r, loc, "performance_metrics", err)
		return
	}
	n, err := s.repos.Insights.UpsertPerformanceMetrics(ctx, normalize.PerformanceMetrics(loc.ID, points))
	if err != nil {
		s.locationFailed(r, loc, "performance_metrics", err)
		return
	}
	r.counts.metrics.Add(int64(n))
}

// syncKeywords 按月逐个请求，使每行都能归到确定的月份
func (s *SyncService) syncKeywords(ctx context.Context, r *syncRun, loc *model.Location, now time.Time) {
	for _, month := range KeywordMonths(now, s.cfg.KeywordMonths) {
		month := month
		_, err := s.paginate(ctx, r.syncType, func(pageToken string) (string, error) {
			page, err := r.client.FetchSearchKeywords(ctx, r.token, loc.ExternalLocationID, month, month, pageToken)
			if err != nil {
				return "", err
			}
			n, err := s.repos.Insights.UpsertSearchKeywords(ctx, normalize.SearchKeywords(loc.ID, month, page.SearchKeywordsCounts))
			if err != nil {
				return "", fmt.Errorf("写入搜索关键词失败: %w", err)
			}
			r.counts.keywords.Add(int64(n))
			return page.NextPageToken, nil
		})
		if err != nil {
			s.locationFailed(r, loc, "search_keywords", err)
			return
		}
	}
}

func (s *SyncService) startRun(ctx context.Context, accountID string, syncType model.SyncType, start time.Time, log *logrus.Entry) *model.SyncRun {
	if s.repos.SyncRuns == nil {
		return nil
	}
	run := &model.SyncRun{
		AccountID: accountID,
		SyncType:  syncType,
		Status:    model.SyncRunRunning,
		Counts:    datatypes.JSON("{}"),
		StartedAt: start,
	}
	if err := s.repos.SyncRuns.Create(ctx, run); err != nil {
		log.WithError(err).Warn("写入同步记录失败")
		return nil
	}
	return run
}

func (s *SyncService) finishRun(ctx context.Context, run *model.SyncRun, counts Counts, took time.Duration, syncErr error, log *logrus.Entry) {
	if run == nil {
		return
	}
	finished := s.now()
	run.Status = model.SyncRunCompleted
	run.Counts = datatypes.JSON(model.RawJSON(counts))
	run.DurationMs = took.Milliseconds()
	run.FinishedAt = &finished
	if syncErr != nil {
		run.Status = model.SyncRunFailed
		code := "INTERNAL"
		if se, ok := AsSyncError(syncErr); ok {
			code = se.Code
		}
		msg := syncErr.Error()
		run.ErrorCode = &code
		run.ErrorMessage = &msg
	}
	// 调用方 ctx 可能已取消，收尾写入使用独立超时
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repos.SyncRuns.Finish(wctx, run); err != nil {
		log.WithError(err).Warn("更新同步记录失败")
	}
}
