package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"GBPSync/internal/model"
	"GBPSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memStore 以自然键为主键的内存仓储，行为对齐 Postgres 的 upsert
type memStore struct {
	mu         sync.Mutex
	accounts   map[string]*model.Account
	locations  map[string]*model.Location // account|external
	reviews    map[string]*model.Review   // external_review_id
	media      map[string]*model.MediaItem
	metrics    map[string]*model.PerformanceMetric
	keywords   map[string]*model.SearchKeyword
	runs       []*model.SyncRun
	tokenWrite int
	questions  map[string]int64
	stats      map[string][]repository.LocationReviewStat // 窗口 key → 统计
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  map[string]*model.Account{},
		locations: map[string]*model.Location{},
		reviews:   map[string]*model.Review{},
		media:     map[string]*model.MediaItem{},
		metrics:   map[string]*model.PerformanceMetric{},
		keywords:  map[string]*model.SearchKeyword{},
		questions: map[string]int64{},
		stats:     map[string][]repository.LocationReviewStat{},
	}
}

func (m *memStore) repos() Repositories {
	return Repositories{
		Accounts:  memAccounts{m},
		Locations: memLocations{m},
		Reviews:   memReviews{m},
		Media:     memMedia{m},
		Insights:  memInsights{m},
		SyncRuns:  memRuns{m},
		Dashboard: memDashboard{m},
	}
}

func (m *memStore) addAccount(a *model.Account) *model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return a
}

func (m *memStore) account(id string) model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

func (m *memStore) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case "locations":
		return len(m.locations)
	case "reviews":
		return len(m.reviews)
	case "media":
		return len(m.media)
	case "metrics":
		return len(m.metrics)
	case "keywords":
		return len(m.keywords)
	}
	return 0
}

type memAccounts struct{ m *memStore }

func (r memAccounts) Create(ctx context.Context, a *model.Account) error {
	r.m.addAccount(a)
	return nil
}

func (r memAccounts) GetByID(ctx context.Context, id string) (*model.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memAccounts) ListActive(ctx context.Context, provider model.Provider) ([]*model.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Account
	for _, a := range r.m.accounts {
		if a.IsActive && (provider == "" || a.Provider == provider) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAccounts) UpdateTokens(ctx context.Context, id, accessToken string, expiresAt time.Time, refreshToken *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.m.tokenWrite++
	a.AccessToken = accessToken
	a.TokenExpiresAt = &expiresAt
	if refreshToken != nil {
		a.RefreshToken = *refreshToken
	}
	return nil
}

func (r memAccounts) UpdateAccountName(ctx context.Context, id, accountName string) error {
	return r.mutate(id, func(a *model.Account) { a.AccountName = accountName })
}

func (r memAccounts) MarkSynced(ctx context.Context, id string, at time.Time) error {
	return r.mutate(id, func(a *model.Account) { a.LastSyncAt = &at })
}

func (r memAccounts) Deactivate(ctx context.Context, id string) error {
	return r.mutate(id, func(a *model.Account) { a.IsActive = false })
}

func (r memAccounts) mutate(id string, fn func(a *model.Account)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(a)
	return nil
}

type memLocations struct{ m *memStore }

func (r memLocations) UpsertLocations(ctx context.Context, rows []*model.Location) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range rows {
		key := l.AccountID + "|" + l.ExternalLocationID
		if old, ok := r.m.locations[key]; ok {
			l.ID = old.ID
		} else if l.ID == "" {
			l.ID = uuid.NewString()
		}
		cp := *l
		r.m.locations[key] = &cp
	}
	return len(rows), nil
}

func (r memLocations) ListActiveByAccount(ctx context.Context, accountID string) ([]*model.Location, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Location
	for _, l := range r.m.locations {
		if l.AccountID == accountID && l.IsActive && !l.IsArchived {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalLocationID < out[j].ExternalLocationID })
	return out, nil
}

func (r memLocations) ArchiveMissing(ctx context.Context, accountID string, keep []string) (int64, error) {
	if len(keep) == 0 {
		return 0, nil
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[k] = true
	}
	var n int64
	for _, l := range r.m.locations {
		if l.AccountID == accountID && !l.IsArchived && !keepSet[l.ExternalLocationID] {
			l.IsArchived = true
			l.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r memLocations) UpdateReviewSummary(ctx context.Context, locationID string, rating *float64, count int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range r.m.locations {
		if l.ID == locationID {
			l.Rating = rating
			l.ReviewCount = count
		}
	}
	return nil
}

type memReviews struct{ m *memStore }

func (r memReviews) UpsertReviews(ctx context.Context, rows []*model.Review) (int, []*model.Review, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var created []*model.Review
	written := map[string]bool{}
	for _, rv := range rows {
		written[rv.ExternalReviewID] = true
		if old, ok := r.m.reviews[rv.ExternalReviewID]; ok {
			rv.ID = old.ID
			if old.Status == model.ReviewStatusFlagged || old.Status == model.ReviewStatusArchived {
				rv.Status = old.Status
			}
		} else {
			if rv.ID == "" {
				rv.ID = uuid.NewString()
			}
			created = append(created, rv)
		}
		cp := *rv
		r.m.reviews[rv.ExternalReviewID] = &cp
	}
	return len(written), created, nil
}

func (r memReviews) GetByID(ctx context.Context, id string) (*model.Review, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, rv := range r.m.reviews {
		if rv.ID == id {
			cp := *rv
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memReviews) UpdateReply(ctx context.Context, id, text string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, rv := range r.m.reviews {
		if rv.ID == id {
			rv.ReplyText = &text
			rv.ReplyDate = &at
			rv.HasReply = true
			if rv.Status != model.ReviewStatusFlagged && rv.Status != model.ReviewStatusArchived {
				rv.Status = model.ReviewStatusReplied
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

type memMedia struct{ m *memStore }

func (r memMedia) UpsertMedia(ctx context.Context, rows []*model.MediaItem) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, it := range rows {
		cp := *it
		r.m.media[it.ExternalMediaID] = &cp
	}
	return len(rows), nil
}

type memInsights struct{ m *memStore }

func (r memInsights) UpsertPerformanceMetrics(ctx context.Context, rows []*model.PerformanceMetric) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range rows {
		cp := *p
		r.m.metrics[p.LocationID+"|"+p.MetricDate.Format("2006-01-02")+"|"+p.MetricType] = &cp
	}
	return len(rows), nil
}

func (r memInsights) UpsertSearchKeywords(ctx context.Context, rows []*model.SearchKeyword) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, k := range rows {
		cp := *k
		r.m.keywords[k.LocationID+"|"+k.SearchKeyword+"|"+k.MonthYear.Format("2006-01")] = &cp
	}
	return len(rows), nil
}

type memRuns struct{ m *memStore }

func (r memRuns) Create(ctx context.Context, run *model.SyncRun) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	cp := *run
	r.m.runs = append(r.m.runs, &cp)
	return nil
}

func (r memRuns) Finish(ctx context.Context, run *model.SyncRun) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, existing := range r.m.runs {
		if existing.ID == run.ID {
			cp := *run
			r.m.runs[i] = &cp
		}
	}
	return nil
}

func (r memRuns) ListByAccount(ctx context.Context, accountID string, limit int) ([]*model.SyncRun, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.SyncRun
	for i := len(r.m.runs) - 1; i >= 0; i-- {
		if r.m.runs[i].AccountID == accountID {
			out = append(out, r.m.runs[i])
		}
	}
	return out, nil
}

type memDashboard struct{ m *memStore }

func (r memDashboard) ListLocations(ctx context.Context, accountID string) ([]*model.Location, error) {
	return memLocations(r).ListActiveByAccount(ctx, accountID)
}

// ReviewStats 测试里按窗口预置：nil 窗口 key 为 "all"，否则为起点日期
func (r memDashboard) ReviewStats(ctx context.Context, accountID string, from, to *time.Time) ([]repository.LocationReviewStat, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := "all"
	if from != nil {
		key = from.Format("2006-01-02")
	}
	return r.m.stats[key], nil
}

func (r memDashboard) CountUnansweredQuestions(ctx context.Context, ids []string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, id := range ids {
		n += r.m.questions[id]
	}
	return n, nil
}

// staticTokens 固定返回 token 或错误
type staticTokens struct {
	token string
	err   error
}

func (t staticTokens) GetValidAccessToken(ctx context.Context, accountID string) (string, error) {
	return t.token, t.err
}

// recordingHandoff 记录入队的评论
type recordingHandoff struct {
	mu  sync.Mutex
	ids []string
}

func (h *recordingHandoff) Enqueue(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, id)
	return true
}

func (h *recordingHandoff) queued() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ids...)
}
