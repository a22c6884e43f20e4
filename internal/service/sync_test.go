package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"GBPSync/internal/adapter/google"
	"GBPSync/internal/config"
	"GBPSync/internal/interfaces"
	"GBPSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGoogle 两个门店：A 一切正常，B 的评论 404、媒体 403、指标与关键词 404
type fakeGoogle struct {
	reviewsHits     atomic.Int32
	locations       [][]string // 每页的门店 ID
	accounts        []string
	duplicateReview bool // A 的评论页里重复返回 ra1
}

func (f *fakeGoogle) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}

	mux.HandleFunc("/am/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		page := model.GoogleAccountsPage{}
		for _, a := range f.accounts {
			page.Accounts = append(page.Accounts, model.GoogleAccount{Name: a})
		}
		writeJSON(w, page)
	})
	mux.HandleFunc("/bi/v1/accounts/1/locations", func(w http.ResponseWriter, r *http.Request) {
		idx := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			_, _ = fmt.Sscanf(tok, "p%d", &idx)
		}
		page := model.GoogleLocationsPage{}
		for _, id := range f.locations[idx] {
			page.Locations = append(page.Locations, model.GoogleLocation{Name: "locations/" + id, Title: "Store " + id})
		}
		if idx+1 < len(f.locations) {
			page.NextPageToken = fmt.Sprintf("p%d", idx+1)
		}
		writeJSON(w, page)
	})
	mux.HandleFunc("/v4/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v4/")
		switch {
		case path == "accounts/1/locations/A/reviews":
			f.reviewsHits.Add(1)
			reviews := []model.GoogleReview{
				{ReviewID: "ra1", Name: "accounts/1/locations/A/reviews/ra1", StarRating: "FIVE", CreateTime: "2026-03-01T00:00:00Z"},
				{ReviewID: "ra2", Name: "accounts/1/locations/A/reviews/ra2", StarRating: "TWO", CreateTime: "2026-03-02T00:00:00Z",
					ReviewReply: &model.GoogleReviewReply{Comment: "sorry"}},
				{ReviewID: "bad", StarRating: "STAR_RATING_UNSPECIFIED", CreateTime: "2026-03-02T00:00:00Z"},
			}
			if f.duplicateReview {
				reviews = append(reviews, model.GoogleReview{ReviewID: "ra1", Name: "accounts/1/locations/A/reviews/ra1",
					StarRating: "FOUR", CreateTime: "2026-03-01T00:00:00Z"})
			}
			writeJSON(w, model.GoogleReviewsPage{
				Reviews:          reviews,
				AverageRating:    3.5,
				TotalReviewCount: 2,
			})
		case path == "accounts/1/locations/A/media":
			writeJSON(w, model.GoogleMediaPage{MediaItems: []model.GoogleMediaItem{{Name: "accounts/1/locations/A/media/m1", MediaFormat: "PHOTO"}}})
		case strings.HasSuffix(path, "/reviews"):
			f.reviewsHits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	})
	mux.HandleFunc("/perf/v1/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/perf/v1/")
		switch {
		case path == "locations/A:fetchMultiDailyMetricsTimeSeries":
			_, _ = w.Write([]byte(`{"multiDailyMetricTimeSeries":[{"dailyMetricTimeSeries":[
				{"dailyMetric":"CALL_CLICKS","timeSeries":{"datedValues":[
					{"date":{"year":2026,"month":3,"day":1},"value":"2"},
					{"date":{"year":2026,"month":3,"day":2},"value":"5"}]}}]}]}`))
		case path == "locations/A/searchkeywords/impressions/monthly":
			_, _ = w.Write([]byte(`{"searchKeywordsCounts":[{"searchKeyword":"pizza","insightsValue":{"threshold":"15"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

type syncFixture struct {
	svc     *SyncService
	store   *memStore
	google  *fakeGoogle
	handoff *recordingHandoff
	account *model.Account
}

func newSyncFixture(t *testing.T, acc *model.Account) *syncFixture {
	t.Helper()
	fg := &fakeGoogle{locations: [][]string{{"A"}, {"B"}}, accounts: []string{"accounts/1"}}
	srv := httptest.NewServer(fg.handler(t))
	t.Cleanup(srv.Close)

	client := google.NewAdapterWithClient(&config.GoogleConfig{
		AccountManagementURL: srv.URL + "/am/v1",
		BusinessInfoURL:      srv.URL + "/bi/v1",
		MyBusinessURL:        srv.URL + "/v4",
		PerformanceURL:       srv.URL + "/perf/v1",
	}, srv.Client(), quietLogger())

	store := newMemStore()
	if acc == nil {
		acc = &model.Account{Provider: model.ProviderGoogle, ProviderAccountID: "accounts/1", IsActive: true, UserID: "u1"}
	}
	store.addAccount(acc)
	handoff := &recordingHandoff{}
	svc := NewSyncService(store.repos(),
		map[model.Provider]interfaces.GMBClient{model.ProviderGoogle: client},
		staticTokens{token: "tok"}, handoff,
		config.SyncConfig{Concurrency: 2, KeywordMonths: 3, MetricsDays: 30, MaxPages: 10},
		quietLogger())
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) })
	return &syncFixture{svc: svc, store: store, google: fg, handoff: handoff, account: acc}
}

func TestSyncAccount_FullSyncDegradesPerLocation(t *testing.T) {
	f := newSyncFixture(t, nil)

	res, err := f.svc.SyncAccount(context.Background(), f.account.ID, model.SyncTypeFull)
	require.NoError(t, err)

	assert.Equal(t, Counts{
		Locations:          2,
		Reviews:            2,
		Media:              1,
		PerformanceMetrics: 2,
		SearchKeywords:     3,
	}, res.Counts)
	assert.Equal(t, int32(2), f.google.reviewsHits.Load())

	// 星级无效的评论不入库
	for _, rv := range f.store.reviews {
		assert.GreaterOrEqual(t, rv.Rating, 1)
		assert.LessOrEqual(t, rv.Rating, 5)
	}
	assert.Equal(t, 2, f.store.count("reviews"))

	// 三个月各一行，阈值标记保留
	assert.Equal(t, 3, f.store.count("keywords"))
	for _, k := range f.store.keywords {
		assert.True(t, k.IsThresholded)
		assert.Equal(t, int64(15), k.ImpressionsCount)
	}

	acc := f.store.account(f.account.ID)
	require.NotNil(t, acc.LastSyncAt)
	assert.Equal(t, "accounts/1", acc.AccountName)

	require.Len(t, f.store.runs, 1)
	assert.Equal(t, model.SyncRunCompleted, f.store.runs[0].Status)

	// 只有新出现且未回复的评论进入自动回复
	assert.Len(t, f.handoff.queued(), 1)
}

func TestSyncAccount_Idempotent(t *testing.T) {
	f := newSyncFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	require.NoError(t, err)
	sizes := map[string]int{}
	for _, k := range []string{"locations", "reviews", "media", "metrics", "keywords"} {
		sizes[k] = f.store.count(k)
	}

	second, err := f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	require.NoError(t, err)
	assert.Equal(t, first.Counts, second.Counts)
	for k, n := range sizes {
		assert.Equal(t, n, f.store.count(k), k)
	}
	// 第二次没有新评论
	assert.Len(t, f.handoff.queued(), 1)
}

func TestSyncAccount_IncrementalFetchesFirstPageOnly(t *testing.T) {
	f := newSyncFixture(t, nil)

	res, err := f.svc.SyncAccount(context.Background(), f.account.ID, model.SyncTypeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Locations)
	assert.Equal(t, 1, f.store.count("locations"))
}

func TestSyncAccount_FullSyncArchivesRemovedLocations(t *testing.T) {
	f := newSyncFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	require.NoError(t, err)

	f.google.locations = [][]string{{"A"}}
	res, err := f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Locations)

	active, err := memLocations{f.store}.ListActiveByAccount(ctx, f.account.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "locations/A", active[0].ExternalLocationID)
	assert.Equal(t, 2, f.store.count("locations"))
}

func TestSyncAccount_TruncatedLocationListSkipsArchive(t *testing.T) {
	f := newSyncFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	require.NoError(t, err)

	// 只读到第一页，B 仍在上游第二页
	f.svc.cfg.MaxPages = 1
	res, err := f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Locations)

	active, err := memLocations{f.store}.ListActiveByAccount(ctx, f.account.ID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "locations/A", active[0].ExternalLocationID)
	assert.Equal(t, "locations/B", active[1].ExternalLocationID)
}

func TestSyncAccount_ReviewCountExcludesDuplicates(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.google.duplicateReview = true

	res, err := f.svc.SyncAccount(context.Background(), f.account.ID, model.SyncTypeFull)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Counts.Reviews)
	assert.Equal(t, 2, f.store.count("reviews"))
}

func TestSyncAccount_ResolvesAccountNameFromProvider(t *testing.T) {
	f := newSyncFixture(t, &model.Account{Provider: model.ProviderGoogle, ProviderAccountID: "1089", IsActive: true})

	_, err := f.svc.SyncAccount(context.Background(), f.account.ID, model.SyncTypeIncremental)
	require.NoError(t, err)
	assert.Equal(t, "accounts/1", f.store.account(f.account.ID).AccountName)
}

func TestSyncAccount_UnresolvableAccountName(t *testing.T) {
	f := newSyncFixture(t, &model.Account{Provider: model.ProviderGoogle, ProviderAccountID: "1089", IsActive: true})
	f.google.accounts = nil

	_, err := f.svc.SyncAccount(context.Background(), f.account.ID, model.SyncTypeIncremental)
	assert.ErrorIs(t, err, ErrAccountResourceUnresolved)
	require.Len(t, f.store.runs, 1)
	assert.Equal(t, model.SyncRunFailed, f.store.runs[0].Status)
	require.NotNil(t, f.store.runs[0].ErrorCode)
	assert.Equal(t, CodeAccountResourceUnresolved, *f.store.runs[0].ErrorCode)
}

func TestSyncAccount_AccountLevelErrors(t *testing.T) {
	ctx := context.Background()

	f := newSyncFixture(t, nil)
	_, err := f.svc.SyncAccount(ctx, "missing", model.SyncTypeFull)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	f = newSyncFixture(t, &model.Account{Provider: model.ProviderGoogle, ProviderAccountID: "accounts/1", IsActive: false})
	_, err = f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	assert.ErrorIs(t, err, ErrAccountInactive)

	f = newSyncFixture(t, &model.Account{Provider: model.ProviderYouTube, ProviderAccountID: "accounts/1", IsActive: true})
	_, err = f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	f = newSyncFixture(t, nil)
	f.svc.tokens = staticTokens{err: newSyncError(CodeInvalidGrant, "revoked", nil)}
	_, err = f.svc.SyncAccount(ctx, f.account.ID, model.SyncTypeFull)
	assert.ErrorIs(t, err, ErrInvalidGrant)
	assert.Equal(t, 0, f.store.count("locations"))
}

func TestMetricsWindowAndKeywordMonths(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	start, end := MetricsWindow(now, 30)
	assert.Equal(t, model.Date{Year: 2025, Month: time.December, Day: 11}, start)
	assert.Equal(t, model.Date{Year: 2026, Month: time.January, Day: 9}, end)

	months := KeywordMonths(now, 3)
	assert.Equal(t, []model.Month{
		{Year: 2025, Month: time.October},
		{Year: 2025, Month: time.November},
		{Year: 2025, Month: time.December},
	}, months)
}
