package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"GBPSync/internal/model"
	"GBPSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAccounts struct {
	userID, accountID string
	syncType          model.SyncType
	err               error
}

func (s *stubAccounts) SyncForUser(ctx context.Context, userID, accountID string, syncType model.SyncType) (*service.SyncResult, error) {
	s.userID, s.accountID, s.syncType = userID, accountID, syncType
	if s.err != nil {
		return nil, s.err
	}
	return &service.SyncResult{AccountID: accountID, SyncType: syncType, Counts: service.Counts{Locations: 2}}, nil
}

func (s *stubAccounts) Disconnect(ctx context.Context, userID, accountID string) error {
	s.userID, s.accountID = userID, accountID
	return s.err
}

func (s *stubAccounts) ListSyncRuns(ctx context.Context, userID, accountID string, limit int) ([]*model.SyncRun, error) {
	return []*model.SyncRun{{ID: "run-1", AccountID: accountID, Status: model.SyncRunCompleted}}, s.err
}

type stubReplier struct {
	items []service.ReplyItem
	err   error
}

func (s *stubReplier) Reply(ctx context.Context, userID, accountID, reviewID, comment string) (*model.Review, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Review{ID: reviewID, ReplyText: &comment, HasReply: true}, nil
}

func (s *stubReplier) BulkReply(ctx context.Context, userID, accountID string, items []service.ReplyItem) ([]service.ReplyOutcome, error) {
	s.items = items
	out := make([]service.ReplyOutcome, 0, len(items))
	for i, it := range items {
		out = append(out, service.ReplyOutcome{ReviewID: it.ReviewID, Success: i%2 == 0})
	}
	return out, nil
}

type stubDashboard struct{ days int }

func (s *stubDashboard) Overview(ctx context.Context, userID, accountID string, days int) (*service.Overview, error) {
	s.days = days
	return &service.Overview{AccountID: accountID, WindowDays: days}, nil
}

type stubSyncer struct{ accountID string }

func (s *stubSyncer) SyncAccount(ctx context.Context, accountID string, syncType model.SyncType) (*service.SyncResult, error) {
	s.accountID = accountID
	return &service.SyncResult{AccountID: accountID, SyncType: syncType}, nil
}

type stubScheduled struct {
	calls    int
	syncType model.SyncType
}

func (s *stubScheduled) Run(ctx context.Context, syncType model.SyncType) (service.RunSummary, error) {
	s.calls++
	s.syncType = syncType
	return service.RunSummary{SyncType: syncType, Total: 3, Succeeded: 2, Failed: 1}, nil
}

type testServer struct {
	router    *gin.Engine
	accounts  *stubAccounts
	replier   *stubReplier
	dashboard *stubDashboard
	syncer    *stubSyncer
	scheduled *stubScheduled
}

func newTestServer() *testServer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	ts := &testServer{
		accounts:  &stubAccounts{},
		replier:   &stubReplier{},
		dashboard: &stubDashboard{},
		syncer:    &stubSyncer{},
		scheduled: &stubScheduled{},
	}
	ts.router = NewRouter(RouterDeps{
		Accounts:   NewAccountHandler(ts.accounts, logger),
		Reviews:    NewReviewHandler(ts.replier, logger),
		Dashboard:  NewDashboardHandler(ts.dashboard, logger),
		Internal:   NewInternalHandler(ts.syncer, ts.scheduled, logger),
		CronSecret: "s3cret",
		Checks: map[string]Pinger{
			"postgres": func(ctx context.Context) error { return nil },
		},
		Logger: logger,
	})
	return ts
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var asUser = map[string]string{HeaderUserID: "u1"}

func TestTriggerSync(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/sync?type=full", "", asUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", ts.accounts.userID)
	assert.Equal(t, "acc-1", ts.accounts.accountID)
	assert.Equal(t, model.SyncTypeFull, ts.accounts.syncType)
	result := decode(t, w)["result"].(map[string]interface{})
	assert.Equal(t, float64(2), result["counts"].(map[string]interface{})["locations"])

	w = ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/sync", "", asUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.SyncTypeIncremental, ts.accounts.syncType)

	w = ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/sync?type=weekly", "", asUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireUser(t *testing.T) {
	ts := newTestServer()
	w := ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/sync", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, ts.accounts.accountID)
}

func TestSyncErrorMapping(t *testing.T) {
	cases := []struct {
		err       error
		status    int
		code      string
		reconnect bool
	}{
		{&service.SyncError{Code: service.CodeAccountNotFound}, http.StatusNotFound, service.CodeAccountNotFound, false},
		{&service.SyncError{Code: service.CodeForbidden}, http.StatusForbidden, service.CodeForbidden, false},
		{&service.SyncError{Code: service.CodeInvalidGrant}, http.StatusConflict, service.CodeInvalidGrant, true},
		{&service.SyncError{Code: service.CodeLocationsSyncFailed}, http.StatusBadGateway, service.CodeLocationsSyncFailed, false},
		{errors.New("db down"), http.StatusInternalServerError, "INTERNAL", false},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT", false},
	}
	for _, tc := range cases {
		ts := newTestServer()
		ts.accounts.err = tc.err
		w := ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/sync", "", asUser)
		assert.Equal(t, tc.status, w.Code, tc.code)
		body := decode(t, w)
		assert.Equal(t, tc.code, body["code"])
		if tc.reconnect {
			assert.Equal(t, true, body["reconnect_required"])
		}
	}
}

func TestDisconnectAndRuns(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodDelete, "/api/gmb/accounts/acc-9", "", asUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acc-9", ts.accounts.accountID)

	w = ts.do(http.MethodGet, "/api/gmb/accounts/acc-9/sync/runs?limit=5", "", asUser)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode(t, w)["runs"].([]interface{})
	assert.Len(t, runs, 1)
}

func TestReplyEndpoints(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/reviews/rv-1/reply", `{"comment":"thanks"}`, asUser)
	require.Equal(t, http.StatusOK, w.Code)
	review := decode(t, w)["review"].(map[string]interface{})
	assert.Equal(t, "rv-1", review["id"])

	w = ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/reviews/rv-1/reply", `{}`, asUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/reviews/bulk-reply",
		`{"items":[{"review_id":"a","comment":"x"},{"review_id":"b","comment":"y"},{"review_id":"c","comment":"z"}]}`, asUser)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["succeeded"])
	assert.Equal(t, float64(1), body["failed"])
	assert.Len(t, ts.replier.items, 3)

	w = ts.do(http.MethodPost, "/api/gmb/accounts/acc-1/reviews/bulk-reply", `{"items":[]}`, asUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOverviewEndpoint(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/gmb/accounts/acc-1/overview", "", asUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, ts.dashboard.days)

	w = ts.do(http.MethodGet, "/api/gmb/accounts/acc-1/overview?days=7", "", asUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, ts.dashboard.days)

	w = ts.do(http.MethodGet, "/api/gmb/accounts/acc-1/overview?days=abc", "", asUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInternalSync(t *testing.T) {
	ts := newTestServer()
	secret := map[string]string{HeaderCronSecret: "s3cret"}

	w := ts.do(http.MethodPost, "/internal/sync", "", map[string]string{HeaderCronSecret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, ts.scheduled.calls)

	w = ts.do(http.MethodPost, "/internal/sync", "", secret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.scheduled.calls)
	assert.Equal(t, model.SyncTypeIncremental, ts.scheduled.syncType)
	assert.Equal(t, false, decode(t, w)["success"])

	w = ts.do(http.MethodPost, "/internal/sync", `{"account_id":"acc-7","sync_type":"full"}`, secret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acc-7", ts.syncer.accountID)
	assert.Equal(t, 1, ts.scheduled.calls)

	w = ts.do(http.MethodPost, "/internal/sync", `{"sync_type":"hourly"}`, secret)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireCronSecret_EmptySecretRejects(t *testing.T) {
	r := gin.New()
	r.POST("/x", RequireCronSecret(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(HeaderCronSecret, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	checks := decode(t, w)["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])

	w = ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gmbsync_http_requests_total")
}
