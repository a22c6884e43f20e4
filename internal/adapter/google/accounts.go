package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"GBPSync/internal/model"
)

// ListAccounts mybusinessaccountmanagement v1 GET /accounts
func (a *Adapter) ListAccounts(ctx context.Context, accessToken, pageToken string) (*model.GoogleAccountsPage, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(20))
	setPageToken(q, pageToken)

	var page model.GoogleAccountsPage
	if err := a.do(ctx, http.MethodGet, withQuery(a.cfg.AccountManagementURL, "accounts", q), accessToken, nil, &page); err != nil {
		return nil, fmt.Errorf("获取账号列表失败: %w", err)
	}
	return &page, nil
}
