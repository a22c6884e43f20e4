package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"GBPSync/internal/model"
)

// LocationsReadMask 只取同步需要的字段
const LocationsReadMask = "name,title,storefrontAddress,phoneNumbers,categories,websiteUri,metadata,latlng,openInfo"

// FetchLocations 门店是后续所有资源的基础，非 2xx 直接返回错误
func (a *Adapter) FetchLocations(ctx context.Context, accessToken, accountName, pageToken string) (*model.GoogleLocationsPage, error) {
	q := url.Values{}
	q.Set("readMask", LocationsReadMask)
	q.Set("pageSize", strconv.Itoa(a.pageSize(a.cfg.LocationsPageSize, 100)))
	setPageToken(q, pageToken)

	path := NormalizeAccountName(accountName) + "/locations"
	var page model.GoogleLocationsPage
	if err := a.do(ctx, http.MethodGet, withQuery(a.cfg.BusinessInfoURL, path, q), accessToken, nil, &page); err != nil {
		return nil, fmt.Errorf("获取门店列表失败(%s): %w", accountName, err)
	}
	return &page, nil
}
