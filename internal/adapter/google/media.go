package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"GBPSync/internal/model"

	"github.com/sirupsen/logrus"
)

// FetchMedia GET {accounts/a/locations/l}/media
func (a *Adapter) FetchMedia(ctx context.Context, accessToken, accountName, locationID, pageToken string) (*model.GoogleMediaPage, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(a.pageSize(a.cfg.MediaPageSize, 100)))
	setPageToken(q, pageToken)

	parent := QualifiedLocationName(accountName, locationID)
	var page model.GoogleMediaPage
	err := a.do(ctx, http.MethodGet, withQuery(a.cfg.MyBusinessURL, parent+"/media", q), accessToken, nil, &page)
	if err != nil {
		if a.degrade("media", err, logrus.Fields{"location_id": parent}) {
			return &model.GoogleMediaPage{}, nil
		}
		return nil, fmt.Errorf("获取媒体失败(%s): %w", parent, err)
	}
	return &page, nil
}
