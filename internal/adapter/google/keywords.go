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

func setMonth(q url.Values, prefix string, m model.Month) {
	q.Set(prefix+".year", strconv.Itoa(m.Year))
	q.Set(prefix+".month", strconv.Itoa(int(m.Month)))
}

// FetchSearchKeywords locations/{l}/searchkeywords/impressions/monthly
func (a *Adapter) FetchSearchKeywords(ctx context.Context, accessToken, locationID string, start, end model.Month, pageToken string) (*model.GoogleKeywordsPage, error) {
	q := url.Values{}
	setMonth(q, "monthlyRange.startMonth", start)
	setMonth(q, "monthlyRange.endMonth", end)
	q.Set("pageSize", strconv.Itoa(a.pageSize(a.cfg.KeywordsPageSize, 100)))
	setPageToken(q, pageToken)

	name := BareLocationName(locationID)
	var page model.GoogleKeywordsPage
	err := a.do(ctx, http.MethodGet, withQuery(a.cfg.PerformanceURL, name+"/searchkeywords/impressions/monthly", q), accessToken, nil, &page)
	if err != nil {
		if a.degrade("search_keywords", err, logrus.Fields{"location_id": name}) {
			return &model.GoogleKeywordsPage{}, nil
		}
		return nil, fmt.Errorf("获取搜索关键词失败(%s): %w", name, err)
	}
	return &page, nil
}
