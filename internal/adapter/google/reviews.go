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

// FetchReviews GET {accounts/a/locations/l}/reviews
func (a *Adapter) FetchReviews(ctx context.Context, accessToken, accountName, locationID, pageToken string) (*model.GoogleReviewsPage, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(a.pageSize(a.cfg.ReviewsPageSize, 50)))
	setPageToken(q, pageToken)

	parent := QualifiedLocationName(accountName, locationID)
	var page model.GoogleReviewsPage
	err := a.do(ctx, http.MethodGet, withQuery(a.cfg.MyBusinessURL, parent+"/reviews", q), accessToken, nil, &page)
	if err != nil {
		if a.degrade("reviews", err, logrus.Fields{"location_id": parent}) {
			return &model.GoogleReviewsPage{}, nil
		}
		return nil, fmt.Errorf("获取评论失败(%s): %w", parent, err)
	}
	return &page, nil
}

type replyBody struct {
	Comment string `json:"comment"`
}

// UpdateReviewReply PUT {review}/reply
func (a *Adapter) UpdateReviewReply(ctx context.Context, accessToken, reviewName, comment string) (*model.GoogleReviewReply, error) {
	var reply model.GoogleReviewReply
	u := withQuery(a.cfg.MyBusinessURL, reviewName+"/reply", nil)
	if err := a.do(ctx, http.MethodPut, u, accessToken, replyBody{Comment: comment}, &reply); err != nil {
		return nil, fmt.Errorf("回复评论失败(%s): %w", reviewName, err)
	}
	if reply.Comment == "" {
		reply.Comment = comment
	}
	return &reply, nil
}
