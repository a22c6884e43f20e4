package interfaces

import (
	"context"

	"GBPSync/internal/model"
)

// GMBClient 所有 GMB 资源拉取器必须实现的接口（access token 由调用方传入）
type GMBClient interface {
	// ListAccounts 列出令牌可见的商家账号（用于解析 accounts/{id}）
	ListAccounts(ctx context.Context, accessToken, pageToken string) (*model.GoogleAccountsPage, error)
	// FetchLocations 门店列表，非 2xx 直接返回错误
	FetchLocations(ctx context.Context, accessToken, accountName, pageToken string) (*model.GoogleLocationsPage, error)
	// FetchReviews 评论，403/404 及其它非 2xx 降级为空页
	FetchReviews(ctx context.Context, accessToken, accountName, locationID, pageToken string) (*model.GoogleReviewsPage, error)
	// FetchMedia 照片/视频，降级规则同评论
	FetchMedia(ctx context.Context, accessToken, accountName, locationID, pageToken string) (*model.GoogleMediaPage, error)
	// FetchDailyMetrics 每日指标，一次请求取全部 metrics 并拍平
	FetchDailyMetrics(ctx context.Context, accessToken, locationID string, start, end model.Date, metrics []string) ([]model.DailyMetricPoint, error)
	// FetchSearchKeywords 月度搜索关键词曝光
	FetchSearchKeywords(ctx context.Context, accessToken, locationID string, start, end model.Month, pageToken string) (*model.GoogleKeywordsPage, error)
	// UpdateReviewReply 发布/覆盖评论回复，reviewName 为完整资源名
	UpdateReviewReply(ctx context.Context, accessToken, reviewName, comment string) (*model.GoogleReviewReply, error)
}

// TokenProvider 为其它模块提供可用的 access token
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context, accountID string) (string, error)
}

// AutoReplier 自动回复协作方，失败只记录
type AutoReplier interface {
	ProcessAutoReply(ctx context.Context, reviewID string) error
}
