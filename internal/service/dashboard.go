package service

import (
	"context"
	"fmt"
	"time"

	"GBPSync/internal/analytics"
	"GBPSync/internal/model"
	"GBPSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// StaleAfter 超过该时长未同步的门店视为过期
const StaleAfter = 24 * time.Hour

type Overview struct {
	AccountID   string                      `json:"account_id"`
	GeneratedAt time.Time                   `json:"generated_at"`
	WindowDays  int                         `json:"window_days"`
	Counts      analytics.AggregatedCounts  `json:"counts"`
	Health      analytics.HealthReport      `json:"health"`
	Comparison  analytics.MonthlyComparison `json:"comparison"`
	Highlights  analytics.Highlights        `json:"highlights"`
}

// DashboardService 从已同步数据组装概览，分析部分交给 analytics 包
type DashboardService struct {
	accounts  repository.AccountRepository
	dashboard repository.DashboardRepository
	logger    *logrus.Logger
	now       func() time.Time
}

func NewDashboardService(repos Repositories, logger *logrus.Logger) *DashboardService {
	return &DashboardService{
		accounts:  repos.Accounts,
		dashboard: repos.Dashboard,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock 替换时钟（测试）
func (s *DashboardService) SetClock(now func() time.Time) { s.now = now }

func (s *DashboardService) Overview(ctx context.Context, userID, accountID string, days int) (*Overview, error) {
	acc, err := loadOwnedAccount(ctx, s.accounts, userID, accountID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = analytics.DefaultWindowDays
	}
	now := s.now()
	cur, prev := analytics.ComparisonWindows(now, days)

	locations, err := s.dashboard.ListLocations(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("查询门店失败: %w", err)
	}
	all, err := s.dashboard.ReviewStats(ctx, acc.ID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("统计评论失败: %w", err)
	}
	curStats, err := s.dashboard.ReviewStats(ctx, acc.ID, &cur.Start, &cur.End)
	if err != nil {
		return nil, fmt.Errorf("统计本期评论失败: %w", err)
	}
	prevStats, err := s.dashboard.ReviewStats(ctx, acc.ID, &prev.Start, &prev.End)
	if err != nil {
		return nil, fmt.Errorf("统计上期评论失败: %w", err)
	}

	ids := make([]string, 0, len(locations))
	listed := make(map[string]bool, len(locations))
	for _, l := range locations {
		ids = append(ids, l.ID)
		listed[l.ID] = true
	}
	// 已归档门店的评论无法再回复，不计入健康分
	all, curStats, prevStats = onlyListed(all, listed), onlyListed(curStats, listed), onlyListed(prevStats, listed)
	questions, err := s.dashboard.CountUnansweredQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("统计未回答问题失败: %w", err)
	}

	counts := aggregate(all)
	// 均分取本期（本期无评论时退回全量），评论数阈值仍按全量
	if c := aggregate(curStats); c.TotalReviews > 0 {
		counts.AverageRating = c.AverageRating
	}
	counts.UnansweredQuestions = int(questions)
	counts.TotalLocations = len(locations)
	counts.StaleLocations = countStale(locations, acc.LastSyncAt, now)

	return &Overview{
		AccountID:   acc.ID,
		GeneratedAt: now,
		WindowDays:  days,
		Counts:      counts,
		Health:      analytics.ComputeHealthAndBottlenecks(counts),
		Comparison:  analytics.BuildMonthlyComparison(cur, prev, aggregate(curStats), aggregate(prevStats)),
		Highlights:  analytics.PickHighlights(locationStats(locations, all, curStats, prevStats)),
	}, nil
}

func onlyListed(stats []repository.LocationReviewStat, listed map[string]bool) []repository.LocationReviewStat {
	out := stats[:0:0]
	for _, st := range stats {
		if listed[st.LocationID] {
			out = append(out, st)
		}
	}
	return out
}

// aggregate 多门店合并，均分按评论数加权
func aggregate(stats []repository.LocationReviewStat) analytics.AggregatedCounts {
	var c analytics.AggregatedCounts
	var sum float64
	for _, st := range stats {
		c.TotalReviews += st.Total
		c.PendingReviews += st.Pending
		c.RepliedReviews += st.Replied
		sum += st.AvgRating * float64(st.Total)
	}
	if c.TotalReviews > 0 {
		c.AverageRating = sum / float64(c.TotalReviews)
	}
	return c
}

func countStale(locations []*model.Location, accountLastSync *time.Time, now time.Time) int {
	n := 0
	for _, l := range locations {
		if !l.IsActive {
			continue
		}
		last := l.LastSyncedAt
		if last == nil {
			last = accountLastSync
		}
		if last == nil || now.Sub(*last) > StaleAfter {
			n++
		}
	}
	return n
}

func indexStats(stats []repository.LocationReviewStat) map[string]repository.LocationReviewStat {
	m := make(map[string]repository.LocationReviewStat, len(stats))
	for _, st := range stats {
		m[st.LocationID] = st
	}
	return m
}

func locationStats(locations []*model.Location, all, cur, prev []repository.LocationReviewStat) []analytics.LocationStat {
	allBy, curBy, prevBy := indexStats(all), indexStats(cur), indexStats(prev)
	out := make([]analytics.LocationStat, 0, len(locations))
	for _, l := range locations {
		st := allBy[l.ID]
		ls := analytics.LocationStat{
			ID:             l.ID,
			Name:           l.LocationName,
			IsActive:       l.IsActive && !l.IsArchived,
			Rating:         st.AvgRating,
			ReviewCount:    st.Total,
			PendingReviews: st.Pending,
		}
		c, okCur := curBy[l.ID]
		p, okPrev := prevBy[l.ID]
		if okCur && okPrev && c.Total > 0 && p.Total > 0 {
			ls.HasTrend = true
			ls.RatingTrend = c.AvgRating - p.AvgRating
		}
		out = append(out, ls)
	}
	return out
}
