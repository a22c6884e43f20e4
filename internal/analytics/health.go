// Package analytics 概览页的派生指标：健康分、瓶颈、环比与门店高亮。
// 只依赖传入的聚合数据，不做任何 I/O。
package analytics

import (
	"fmt"
	"sort"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// 瓶颈分类
const (
	CategoryReviews   = "Reviews"
	CategoryQuestions = "Questions"
	CategoryGeneral   = "General"
	CategoryResponses = "Responses"
	CategorySync      = "Sync"
)

// 扣分规则
const (
	pendingPenalty      = 2
	pendingPenaltyCap   = 20
	questionPenalty     = 3
	questionPenaltyCap  = 10
	lowRatingPenalty    = 15
	lowRatingThreshold  = 4.0
	lowRatingMinReviews = 10
	responsePenalty     = 10
	responseThreshold   = 80.0
	responseMinReviews  = 5
	stalePenalty        = 2
	stalePenaltyCap     = 10
)

// AggregatedCounts 账号维度的聚合输入
type AggregatedCounts struct {
	TotalReviews        int     `json:"total_reviews"`
	AverageRating       float64 `json:"average_rating"`
	PendingReviews      int     `json:"pending_reviews"`
	RepliedReviews      int     `json:"replied_reviews"`
	UnansweredQuestions int     `json:"unanswered_questions"`
	StaleLocations      int     `json:"stale_locations"`
	TotalLocations      int     `json:"total_locations"`
}

// ResponseRate 已回复占比（百分比），无评论时为 0
func (c AggregatedCounts) ResponseRate() float64 {
	if c.TotalReviews <= 0 {
		return 0
	}
	return float64(c.RepliedReviews) / float64(c.TotalReviews) * 100
}

type Bottleneck struct {
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
	Penalty  int      `json:"penalty"`
	Message  string   `json:"message"`
}

type HealthReport struct {
	Score       int          `json:"score"`
	Bottlenecks []Bottleneck `json:"bottlenecks"`
}

func capped(n, each, limit int) int {
	p := n * each
	if p > limit {
		return limit
	}
	return p
}

func tiered(n, high, medium int) Severity {
	switch {
	case n > high:
		return SeverityHigh
	case n > medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ComputeHealthAndBottlenecks 100 分起扣，每条扣分项对应一个瓶颈，按严重程度降序
func ComputeHealthAndBottlenecks(c AggregatedCounts) HealthReport {
	score := 100
	bottlenecks := make([]Bottleneck, 0, 5)

	if c.PendingReviews > 0 {
		p := capped(c.PendingReviews, pendingPenalty, pendingPenaltyCap)
		score -= p
		bottlenecks = append(bottlenecks, Bottleneck{
			Category: CategoryReviews,
			Severity: tiered(c.PendingReviews, 10, 5),
			Count:    c.PendingReviews,
			Penalty:  p,
			Message:  fmt.Sprintf("%d reviews are waiting for a reply", c.PendingReviews),
		})
	}

	if c.UnansweredQuestions > 0 {
		p := capped(c.UnansweredQuestions, questionPenalty, questionPenaltyCap)
		score -= p
		bottlenecks = append(bottlenecks, Bottleneck{
			Category: CategoryQuestions,
			Severity: tiered(c.UnansweredQuestions, 5, 2),
			Count:    c.UnansweredQuestions,
			Penalty:  p,
			Message:  fmt.Sprintf("%d customer questions are unanswered", c.UnansweredQuestions),
		})
	}

	// 阈值看的是聚合后的评论总数，不是单门店
	if c.TotalReviews > lowRatingMinReviews && c.AverageRating < lowRatingThreshold {
		score -= lowRatingPenalty
		sev := SeverityMedium
		if c.AverageRating < 3.5 {
			sev = SeverityHigh
		}
		bottlenecks = append(bottlenecks, Bottleneck{
			Category: CategoryGeneral,
			Severity: sev,
			Count:    c.TotalReviews,
			Penalty:  lowRatingPenalty,
			Message:  fmt.Sprintf("Average rating %.1f is below %.1f", c.AverageRating, lowRatingThreshold),
		})
	}

	if c.TotalReviews > responseMinReviews {
		if rate := c.ResponseRate(); rate < responseThreshold {
			score -= responsePenalty
			sev := SeverityMedium
			if rate < 50 {
				sev = SeverityHigh
			}
			bottlenecks = append(bottlenecks, Bottleneck{
				Category: CategoryResponses,
				Severity: sev,
				Count:    c.TotalReviews - c.RepliedReviews,
				Penalty:  responsePenalty,
				Message:  fmt.Sprintf("Response rate %.0f%% is below %.0f%%", rate, responseThreshold),
			})
		}
	}

	if c.StaleLocations > 0 {
		p := capped(c.StaleLocations, stalePenalty, stalePenaltyCap)
		score -= p
		bottlenecks = append(bottlenecks, Bottleneck{
			Category: CategorySync,
			Severity: tiered(c.StaleLocations, 5, 2),
			Count:    c.StaleLocations,
			Penalty:  p,
			Message:  fmt.Sprintf("%d locations have not synced in the last 24 hours", c.StaleLocations),
		})
	}

	sort.SliceStable(bottlenecks, func(i, j int) bool {
		return bottlenecks[i].Severity.rank() > bottlenecks[j].Severity.rank()
	})

	return HealthReport{Score: clamp(score, 0, 100), Bottlenecks: bottlenecks}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
