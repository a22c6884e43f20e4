package analytics

import (
	"math"
	"time"
)

// CalculatePercentChange 上期为 0 时：本期也为 0 返回 0，否则返回 100
func CalculatePercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - previous) / math.Abs(previous) * 100
}

// Window 左闭右开时间窗口 [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DefaultWindowDays 未指定时的窗口长度
const DefaultWindowDays = 30

// ComparisonWindows 本期为截至 now 的最近 days 天，上期为紧邻其前的 days 天
func ComparisonWindows(now time.Time, days int) (current, previous Window) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	span := time.Duration(days) * 24 * time.Hour
	current = Window{Start: now.Add(-span), End: now}
	previous = Window{Start: current.Start.Add(-span), End: current.Start}
	return current, previous
}

// Comparison 单项指标环比
type Comparison struct {
	Current       float64 `json:"current"`
	Previous      float64 `json:"previous"`
	ChangePercent float64 `json:"change_percent"`
}

func Compare(current, previous float64) Comparison {
	return Comparison{
		Current:       current,
		Previous:      previous,
		ChangePercent: math.Round(CalculatePercentChange(current, previous)*10) / 10,
	}
}

// MonthlyComparison 概览页的环比块
type MonthlyComparison struct {
	CurrentWindow  Window     `json:"current_window"`
	PreviousWindow Window     `json:"previous_window"`
	Reviews        Comparison `json:"reviews"`
	AverageRating  Comparison `json:"average_rating"`
	ResponseRate   Comparison `json:"response_rate"`
}

// BuildMonthlyComparison 由两个窗口的聚合结果生成环比
func BuildMonthlyComparison(current, previous Window, cur, prev AggregatedCounts) MonthlyComparison {
	return MonthlyComparison{
		CurrentWindow:  current,
		PreviousWindow: previous,
		Reviews:        Compare(float64(cur.TotalReviews), float64(prev.TotalReviews)),
		AverageRating:  Compare(round2(cur.AverageRating), round2(prev.AverageRating)),
		ResponseRate:   Compare(round2(cur.ResponseRate()), round2(prev.ResponseRate())),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
