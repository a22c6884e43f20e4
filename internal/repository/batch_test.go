package repository

import (
	"testing"
	"time"

	"GBPSync/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestDedupBy_KeepsLastPerKey(t *testing.T) {
	d := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []*model.PerformanceMetric{
		{LocationID: "l1", MetricDate: d, MetricType: "CALL_CLICKS", MetricValue: 1},
		{LocationID: "l1", MetricDate: d, MetricType: "WEBSITE_CLICKS", MetricValue: 2},
		nil,
		{LocationID: "l1", MetricDate: d, MetricType: "CALL_CLICKS", MetricValue: 3},
	}

	out := dedupBy(rows, metricKey)
	assert.Len(t, out, 2)
	assert.Equal(t, int64(3), out[0].MetricValue)
	assert.Equal(t, "WEBSITE_CLICKS", out[1].MetricType)

	assert.Empty(t, dedupBy([]*model.PerformanceMetric{}, metricKey))
}

func TestChunk(t *testing.T) {
	rows := make([]int, 250)
	parts := chunk(rows, BatchSize)
	assert.Len(t, parts, 3)
	assert.Len(t, parts[0], 100)
	assert.Len(t, parts[2], 50)

	assert.Empty(t, chunk([]int{}, 10))
	assert.Len(t, chunk([]int{1, 2, 3}, 0), 1)
}

func TestKeywordKey_MonthGranularity(t *testing.T) {
	a := &model.SearchKeyword{LocationID: "l", SearchKeyword: "pizza", MonthYear: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	b := &model.SearchKeyword{LocationID: "l", SearchKeyword: "pizza", MonthYear: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	assert.NotEqual(t, keywordKey(a), keywordKey(b))
}
