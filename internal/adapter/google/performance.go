package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"GBPSync/internal/model"

	"github.com/sirupsen/logrus"
)

// DailyMetrics 每次同步拉取的每日指标
var DailyMetrics = []string{
	"BUSINESS_IMPRESSIONS_DESKTOP_MAPS",
	"BUSINESS_IMPRESSIONS_DESKTOP_SEARCH",
	"BUSINESS_IMPRESSIONS_MOBILE_MAPS",
	"BUSINESS_IMPRESSIONS_MOBILE_SEARCH",
	"BUSINESS_CONVERSATIONS",
	"BUSINESS_DIRECTION_REQUESTS",
	"CALL_CLICKS",
	"WEBSITE_CLICKS",
	"BUSINESS_BOOKINGS",
	"BUSINESS_FOOD_ORDERS",
	"BUSINESS_FOOD_MENU_CLICKS",
}

func setDate(q url.Values, prefix string, d model.Date) {
	q.Set(prefix+".year", strconv.Itoa(d.Year))
	q.Set(prefix+".month", strconv.Itoa(int(d.Month)))
	q.Set(prefix+".day", strconv.Itoa(d.Day))
}

// FetchDailyMetrics locations/{l}:fetchMultiDailyMetricsTimeSeries，一次请求取全部指标后拍平
func (a *Adapter) FetchDailyMetrics(ctx context.Context, accessToken, locationID string, start, end model.Date, metrics []string) ([]model.DailyMetricPoint, error) {
	if len(metrics) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, m := range metrics {
		q.Add("dailyMetrics", m)
	}
	setDate(q, "dailyRange.startDate", start)
	setDate(q, "dailyRange.endDate", end)

	name := BareLocationName(locationID)
	var resp model.MultiDailyMetricsResponse
	err := a.do(ctx, http.MethodGet, withQuery(a.cfg.PerformanceURL, name+":fetchMultiDailyMetricsTimeSeries", q), accessToken, nil, &resp)
	if err != nil {
		if a.degrade("performance_metrics", err, logrus.Fields{"location_id": name}) {
			return []model.DailyMetricPoint{}, nil
		}
		return nil, fmt.Errorf("获取每日指标失败(%s): %w", name, err)
	}
	return flattenDailyMetrics(&resp, a.logger), nil
}

// flattenDailyMetrics 按 metric → 日期 展开为扁平点位；value 缺省为 0
func flattenDailyMetrics(resp *model.MultiDailyMetricsResponse, logger *logrus.Logger) []model.DailyMetricPoint {
	points := make([]model.DailyMetricPoint, 0)
	for _, multi := range resp.MultiDailyMetricTimeSeries {
		for _, series := range multi.DailyMetricTimeSeries {
			sub := subEntityType(series.DailySubEntityType)
			for _, dv := range series.TimeSeries.DatedValues {
				if dv.Date.Year == 0 || dv.Date.Month == 0 || dv.Date.Day == 0 {
					continue
				}
				var value int64
				if dv.Value != "" {
					v, err := strconv.ParseInt(dv.Value, 10, 64)
					if err != nil {
						logger.WithError(err).WithField("metric", series.DailyMetric).Warn("指标值解析失败，跳过")
						continue
					}
					value = v
				}
				points = append(points, model.DailyMetricPoint{
					MetricType:    series.DailyMetric,
					MetricDate:    model.Date{Year: dv.Date.Year, Month: time.Month(dv.Date.Month), Day: dv.Date.Day},
					MetricValue:   value,
					SubEntityType: sub,
				})
			}
		}
	}
	return points
}

// subEntityType 取子实体分类的第一个 key（如 dayOfWeek / timeOfDay）
func subEntityType(m map[string]interface{}) string {
	for k := range m {
		return k
	}
	return ""
}
