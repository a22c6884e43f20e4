package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ========== Google Business Profile API 响应结构 ==========

// GoogleAccount GET mybusinessaccountmanagement v1 /accounts
type GoogleAccount struct {
	Name        string `json:"name"` // accounts/{id}
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

type GoogleAccountsPage struct {
	Accounts      []GoogleAccount `json:"accounts"`
	NextPageToken string          `json:"nextPageToken"`
}

// GoogleLocation mybusinessbusinessinformation v1 {account}/locations
type GoogleLocation struct {
	Name              string                 `json:"name"` // locations/{id}，不带 account 前缀
	Title             string                 `json:"title"`
	StorefrontAddress *GooglePostalAddress   `json:"storefrontAddress,omitempty"`
	PhoneNumbers      *GooglePhoneNumbers    `json:"phoneNumbers,omitempty"`
	Categories        *GoogleCategories      `json:"categories,omitempty"`
	WebsiteURI        string                 `json:"websiteUri"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Latlng            *GoogleLatLng          `json:"latlng,omitempty"`
	OpenInfo          map[string]interface{} `json:"openInfo,omitempty"`
}

type GooglePostalAddress struct {
	AddressLines       []string `json:"addressLines"`
	Locality           string   `json:"locality"`
	AdministrativeArea string   `json:"administrativeArea"`
	PostalCode         string   `json:"postalCode"`
	RegionCode         string   `json:"regionCode"`
}

type GooglePhoneNumbers struct {
	PrimaryPhone     string   `json:"primaryPhone"`
	AdditionalPhones []string `json:"additionalPhones"`
}

type GoogleCategories struct {
	PrimaryCategory *GoogleCategory `json:"primaryCategory,omitempty"`
}

type GoogleCategory struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type GoogleLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type GoogleLocationsPage struct {
	Locations     []GoogleLocation `json:"locations"`
	NextPageToken string           `json:"nextPageToken"`
}

// GoogleReview mybusiness v4 accounts/{a}/locations/{l}/reviews
type GoogleReview struct {
	Name        string             `json:"name"`
	ReviewID    string             `json:"reviewId"`
	Reviewer    GoogleReviewer     `json:"reviewer"`
	StarRating  string             `json:"starRating"` // ONE..FIVE / STAR_RATING_UNSPECIFIED
	Comment     string             `json:"comment"`
	CreateTime  string             `json:"createTime"`
	UpdateTime  string             `json:"updateTime"`
	ReviewReply *GoogleReviewReply `json:"reviewReply,omitempty"`
}

type GoogleReviewer struct {
	DisplayName     string `json:"displayName"`
	ProfilePhotoURL string `json:"profilePhotoUrl"`
	IsAnonymous     bool   `json:"isAnonymous"`
}

type GoogleReviewReply struct {
	Comment    string `json:"comment"`
	UpdateTime string `json:"updateTime"`
}

type GoogleReviewsPage struct {
	Reviews          []GoogleReview `json:"reviews"`
	AverageRating    float64        `json:"averageRating"`
	TotalReviewCount int            `json:"totalReviewCount"`
	NextPageToken    string         `json:"nextPageToken"`
}

// GoogleMediaItem mybusiness v4 accounts/{a}/locations/{l}/media
type GoogleMediaItem struct {
	Name                string                 `json:"name"`
	MediaFormat         string                 `json:"mediaFormat"` // PHOTO / VIDEO
	GoogleURL           string                 `json:"googleUrl"`
	ThumbnailURL        string                 `json:"thumbnailUrl"`
	CreateTime          string                 `json:"createTime"`
	SourceURL           string                 `json:"sourceUrl"`
	LocationAssociation map[string]interface{} `json:"locationAssociation,omitempty"`
	Dimensions          map[string]interface{} `json:"dimensions,omitempty"`
	Insights            map[string]interface{} `json:"insights,omitempty"`
}

type GoogleMediaPage struct {
	MediaItems          []GoogleMediaItem `json:"mediaItems"`
	TotalMediaItemCount int               `json:"totalMediaItemCount"`
	NextPageToken       string            `json:"nextPageToken"`
}

// ========== businessprofileperformance v1 ==========

type googleDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// MultiDailyMetricsResponse locations/{l}:fetchMultiDailyMetricsTimeSeries
type MultiDailyMetricsResponse struct {
	MultiDailyMetricTimeSeries []struct {
		DailyMetricTimeSeries []struct {
			DailyMetric        string                 `json:"dailyMetric"`
			DailySubEntityType map[string]interface{} `json:"dailySubEntityType,omitempty"`
			TimeSeries         struct {
				DatedValues []struct {
					Date  googleDate `json:"date"`
					Value string     `json:"value"` // int64 以字符串返回，缺省表示 0
				} `json:"datedValues"`
			} `json:"timeSeries"`
		} `json:"dailyMetricTimeSeries"`
	} `json:"multiDailyMetricTimeSeries"`
}

// DailyMetricPoint 拍平后的单个指标点
type DailyMetricPoint struct {
	MetricType    string
	MetricDate    Date
	MetricValue   int64
	SubEntityType string
}

// SearchKeywordCount locations/{l}/searchkeywords/impressions/monthly
type SearchKeywordCount struct {
	SearchKeyword string `json:"searchKeyword"`
	InsightsValue struct {
		Value     string `json:"value,omitempty"`
		Threshold string `json:"threshold,omitempty"`
	} `json:"insightsValue"`
}

type GoogleKeywordsPage struct {
	SearchKeywordsCounts []SearchKeywordCount `json:"searchKeywordsCounts"`
	NextPageToken        string               `json:"nextPageToken"`
}

// ========== 日期工具 ==========

// Date 不带时区的日历日期
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time 返回当天 00:00 UTC
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Month 年月
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// AddMonths 按月偏移（可为负）
func (m Month) AddMonths(n int) Month {
	return MonthOf(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

// Time 返回当月 1 日 00:00 UTC
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// RawJSON 把任意值序列化为 JSON，失败时返回 "{}"
func RawJSON(v interface{}) []byte {
	if v == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
