// Package normalize 把 Google 返回的各类 JSON 结构映射为固定的行结构。
// 校验不过的记录直接丢弃，不当作错误。
package normalize

import (
	"strconv"
	"strings"
	"time"

	"GBPSync/internal/adapter/google"
	"GBPSync/internal/model"

	"gorm.io/datatypes"
)

var starRatings = map[string]int{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// StarRating 星级枚举或数字字符串 → 1..5，其它返回 false
func StarRating(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n, ok := starRatings[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}

// Sentiment 由星级推导
func Sentiment(rating int) string {
	switch {
	case rating >= 4:
		return model.SentimentPositive
	case rating == 3:
		return model.SentimentNeutral
	default:
		return model.SentimentNegative
	}
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func formatAddress(a *model.GooglePostalAddress) string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, len(a.AddressLines)+3)
	for _, l := range a.AddressLines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	for _, p := range []string{a.Locality, a.AdministrativeArea, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Location 门店；metadata 合并平台 metadata、经纬度与营业状态
func Location(accountID string, g model.GoogleLocation, now time.Time) (*model.Location, bool) {
	if g.Name == "" {
		return nil, false
	}
	md := model.LocationMetadata{}
	for k, v := range g.Metadata {
		md[k] = v
	}
	if g.Latlng != nil {
		md["latitude"] = g.Latlng.Latitude
		md["longitude"] = g.Latlng.Longitude
	}
	if status, ok := g.OpenInfo["status"]; ok {
		md["openStatus"] = status
	}

	loc := &model.Location{
		AccountID:          accountID,
		ExternalLocationID: google.BareLocationName(g.Name),
		LocationName:       strings.TrimSpace(g.Title),
		Address:            formatAddress(g.StorefrontAddress),
		Website:            g.WebsiteURI,
		Metadata:           md.JSON(),
		IsActive:           true,
		IsArchived:         false,
		LastSyncedAt:       &now,
	}
	if loc.LocationName == "" {
		loc.LocationName = loc.ExternalLocationID
	}
	if g.PhoneNumbers != nil {
		loc.Phone = g.PhoneNumbers.PrimaryPhone
	}
	if g.Categories != nil && g.Categories.PrimaryCategory != nil {
		loc.Category = g.Categories.PrimaryCategory.DisplayName
	}
	return loc, true
}

// Review 星级越界或缺少 ID 的评论返回 false
func Review(accountID, locationID string, g model.GoogleReview) (*model.Review, bool) {
	rating, ok := StarRating(g.StarRating)
	if !ok {
		return nil, false
	}
	externalID := g.ReviewID
	if externalID == "" {
		externalID = google.LastSegment(g.Name)
	}
	if externalID == "" {
		return nil, false
	}

	reviewDate, ok := parseTime(g.CreateTime)
	if !ok {
		reviewDate, ok = parseTime(g.UpdateTime)
	}
	if !ok {
		return nil, false
	}

	sentiment := Sentiment(rating)
	r := &model.Review{
		LocationID:       locationID,
		AccountID:        accountID,
		ExternalReviewID: externalID,
		ReviewName:       g.Name,
		ReviewerName:     g.Reviewer.DisplayName,
		Rating:           rating,
		ReviewText:       g.Comment,
		ReviewDate:       reviewDate,
		Status:           model.ReviewStatusPending,
		Sentiment:        &sentiment,
	}
	if r.ReviewerName == "" && g.Reviewer.IsAnonymous {
		r.ReviewerName = "Anonymous"
	}
	if g.ReviewReply != nil && strings.TrimSpace(g.ReviewReply.Comment) != "" {
		reply := g.ReviewReply.Comment
		r.ReplyText = &reply
		r.HasReply = true
		r.Status = model.ReviewStatusReplied
		if t, ok := parseTime(g.ReviewReply.UpdateTime); ok {
			r.ReplyDate = &t
		}
	}
	return r, true
}

// Reviews 批量转换，丢弃无效记录
func Reviews(accountID, locationID string, in []model.GoogleReview) []*model.Review {
	out := make([]*model.Review, 0, len(in))
	for _, g := range in {
		if r, ok := Review(accountID, locationID, g); ok {
			out = append(out, r)
		}
	}
	return out
}

// MediaItem 外部 ID 取资源名末段
func MediaItem(locationID string, g model.GoogleMediaItem) (*model.MediaItem, bool) {
	externalID := google.LastSegment(g.Name)
	if externalID == "" {
		return nil, false
	}
	m := &model.MediaItem{
		LocationID:      locationID,
		ExternalMediaID: externalID,
		MediaType:       strings.ToLower(g.MediaFormat),
		URL:             g.GoogleURL,
		ThumbnailURL:    g.ThumbnailURL,
		Metadata: datatypes.JSON(model.RawJSON(map[string]interface{}{
			"name":                g.Name,
			"sourceUrl":           g.SourceURL,
			"locationAssociation": g.LocationAssociation,
			"dimensions":          g.Dimensions,
			"insights":            g.Insights,
		})),
	}
	if cat, ok := g.LocationAssociation["category"].(string); ok {
		m.Category = strings.ToLower(cat)
	}
	if t, ok := parseTime(g.CreateTime); ok {
		m.ExternalCreatedAt = &t
	}
	return m, true
}

func MediaItems(locationID string, in []model.GoogleMediaItem) []*model.MediaItem {
	out := make([]*model.MediaItem, 0, len(in))
	for _, g := range in {
		if m, ok := MediaItem(locationID, g); ok {
			out = append(out, m)
		}
	}
	return out
}

// PerformanceMetrics 负值视为无效
func PerformanceMetrics(locationID string, points []model.DailyMetricPoint) []*model.PerformanceMetric {
	out := make([]*model.PerformanceMetric, 0, len(points))
	for _, p := range points {
		if p.MetricType == "" || p.MetricValue < 0 {
			continue
		}
		m := &model.PerformanceMetric{
			LocationID:  locationID,
			MetricDate:  p.MetricDate.Time(),
			MetricType:  p.MetricType,
			MetricValue: p.MetricValue,
		}
		if p.SubEntityType != "" {
			sub := p.SubEntityType
			m.SubEntityType = &sub
		}
		out = append(out, m)
	}
	return out
}

// SearchKeywords 精确值与阈值都保留，阈值时 IsThresholded=true
func SearchKeywords(locationID string, month model.Month, in []model.SearchKeywordCount) []*model.SearchKeyword {
	out := make([]*model.SearchKeyword, 0, len(in))
	for _, k := range in {
		keyword := strings.TrimSpace(k.SearchKeyword)
		if keyword == "" {
			continue
		}
		row := &model.SearchKeyword{
			LocationID:    locationID,
			SearchKeyword: keyword,
			MonthYear:     month.Time(),
		}
		switch {
		case k.InsightsValue.Value != "":
			n, err := strconv.ParseInt(k.InsightsValue.Value, 10, 64)
			if err != nil {
				continue
			}
			row.ImpressionsCount = n
		case k.InsightsValue.Threshold != "":
			n, err := strconv.ParseInt(k.InsightsValue.Threshold, 10, 64)
			if err != nil {
				continue
			}
			row.ImpressionsCount = n
			row.IsThresholded = true
		default:
			continue
		}
		out = append(out, row)
	}
	return out
}
