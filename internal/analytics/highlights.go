package analytics

// LocationStat 门店维度输入
type LocationStat struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	IsActive       bool    `json:"is_active"`
	Rating         float64 `json:"rating"`
	ReviewCount    int     `json:"review_count"`
	PendingReviews int     `json:"pending_reviews"`
	RatingTrend    float64 `json:"rating_trend"` // 本期均分减上期均分
	HasTrend       bool    `json:"has_trend"`    // 两期都有评论时为 true
}

type Highlights struct {
	TopPerformer   *LocationStat `json:"top_performer,omitempty"`
	NeedsAttention *LocationStat `json:"needs_attention,omitempty"`
	MostImproved   *LocationStat `json:"most_improved,omitempty"`
}

// PickHighlights 每个门店最多出现在一个分类里；所有门店都没有评论时仍给出一个活跃门店作为 top
func PickHighlights(stats []LocationStat) Highlights {
	var h Highlights
	used := make(map[string]bool)

	active := make([]*LocationStat, 0, len(stats))
	anyReviews := false
	for i := range stats {
		if !stats[i].IsActive {
			continue
		}
		active = append(active, &stats[i])
		if stats[i].ReviewCount > 0 {
			anyReviews = true
		}
	}
	if len(active) == 0 {
		return h
	}

	if !anyReviews {
		top := *active[0]
		h.TopPerformer = &top
		return h
	}

	var best *LocationStat
	for _, s := range active {
		if s.ReviewCount == 0 {
			continue
		}
		if best == nil || s.Rating > best.Rating || (s.Rating == best.Rating && s.ReviewCount > best.ReviewCount) {
			best = s
		}
	}
	if best != nil {
		used[best.ID] = true
		v := *best
		h.TopPerformer = &v
	}

	var attention *LocationStat
	for _, s := range active {
		if used[s.ID] || s.PendingReviews == 0 {
			continue
		}
		if attention == nil || s.PendingReviews > attention.PendingReviews ||
			(s.PendingReviews == attention.PendingReviews && s.Rating < attention.Rating) {
			attention = s
		}
	}
	if attention != nil {
		used[attention.ID] = true
		v := *attention
		h.NeedsAttention = &v
	}

	var improved *LocationStat
	for _, s := range active {
		if used[s.ID] || !s.HasTrend || s.RatingTrend <= 0 {
			continue
		}
		if improved == nil || s.RatingTrend > improved.RatingTrend {
			improved = s
		}
	}
	if improved != nil {
		v := *improved
		h.MostImproved = &v
	}
	return h
}
