package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// LocationMetadata 门店的平台元数据（自由结构 JSON），只为已知的可选字段提供访问器，缺 key 时返回零值
type LocationMetadata map[string]interface{}

// ParseLocationMetadata 解析失败或为空时返回空 map
func ParseLocationMetadata(raw datatypes.JSON) LocationMetadata {
	md := LocationMetadata{}
	if len(raw) == 0 {
		return md
	}
	if err := json.Unmarshal(raw, &md); err != nil {
		return LocationMetadata{}
	}
	return md
}

func (m LocationMetadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m LocationMetadata) Bool(key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

func (m LocationMetadata) Float(key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}

func (m LocationMetadata) PlaceID() string      { return m.String("placeId") }
func (m LocationMetadata) MapsURI() string      { return m.String("mapsUri") }
func (m LocationMetadata) NewReviewURI() string { return m.String("newReviewUri") }

// HasVoiceOfMerchant 是否已验证商家身份
func (m LocationMetadata) HasVoiceOfMerchant() bool { return m.Bool("hasVoiceOfMerchant") }

// LatLng 经纬度，写入时放在 latitude/longitude 两个 key 下
func (m LocationMetadata) LatLng() (lat, lng float64, ok bool) {
	lat, ok1 := m.Float("latitude")
	lng, ok2 := m.Float("longitude")
	return lat, lng, ok1 && ok2
}

// JSON 序列化回 datatypes.JSON
func (m LocationMetadata) JSON() datatypes.JSON {
	return datatypes.JSON(RawJSON(map[string]interface{}(m)))
}
