package google

import "strings"

const (
	accountsPrefix  = "accounts/"
	locationsPrefix = "locations/"
)

// NormalizeAccountName 账号 ID 补全为 accounts/{id}
func NormalizeAccountName(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, accountsPrefix) {
		return id
	}
	return accountsPrefix + id
}

// LocationID 从任意形式的门店名中取出末段 ID
func LocationID(name string) string {
	if i := strings.LastIndex(name, locationsPrefix); i >= 0 {
		name = name[i+len(locationsPrefix):]
	}
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[:i]
	}
	return name
}

// BareLocationName locations/{id}，performance API 使用
func BareLocationName(name string) string {
	return locationsPrefix + LocationID(name)
}

// QualifiedLocationName accounts/{a}/locations/{l}，v4 评论/媒体接口使用。
// 已带 account 前缀时原样返回
func QualifiedLocationName(accountName, location string) string {
	if strings.HasPrefix(location, accountsPrefix) {
		return location
	}
	return NormalizeAccountName(accountName) + "/" + BareLocationName(location)
}

// LastSegment 资源名最后一段（媒体/评论的外部 ID）
func LastSegment(name string) string {
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
