package repository

import (
	"errors"

	"gorm.io/gorm"
)

// BatchSize 单条 INSERT 最多携带的行数
const BatchSize = 100

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// dedupBy 按自然键去重，同键保留最后一条（同一批次里出现两次会让 ON CONFLICT 报错）
func dedupBy[T any](rows []*T, key func(*T) string) []*T {
	if len(rows) == 0 {
		return []*T{}
	}
	index := make(map[string]int, len(rows))
	out := make([]*T, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		k := key(r)
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// chunk 按 size 切分
func chunk[T any](rows []T, size int) [][]T {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]T
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
