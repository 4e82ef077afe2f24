package syncer

import (
	"time"

	"github.com/GaolZiny/newshub/internal/fetcher"
)

// IsNew 判断候选文章的上游时间戳是否严格晚于增量水位。
// 这只是一个纯函数预判：真正的去重裁决靠存储层的 link 唯一约束，
// 所以返回 false 的候选不会被丢弃，只会在入库时记一次时钟偏移告警。
func IsNew(c fetcher.Candidate, watermark time.Time) bool {
	ts := c.CreatedAt
	if ts.IsZero() {
		ts = c.PublishedAt
	}
	if ts.IsZero() {
		// 上游没给时间戳，无从比较，一律当新数据查重
		return true
	}
	return ts.After(watermark)
}
