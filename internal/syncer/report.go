package syncer

import (
	"fmt"
	"time"
)

// Report 是一轮同步的结果汇总。
// 运行期间只由引擎写入，Run 返回后不再变更。
type Report struct {
	Fetched         int `json:"fetched"`         // 各页拉到的候选总数（过滤前）
	Inserted        int `json:"inserted"`        // 新入库条数
	SkippedExisting int `json:"skippedExisting"` // link 已存在而跳过的条数
	Failed          int `json:"failed"`          // 单条失败数 + 拉取失败的页数
	SkewWarnings    int `json:"skewWarnings"`    // 时间戳落后于水位但仍入库的条数

	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	OK         bool      `json:"ok"`
	Message    string    `json:"message"`
}

func (r *Report) summarize() {
	r.Message = fmt.Sprintf("sync done: fetched=%d inserted=%d existed=%d failed=%d in %dms",
		r.Fetched, r.Inserted, r.SkippedExisting, r.Failed, r.DurationMs)
}
