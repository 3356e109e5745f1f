package quota

import (
	"errors"

	"github.com/gse-scraper/internal/credential"
)

// ErrExhausted 所有 key 均已封禁或达到当日上限
var ErrExhausted = errors.New("all keys are banned or have reached the daily quota")

// Selection 本次运行选中的凭据及其当前计数
type Selection struct {
	Credential credential.Credential
	Usage      int
}

// Select 按输入顺序选出第一个可用凭据，账本需已完成每日清零。
// 没有记录的凭据会在账本中以零计数创建并立即选中。
func Select(credentials []credential.Credential, ledger *Ledger) (Selection, error) {
	for _, c := range credentials {
		record, ok := ledger.Find(c.Key)
		if !ok {
			ledger.Ensure(c.Key)
			return Selection{Credential: c}, nil
		}

		if record.Usage.Exceeded() {
			continue
		}

		return Selection{Credential: c, Usage: record.Usage.Count()}, nil
	}

	return Selection{}, ErrExhausted
}
