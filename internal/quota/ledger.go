package quota

import (
	"time"
)

// Store 账本持久化，Save 总是整体替换
type Store interface {
	Load() ([]Record, error)
	Save(records []Record) error
	Close() error
}

// Ledger 内存中的配额账本，单写者使用
type Ledger struct {
	records []Record
}

// NewLedger 创建账本，重复 key 以后出现者为准
func NewLedger(records []Record) *Ledger {
	l := &Ledger{}
	for _, r := range records {
		l.Upsert(r.Key, r.Usage, r.LastUsedAt)
	}
	return l
}

// LoadLedger 从存储加载账本
func LoadLedger(store Store) (*Ledger, error) {
	records, err := store.Load()
	if err != nil {
		return nil, err
	}
	return NewLedger(records), nil
}

// Save 将全部记录写回存储
func (l *Ledger) Save(store Store) error {
	return store.Save(l.Records())
}

// Records 返回记录副本
func (l *Ledger) Records() []Record {
	result := make([]Record, len(l.records))
	copy(result, l.records)
	return result
}

// Len 记录数量
func (l *Ledger) Len() int {
	return len(l.records)
}

// Find 按 key 查找记录
func (l *Ledger) Find(key string) (Record, bool) {
	if i := l.index(key); i >= 0 {
		return l.records[i], true
	}
	return Record{}, false
}

// ResetExpired 对未封禁且距上次使用已满 24 小时的记录清零，返回清零条数
func (l *Ledger) ResetExpired(now time.Time) int {
	reset := 0
	for i := range l.records {
		r := &l.records[i]
		if r.Usage.IsBanned() {
			continue
		}
		if now.Sub(r.LastUsedAt) >= ResetWindow {
			r.Usage = Count(0)
			r.LastUsedAt = now
			reset++
		}
	}
	return reset
}

// Upsert 替换 key 对应的记录，不存在则追加
func (l *Ledger) Upsert(key string, usage Usage, ts time.Time) {
	record := Record{Key: key, Usage: usage, LastUsedAt: ts}
	if i := l.index(key); i >= 0 {
		l.records[i] = record
		return
	}
	l.records = append(l.records, record)
}

// RecordUsage 写入使用计数，已封禁的 key 保持封禁
func (l *Ledger) RecordUsage(key string, count int, ts time.Time) {
	if r, ok := l.Find(key); ok && r.Usage.IsBanned() {
		return
	}
	l.Upsert(key, Count(count), ts)
}

// TripQuota 当日配额用尽时把计数置为上限，已封禁的 key 保持封禁
func (l *Ledger) TripQuota(key string, ts time.Time) {
	l.RecordUsage(key, DailyLimit, ts)
}

// Ensure 返回 key 的记录，不存在时以零计数、最小时间创建
func (l *Ledger) Ensure(key string) Record {
	if r, ok := l.Find(key); ok {
		return r
	}
	l.Upsert(key, Count(0), time.Time{})
	r, _ := l.Find(key)
	return r
}

func (l *Ledger) index(key string) int {
	for i, r := range l.records {
		if r.Key == key {
			return i
		}
	}
	return -1
}
