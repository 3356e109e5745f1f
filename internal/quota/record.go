package quota

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DailyLimit 每个 key 每天可用的请求次数
	DailyLimit = 100
	// ResetWindow 距上次使用超过该时长后计数清零
	ResetWindow = 24 * time.Hour

	bannedLiteral = "Banned"
)

// Usage 使用计数或封禁状态，封禁为终态
type Usage struct {
	count  int
	banned bool
}

// Banned 永久封禁
var Banned = Usage{banned: true}

// Count 返回计数状态
func Count(n int) Usage {
	if n < 0 {
		n = 0
	}
	return Usage{count: n}
}

// IsBanned 是否已封禁
func (u Usage) IsBanned() bool {
	return u.banned
}

// Count 当前计数，封禁时为 0
func (u Usage) Count() int {
	if u.banned {
		return 0
	}
	return u.count
}

// Exceeded 封禁或已达当日上限
func (u Usage) Exceeded() bool {
	return u.banned || u.count >= DailyLimit
}

// Remaining 当日剩余次数
func (u Usage) Remaining() int {
	if u.Exceeded() {
		return 0
	}
	return DailyLimit - u.count
}

func (u Usage) String() string {
	if u.banned {
		return bannedLiteral
	}
	return strconv.Itoa(u.count)
}

// ParseUsage 解析整数计数或 "Banned"
func ParseUsage(s string) (Usage, error) {
	s = strings.TrimSpace(s)
	if s == bannedLiteral {
		return Banned, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Usage{}, fmt.Errorf("invalid usage value: %q", s)
	}
	return Count(n), nil
}

// Record 单个 key 的配额记录
type Record struct {
	Key        string
	Usage      Usage
	LastUsedAt time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// FormatTimestamp 记录时间戳的写出格式
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseTimestamp 解析 ISO8601 时间戳，兼容不带时区的写法
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %q", s)
}
