package engine

import (
	"fmt"
)

// State 单个查询的处理状态
type State int

const (
	StateStart State = iota
	StateFirstPageFetched
	StatePaginating
	StateQuotaTripped
	StateBanned
	StateTransientFailure
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateFirstPageFetched:
		return "first_page_fetched"
	case StatePaginating:
		return "paginating"
	case StateQuotaTripped:
		return "quota_tripped"
	case StateBanned:
		return "banned"
	case StateTransientFailure:
		return "transient_failure"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Abandoned 查询被放弃（配额触发、封禁或临时失败）
func (s State) Abandoned() bool {
	return s == StateQuotaTripped || s == StateBanned || s == StateTransientFailure
}

// Event 驱动状态转换的事件
type Event int

const (
	// EventResponse 首页收到响应（尚未分类）
	EventResponse Event = iota
	// EventPageOK 页面成功解析
	EventPageOK
	// EventQuotaExceeded 接口错误码 429
	EventQuotaExceeded
	// EventForbidden 接口错误码 403
	EventForbidden
	// EventFailure 传输失败、非 2xx 或无法解析
	EventFailure
	// EventBoundReached 已取完计算出的页数
	EventBoundReached
	// EventFinish 放弃的查询收尾
	EventFinish
)

func (e Event) String() string {
	switch e {
	case EventResponse:
		return "response"
	case EventPageOK:
		return "page_ok"
	case EventQuotaExceeded:
		return "quota_exceeded"
	case EventForbidden:
		return "forbidden"
	case EventFailure:
		return "failure"
	case EventBoundReached:
		return "bound_reached"
	case EventFinish:
		return "finish"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Transition 状态转换函数，非法转换返回错误
func Transition(s State, e Event) (State, error) {
	switch s {
	case StateStart:
		switch e {
		case EventResponse:
			return StateFirstPageFetched, nil
		case EventFailure:
			return StateTransientFailure, nil
		}
	case StateFirstPageFetched, StatePaginating:
		switch e {
		case EventPageOK:
			return StatePaginating, nil
		case EventQuotaExceeded:
			return StateQuotaTripped, nil
		case EventForbidden:
			return StateBanned, nil
		case EventFailure:
			return StateTransientFailure, nil
		case EventBoundReached:
			if s == StatePaginating {
				return StateDone, nil
			}
		}
	case StateQuotaTripped, StateBanned, StateTransientFailure:
		if e == EventFinish {
			return StateDone, nil
		}
	}

	return s, fmt.Errorf("invalid transition from %s on %s", s, e)
}
