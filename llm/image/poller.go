package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/artspark/types"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultPollTimeout  = 180 * time.Second
)

// Poller 提交后轮询的公共状态机，两个平台共用
//
// 提交后立即查询一次，之后按固定间隔查询，直到 Succeeded / Failed
// 或超过总预算。查询出错立即返回，不重试。
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
	// Provider 写入错误的 provider 字段
	Provider string
	// OnPoll 每次查询后回调（指标统计用），可为 nil
	OnPoll func(task *Task)
}

// Wait 轮询直到任务进入终态
func (p Poller) Wait(ctx context.Context, taskID string, fetch FetchFunc) (*Task, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	budget := p.Timeout
	if budget <= 0 {
		budget = defaultPollTimeout
	}

	pollCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, err := fetch(pollCtx, taskID)
		if err != nil {
			if ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
				return nil, p.timeoutError(taskID, budget)
			}
			return nil, err
		}
		if p.OnPoll != nil {
			p.OnPoll(task)
		}

		switch task.Status {
		case TaskSucceeded:
			if task.ImageURL == "" {
				return nil, types.NewUpstreamError(p.Provider,
					fmt.Sprintf("task %s succeeded without a result url", taskID), nil)
			}
			return task, nil
		case TaskFailed:
			msg := task.Message
			if msg == "" {
				msg = "unknown error"
			}
			return nil, types.NewUpstreamError(p.Provider,
				fmt.Sprintf("task %s failed: %s", taskID, msg), nil)
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, p.timeoutError(taskID, budget)
		case <-ticker.C:
		}
	}
}

func (p Poller) timeoutError(taskID string, budget time.Duration) *types.Error {
	return types.NewTimeoutError(p.Provider,
		fmt.Sprintf("task %s did not finish within %s", taskID, budget))
}
