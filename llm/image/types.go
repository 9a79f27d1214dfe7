package image

import "context"

// TaskStatus 异步生图任务状态
type TaskStatus string

const (
	TaskSubmitted TaskStatus = "submitted"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Terminal 是否为终态
func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// Task 一次异步生图任务的快照
// ImageURL 仅在 Succeeded 时有值，Message 仅在 Failed 时有值。
type Task struct {
	ID       string     `json:"id"`
	Status   TaskStatus `json:"status"`
	ImageURL string     `json:"image_url,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// FetchFunc 查询一次任务状态（由具体平台执行器提供）
type FetchFunc func(ctx context.Context, taskID string) (*Task, error)
