package updates

import "errors"

var (
	// ErrNotFound update 不存在，或存在但不属于调用者
	// 两种情况统一返回，避免向调用者泄露他人记录的存在性
	ErrNotFound = errors.New("update not found")

	// ErrTaskNotFound 序号越界：任务标识符指向的位置已不存在
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidArgument 非法入参：枚举外的优先级、空描述、坏日期等
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMutationFailed 写入竞争重试耗尽、存储写入失败，
	// 或定向变更时发现存量任务列表无法解码
	ErrMutationFailed = errors.New("task mutation failed")
)
