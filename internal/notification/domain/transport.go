package domain

import "context"

// Transport 外部消息网关适配器
type Transport interface {
	// Send 发送一条消息，任何网关异常都在适配器内部转换为失败结果
	Send(ctx context.Context, address, body string) DispatchOutcome
	// IsConfigured 功能开关、默认目标与凭证是否齐全
	IsConfigured() bool
}
