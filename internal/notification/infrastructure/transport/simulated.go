package transport

import (
	"context"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// SimulatedTransport 模拟网关，配置齐全时不发出请求直接返回成功
type SimulatedTransport struct {
	cfg GatewayConfig
}

// NewSimulatedTransport 创建模拟网关，配置校验与 HTTPGateway 一致
func NewSimulatedTransport(cfg GatewayConfig) *SimulatedTransport {
	return &SimulatedTransport{cfg: cfg}
}

// Send 记录日志后返回模拟成功
func (s *SimulatedTransport) Send(ctx context.Context, address, body string) domain.DispatchOutcome {
	logging.Info(ctx, "simulating notification delivery",
		"target", s.cfg.DefaultTarget,
		"address", address,
		"body_length", len(body),
	)
	return domain.Succeeded(domain.DetailSimulated)
}

// IsConfigured 实现 domain.Transport
func (s *SimulatedTransport) IsConfigured() bool { return s.cfg.configured() }
