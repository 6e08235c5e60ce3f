// Package transport 外发消息网关适配器
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// GatewayConfig 网关配置
type GatewayConfig struct {
	Enabled       bool
	DefaultTarget string
	Token         string
	Endpoint      string
	CountryCode string
	Timeout     time.Duration
	Breaker     BreakerConfig
}

// configured 启用且目标与凭证齐全
func (c GatewayConfig) configured() bool {
	return c.Enabled && c.DefaultTarget != "" && c.Token != ""
}

// BreakerConfig 熔断配置
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

type gatewayRequest struct {
	Instance string `json:"instance"`
	To       string `json:"to"`
	Body     string `json:"body"`
}

type gatewayResponse struct {
	Sent  *bool  `json:"sent"`
	Error string `json:"error"`
}

// errGatewayStatus 网关返回 5xx，计入熔断
type errGatewayStatus struct {
	code int
	body string
}

func (e *errGatewayStatus) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.code, e.body)
}

// HTTPGateway 基于 HTTP 的消息网关
type HTTPGateway struct {
	cfg     GatewayConfig
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	display domain.DisplayPolicy
}

// NewHTTPGateway 创建网关适配器
func NewHTTPGateway(cfg GatewayConfig) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	g := &HTTPGateway{
		cfg:     cfg,
		client:  client,
		display: domain.DisplayPolicy{CountryCode: cfg.CountryCode},
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notification-gateway",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			limit := cfg.Breaker.ConsecutiveFailures
			if limit == 0 {
				limit = 5
			}
			return counts.ConsecutiveFailures >= limit
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

// IsConfigured 实现 domain.Transport
func (g *HTTPGateway) IsConfigured() bool {
	return g.cfg.configured()
}

// Send 实现 domain.Transport，所有错误均转换为失败结果
func (g *HTTPGateway) Send(ctx context.Context, address, body string) domain.DispatchOutcome {
	to, err := g.display.Normalize(address)
	if err != nil {
		return domain.Failed(err.Error())
	}

	res, err := g.breaker.Execute(func() (any, error) {
		return g.post(ctx, gatewayRequest{Instance: g.cfg.DefaultTarget, To: to, Body: body})
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return domain.Failed(domain.DetailTimeout)
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return domain.Failed(fmt.Sprintf("gateway unavailable: %v", err))
		}
		logging.Warn(ctx, "gateway call failed", "address", to, "error", err)
		return domain.Failed(err.Error())
	}
	return res.(domain.DispatchOutcome)
}

// post 只有网络错误与 5xx 作为 error 返回，其余结果在 outcome 中体现
func (g *HTTPGateway) post(ctx context.Context, req gatewayRequest) (domain.DispatchOutcome, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(g.cfg.Token).
		SetBody(req).
		Post(g.cfg.Endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return domain.DispatchOutcome{}, ctx.Err()
		}
		return domain.DispatchOutcome{}, err
	}

	if resp.StatusCode() >= 500 {
		return domain.DispatchOutcome{}, &errGatewayStatus{code: resp.StatusCode(), body: truncate(resp.String(), 200)}
	}
	if !resp.IsSuccess() {
		return domain.Failed(fmt.Sprintf("gateway returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200))), nil
	}
	return interpret(resp.Body()), nil
}

// interpret 2xx 响应宽松解析：无法解析或缺少确认字段均视为成功，只有明确的否定才算失败
func interpret(body []byte) domain.DispatchOutcome {
	var r gatewayResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return domain.Succeeded(domain.DetailDelivered)
	}
	if r.Error != "" {
		return domain.Failed(r.Error)
	}
	if r.Sent != nil && !*r.Sent {
		return domain.Failed("gateway reported message not sent")
	}
	return domain.Succeeded(domain.DetailDelivered)
}

// truncate 按字符截断，不拆分多字节字符
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
