// Package messaging 领域事件发布
//
// 事件在数据库事务提交之后发布，发布失败只记日志，不影响已提交的业务结果。
// RabbitMQ不可用时由熔断器快速失败，避免每个请求都等待连接超时。
package messaging

import (
	"context"

	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
)

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

// sender 底层发布者(*mq.Publisher)
type sender interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// BreakerPublisher 带熔断的发布者
type BreakerPublisher struct {
	sender  sender
	breaker *circuitbreaker.CircuitBreaker
}

// NewBreakerPublisher 创建带熔断的发布者
func NewBreakerPublisher(s sender, breaker *circuitbreaker.CircuitBreaker) *BreakerPublisher {
	return &BreakerPublisher{sender: s, breaker: breaker}
}

// Publish 发布事件，熔断打开时直接返回circuitbreaker.ErrOpenState
func (p *BreakerPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	err := p.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return p.sender.Publish(ctx, routingKey, event)
	})
	metrics.IncMessagePublished(routingKey, err)
	return err
}

// NopPublisher 未启用消息队列时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error {
	return nil
}
