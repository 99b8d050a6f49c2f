// Package metrics Prometheus指标
//
// # 指标分组
//
//  1. HTTP：请求总数、耗时、处理中的请求数（由middleware.Metrics记录）
//  2. 借阅：借阅/归还结果计数、事务耗时、锁冲突重试次数、逾期未还数量
//  3. 熔断器：状态、请求结果
//  4. Saga：执行结果、补偿次数
//  5. 消息队列：发布结果
//
// # 使用示例
//
//	metrics.InitMetrics()
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	start := time.Now()
//	_, err := engine.Borrow(ctx, req)
//	metrics.ObserveLending("borrow", metrics.ResultOf(err), time.Since(start))
//
// # 命名规范
//
//   - Counter以`_total`结尾
//   - Histogram以单位结尾（`_seconds`）
//   - 标签只使用有限取值（operation/result/method），不要用book_id、user_id做标签
//
// 未调用InitMetrics时，记录函数直接返回（单元测试无需注册指标）
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

const namespace = "library"

var (
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数（Counter）
	// 标签：method（GET/POST）、path（路由模板）、status（200/409）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时（Histogram）
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数（Gauge）
	HTTPRequestsInProgress prometheus.Gauge

	// 借阅业务指标

	// LendingOperationsTotal 借阅/归还次数（Counter）
	// 标签：operation（borrow/return）、result（success/insufficient_stock/already_borrowed/...）
	LendingOperationsTotal *prometheus.CounterVec

	// LendingDuration 借阅/归还事务耗时（Histogram）
	LendingDuration *prometheus.HistogramVec

	// LockConflictRetriesTotal 行锁冲突重试次数（Counter）
	LockConflictRetriesTotal *prometheus.CounterVec

	// OverdueLoans 当前逾期未还数量（Gauge，由逾期扫描任务设置）
	OverdueLoans prometheus.Gauge

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（Gauge）
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数（Counter）
	// 标签：name（熔断器名称）、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// Saga指标

	// SagaExecutionsTotal Saga执行总数（Counter）
	// 标签：saga（名称）、result（success/failure）
	SagaExecutionsTotal *prometheus.CounterVec

	// SagaCompensationsTotal Saga补偿执行总数（Counter）
	SagaCompensationsTotal *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数（Counter）
	// 标签：routing_key、result（success/failure）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 注册所有指标到默认Registry（重复调用安全）
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP请求总数",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP请求耗时（秒）",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		)

		HTTPRequestsInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_progress",
				Help:      "正在处理的HTTP请求数",
			},
		)

		LendingOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lending_operations_total",
				Help:      "借阅/归还操作总数",
			},
			[]string{"operation", "result"},
		)

		LendingDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lending_duration_seconds",
				Help:      "借阅/归还事务耗时（秒），包含锁等待",
				// 行锁等待可能较长，桶覆盖到5秒
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		)

		LockConflictRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_conflict_retries_total",
				Help:      "行锁冲突后的事务重试次数",
			},
			[]string{"operation"},
		)

		OverdueLoans = promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "overdue_loans",
				Help:      "当前逾期未还的借阅数量",
			},
		)

		CircuitBreakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
			},
			[]string{"name"},
		)

		CircuitBreakerRequests = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "熔断器请求总数",
			},
			[]string{"name", "result"},
		)

		SagaExecutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saga_executions_total",
				Help:      "Saga执行总数",
			},
			[]string{"saga", "result"},
		)

		SagaCompensationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saga_compensations_total",
				Help:      "Saga补偿执行总数",
			},
			[]string{"saga"},
		)

		MessagesPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_published_total",
				Help:      "消息发布总数",
			},
			[]string{"routing_key", "result"},
		)
	})
}

// ResultOf 将错误归类为有限取值的result标签
func ResultOf(err error) string {
	if err == nil {
		return "success"
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return "error"
	}
	switch appErr.Code {
	case apperrors.ErrCodeInsufficientStock:
		return "insufficient_stock"
	case apperrors.ErrCodeAlreadyBorrowed:
		return "already_borrowed"
	case apperrors.ErrCodeNoActiveBorrow:
		return "no_active_borrow"
	case apperrors.ErrCodeInvalidState:
		return "invalid_state"
	case apperrors.ErrCodeLockConflict:
		return "lock_conflict"
	case apperrors.ErrCodeInvalidParams:
		return "invalid_request"
	}
	if apperrors.HTTPStatus(appErr.Code) == 404 {
		return "not_found"
	}
	return "error"
}

// ObserveLending 记录一次借阅/归还
func ObserveLending(operation, result string, elapsed time.Duration) {
	if LendingOperationsTotal == nil {
		return
	}
	LendingOperationsTotal.WithLabelValues(operation, result).Inc()
	LendingDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// IncLockConflictRetry 记录一次锁冲突重试
func IncLockConflictRetry(operation string) {
	if LockConflictRetriesTotal == nil {
		return
	}
	LockConflictRetriesTotal.WithLabelValues(operation).Inc()
}

// SetOverdueLoans 设置逾期数量
func SetOverdueLoans(n int) {
	if OverdueLoans == nil {
		return
	}
	OverdueLoans.Set(float64(n))
}

// SetBreakerState 设置熔断器状态
func SetBreakerState(name string, state int) {
	if CircuitBreakerState == nil {
		return
	}
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// IncBreakerRequest 记录熔断器请求结果
func IncBreakerRequest(name, result string) {
	if CircuitBreakerRequests == nil {
		return
	}
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// ObserveSaga 记录Saga执行结果
func ObserveSaga(name string, err error) {
	if SagaExecutionsTotal == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	SagaExecutionsTotal.WithLabelValues(name, result).Inc()
}

// IncSagaCompensation 记录一次补偿
func IncSagaCompensation(name string) {
	if SagaCompensationsTotal == nil {
		return
	}
	SagaCompensationsTotal.WithLabelValues(name).Inc()
}

// IncMessagePublished 记录消息发布结果
func IncMessagePublished(routingKey string, err error) {
	if MessagesPublishedTotal == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	MessagesPublishedTotal.WithLabelValues(routingKey, result).Inc()
}
