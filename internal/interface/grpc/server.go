// Package grpc 对外gRPC服务：标准健康检查(grpc.health.v1)与反射
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/xiebiao/library/pkg/logger"
)

// ServiceName 健康检查中登记的服务名
const ServiceName = "library.v1.Library"

// Server gRPC服务器
type Server struct {
	server *grpc.Server
	health *health.Server
	addr   string
}

// NewServer 创建gRPC服务器（未监听）
func NewServer(port int) *Server {
	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.ConnectionTimeout(10*time.Second),
		grpc.ChainUnaryInterceptor(logUnary),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	// 用于grpcurl调试
	reflection.Register(srv)

	s := &Server{
		server: srv,
		health: hs,
		addr:   fmt.Sprintf(":%d", port),
	}
	s.SetServing(false)
	return s
}

// Serve 在lis上提供服务，阻塞直到Stop
func (s *Server) Serve(lis net.Listener) error {
	s.SetServing(true)
	logger.L().Info("gRPC服务启动", zap.String("addr", lis.Addr().String()))
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// ListenAndServe 监听配置端口
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("监听端口失败: %w", err)
	}
	return s.Serve(lis)
}

// SetServing 切换健康状态；关闭前先置为NOT_SERVING，让负载均衡摘除流量
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop 优雅关闭，ctx到期后强制关闭
func (s *Server) Stop(ctx context.Context) {
	s.SetServing(false)
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
}

func logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.WithContext(ctx).Debug("gRPC请求",
		zap.String("method", info.FullMethod),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err),
	)
	return resp, err
}
