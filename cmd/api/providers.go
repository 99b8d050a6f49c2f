package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/application/catalog"
	"github.com/xiebiao/library/internal/application/lending"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/internal/infrastructure/persistence/orm"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/infrastructure/query"
	"github.com/xiebiao/library/internal/infrastructure/storage"
	grpcserver "github.com/xiebiao/library/internal/interface/grpc"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
	"github.com/xiebiao/library/internal/worker"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/mq"
)

// Provider集合，供wire.go中的InitializeApp使用

// infrastructureSet 数据库、Redis、文件存储、消息发布
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideTxManager,
	provideStorageConfig,
	storage.NewCoverStore,
	provideBookCache,
	redis.NewSessionStore,
	providePublisher,
	query.NewOverdueQuery,
	wire.Bind(new(borrow.OverdueQuery), new(*query.OverdueQuery)),
	wire.Bind(new(lending.TxManager), new(*orm.TxManager)),
	wire.Bind(new(catalog.TxManager), new(*orm.TxManager)),
	wire.Bind(new(lending.BookCache), new(*redis.BookCache)),
	wire.Bind(new(catalog.BookCache), new(*redis.BookCache)),
	wire.Bind(new(catalog.CoverStorage), new(*storage.CoverStore)),
	wire.Bind(new(router.CoverDir), new(*storage.CoverStore)),
	wire.Bind(new(appuser.SessionStore), new(*redis.SessionStore)),
	wire.Bind(new(middleware.TokenBlacklist), new(*redis.SessionStore)),
)

// repositorySet 仓储层
var repositorySet = wire.NewSet(
	orm.NewUserRepository,
	orm.NewBookRepository,
	orm.NewBorrowRepository,
	orm.NewStockLogRepository,
)

// domainSet 领域层
var domainSet = wire.NewSet(
	user.NewService,
	book.NewLedger,
)

// applicationSet 应用层
var applicationSet = wire.NewSet(
	provideLendingConfig,
	lending.NewEngine,
	catalog.NewService,
	appuser.NewRegisterUseCase,
	provideLoginUseCase,
	appuser.NewLogoutUseCase,
	appuser.NewRefreshUseCase,
)

// interfaceSet HTTP/gRPC接口层
var interfaceSet = wire.NewSet(
	provideJWTManager,
	middleware.NewAuthMiddleware,
	handler.NewUserHandler,
	handler.NewBookHandler,
	handler.NewLendingHandler,
	router.New,
	provideHTTPServer,
	provideGRPCServer,
)

// App 进程内需要启动/关闭的组件
type App struct {
	Config   *config.Config
	HTTP     *http.Server
	GRPC     *grpcserver.Server
	Notifier *worker.OverdueNotifier
}

func newApp(cfg *config.Config, httpServer *http.Server, grpcServer *grpcserver.Server, notifier *worker.OverdueNotifier) *App {
	return &App{
		Config:   cfg,
		HTTP:     httpServer,
		GRPC:     grpcServer,
		Notifier: notifier,
	}
}

// ========================================
// Custom Providers
// ========================================
// 构造函数参数需要从Config中提取时，编写Provider函数

// provideDB 创建数据库连接，cleanup关闭连接池
func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := orm.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := orm.Close(db); err != nil {
			logger.L().Warn("关闭数据库失败", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// provideRedis 创建Redis连接
func provideRedis(cfg *config.Config) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideTxManager(db *gorm.DB, cfg *config.Config) *orm.TxManager {
	return orm.NewTxManager(db, cfg.Database.LockTimeout)
}

func provideLendingConfig(cfg *config.Config) config.LendingConfig {
	return cfg.Lending
}

func provideStorageConfig(cfg *config.Config) config.StorageConfig {
	return cfg.Storage
}

func provideBookCache(client *goredis.Client, cfg *config.Config) *redis.BookCache {
	return redis.NewBookCache(client, cfg.Cache.BookTTL)
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
}

// provideLoginUseCase 会话有效期与Refresh Token一致
func provideLoginUseCase(userService user.Service, jwtManager *jwt.Manager, sessions appuser.SessionStore, cfg *config.Config) *appuser.LoginUseCase {
	return appuser.NewLoginUseCase(userService, jwtManager, sessions, cfg.JWT.RefreshTokenExpire)
}

// providePublisher 启用MQ时返回带熔断的RabbitMQ发布者，否则返回空实现
func providePublisher(cfg *config.Config) (messaging.Publisher, func(), error) {
	if !cfg.MQ.Enabled {
		return messaging.NopPublisher{}, func() {}, nil
	}

	p, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
	if err != nil {
		return nil, nil, err
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		logger.L().Warn("熔断器状态变化",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	breaker := circuitbreaker.New("rabbitmq", breakerCfg)

	return messaging.NewBreakerPublisher(p, breaker), func() { _ = p.Close() }, nil
}

func provideHTTPServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func provideGRPCServer(cfg *config.Config) *grpcserver.Server {
	return grpcserver.NewServer(cfg.Server.GRPCPort)
}

func provideOverdueNotifier(engine *lending.Engine, publisher messaging.Publisher, cfg *config.Config) *worker.OverdueNotifier {
	return worker.NewOverdueNotifier(engine, publisher, cfg.Lending.OverdueScanInterval, cfg.Lending.OverdueBatchSize)
}

// shutdownTimeout 关闭超时，未配置时15秒
func shutdownTimeout(cfg *config.Config) (context.Context, context.CancelFunc) {
	d := cfg.Server.ShutdownTimeout
	if d <= 0 {
		d = 15 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}
