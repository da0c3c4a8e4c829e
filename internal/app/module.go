// Package app 用 fx 装配所有组件并管理启动/关闭顺序
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"chat_fanout_server/internal/config"
	"chat_fanout_server/internal/dao/database"
	myredis "chat_fanout_server/internal/dao/redis"
	"chat_fanout_server/internal/dao/repository"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/handler"
	"chat_fanout_server/internal/https_server"
	"chat_fanout_server/internal/infrastructure/logger"
	"chat_fanout_server/internal/infrastructure/mq"
	"chat_fanout_server/internal/service"
	"chat_fanout_server/pkg/util/jwt"
	sf "chat_fanout_server/pkg/util/snowflake"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Params 启动参数，ConfigPaths 为空时使用 config.DefaultPaths
type Params struct {
	ConfigPaths []string
}

// New 带 zap 事件日志的 fx 应用
func New(p Params) *fx.App {
	return fx.New(
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		Module(p),
	)
}

// Module 全部依赖与生命周期钩子，测试直接用它构建 fxtest 应用
func Module(p Params) fx.Option {
	return fx.Module("chat",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDB,
			repository.NewRepositories,
			provideRedis,
			provideCache,
			provideNode,
			broadcast.NewHub,
			provideBroker,
			provideGateway,
			providePublisher,
			provideServices,
			provideSigner,
			handler.NewHandlers,
			provideEngine,
			provideHTTPServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	return config.Load(p.ConfigPaths...)
}

func provideLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	lg, err := logger.New(cfg.LogConfig, cfg.MainConfig.Mode)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = lg.Sync()
			return nil
		},
	})
	return lg, nil
}

// provideDB 依赖 logger 保证 zap.L() 已替换
func provideDB(lc fx.Lifecycle, cfg *config.Config, _ *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseConfig)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return database.Close(db)
		},
	})
	return db, nil
}

// provideRedis 未启用时返回 nil，由 provideCache 退化为进程内缓存
func provideRedis(lc fx.Lifecycle, cfg *config.Config, _ *zap.Logger) (*redis.Client, error) {
	if !cfg.RedisConfig.Enabled {
		return nil, nil
	}
	client, err := myredis.NewClient(context.Background(), cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideCache(client *redis.Client, lg *zap.Logger) myredis.CacheService {
	if client == nil {
		lg.Warn("redis disabled, using in-process cache")
		return myredis.NewMemoryCache()
	}
	return myredis.NewRedisCache(client)
}

func provideNode(cfg *config.Config) (*snowflake.Node, error) {
	return sf.NewNode(cfg.SnowflakeConfig.MachineID)
}

// provideBroker 按 broadcast.mode 选择跨节点广播通道，消费协程随应用启停
func provideBroker(lc fx.Lifecycle, cfg *config.Config, hub *broadcast.Hub, client *redis.Client, lg *zap.Logger) (broadcast.Broker, error) {
	bc := cfg.BroadcastConfig
	var (
		broker broadcast.Broker
		prep   func(ctx context.Context) error
	)
	switch bc.Mode {
	case "kafka":
		// 每个节点独立消费组，才能都收到全量帧
		groupID := bc.Kafka.GroupID
		if groupID == "" {
			groupID = fmt.Sprintf("%s-node-%d", cfg.MainConfig.AppName, cfg.SnowflakeConfig.MachineID)
		}
		kc := mq.NewKafkaClient(bc.Kafka, groupID)
		broker = broadcast.NewKafkaBroker(kc, hub)
		prep = kc.EnsureTopic
	case "redis":
		if client == nil {
			return nil, errors.New("broadcast mode redis requires a redis client")
		}
		broker = broadcast.NewRedisBroker(client, bc.RedisChannel, hub)
	default:
		broker = broadcast.NewLocalBroker(hub)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if prep != nil {
				if err := prep(ctx); err != nil {
					cancel()
					return err
				}
			}
			go func() {
				defer close(done)
				if err := broker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					lg.Error("broker stopped", zap.String("mode", bc.Mode), zap.Error(err))
				}
			}()
			lg.Info("broker started", zap.String("mode", bc.Mode))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return broker.Close()
		},
	})
	return broker, nil
}

// provideGateway 在 broker 之后注册钩子，关闭时先排空队列再关 broker
func provideGateway(lc fx.Lifecycle, cfg *config.Config, broker broadcast.Broker, node *snowflake.Node) *broadcast.Gateway {
	g := broadcast.NewGateway(broker, node, cfg.BroadcastConfig.Workers, cfg.BroadcastConfig.QueueSize)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			g.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			g.Close()
			return nil
		},
	})
	return g
}

func providePublisher(g *broadcast.Gateway) broadcast.Publisher {
	return g
}

func provideServices(repos *repository.Repositories, cache myredis.CacheService, pub broadcast.Publisher, cfg *config.Config) *service.Services {
	return service.NewServices(repos, cache, pub, cfg.CacheConfig.TTL())
}

func provideSigner(cfg *config.Config) *jwt.Signer {
	return jwt.NewSigner(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTokenExpiry)
}

func provideEngine(cfg *config.Config, handlers *handler.Handlers, signer *jwt.Signer) (*gin.Engine, error) {
	if err := handler.InitTrans("zh"); err != nil {
		return nil, err
	}
	return https_server.NewEngine(cfg, handlers, signer), nil
}

func provideHTTPServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, lg *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.MainConfig.Host, cfg.MainConfig.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			lg.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					lg.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			lg.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
	return srv
}
