package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/sales_pipeline/config"
	"github.com/BerniceZTT/sales_pipeline/controllers"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/routes"
	"github.com/BerniceZTT/sales_pipeline/service"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// sessionMaxIdle 会话闲置超过该时长后在每日任务中清理
const sessionMaxIdle = 12 * time.Hour

func main() {
	// 加载配置
	cfg := config.LoadConfig()

	// 初始化日志
	utils.InitLogger(cfg.Debug)
	utils.SetJWTSecret(cfg.JWTKey)

	// 设置Gin模式
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 初始化存储
	store, err := repository.Open(rootCtx, repository.Options{
		Driver:     cfg.StoreDriver,
		MongoURI:   cfg.MongoURI,
		MongoDB:    cfg.MongoDB,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		utils.Logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("初始化存储失败")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			utils.Logger.Error().Err(err).Msg("关闭存储失败")
		}
	}()

	// 初始化系统数据
	utils.Logger.Info().Msg("开始系统初始化...")
	if err := store.EnsureCollections(rootCtx, repository.Collections); err != nil {
		utils.Logger.Error().Err(err).Msg("初始化数据库集合失败")
	}
	if err := repository.InitializeAdminAccount(rootCtx, store, cfg.AdminPassword); err != nil {
		utils.Logger.Error().Err(err).Msg("初始化管理员账户失败")
	}
	utils.Logger.Info().Msg("系统初始化完成")

	sessions := service.NewSessionManager(store)
	service.ScheduleDailyTaskAt(rootCtx, 3, 0, 0, service.ExpireIdleSessionsTask(sessions, sessionMaxIdle))

	router := routes.NewRouter(controllers.New(store, sessions), store, cfg.CORSOrigins)

	// 设置HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 启动服务器
	go func() {
		utils.Logger.Info().Msgf("服务器启动，监听端口: %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal().Err(err).Msg("启动服务器失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info().Msg("正在关闭服务器...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Error().Err(err).Msg("服务器关闭异常")
	}

	utils.Logger.Info().Msg("服务器已优雅关闭")
}
