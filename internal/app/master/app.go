/**
 * 应用:master应用装配
 * @author: sun977
 * @date: 2025.11.23
 * @description: 装配配置、日志、存储连接、路由与worker池,提供统一的启动/停止入口
 */
package master

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"scanmaster/internal/app/master/router"
	"scanmaster/internal/config"
	"scanmaster/internal/pkg/database"
	"scanmaster/internal/pkg/logger"
)

// App 应用程序结构体
type App struct {
	config      *config.Config
	configPath  string
	env         string
	db          *gorm.DB
	redisClient *redis.Client
	router      *router.Router

	cancelWorkers context.CancelFunc
}

// NewApp 创建新的应用程序实例
func NewApp(configPath, env string) (*App, error) {
	// 加载配置 [加载失败直接退出]
	cfg := config.MustLoadConfig(configPath, env)

	// 初始化日志系统
	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 初始化MySQL连接
	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}

	// 初始化Redis连接
	redisClient, err := database.NewRedisConnection(&cfg.Database.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	// 装配路由 [内部完成仓库/服务/处理器的初始化]
	r := router.NewRouter(db, redisClient, cfg)
	r.SetupRoutes()

	return &App{
		config:      cfg,
		configPath:  configPath,
		env:         env,
		db:          db,
		redisClient: redisClient,
		router:      r,
	}, nil
}

// GetConfig 获取应用配置
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// Start 启动应用程序 [启动扫描worker池]
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelWorkers = cancel
	a.router.ScanService().Start(ctx)

	// 配置热重载 [监听失败不影响启动]
	if err := config.StartConfigWatcher(a.configPath, a.env); err != nil {
		logger.Warnf("failed to start config watcher: %v", err)
	} else {
		config.AddConfigReloadCallback(config.LogConfigReloadCallback)
		config.AddConfigReloadCallback(config.ScanConfigReloadCallback)
	}

	logger.WithFields(map[string]interface{}{
		"path":      "app.Start",
		"operation": "app_start",
		"func_name": "master.App.Start",
		"workers":   a.config.Scan.Workers,
	}).Info("应用启动完成")
	return nil
}

// Stop 停止应用程序 [停worker池、等进度会话退出、关存储连接]
func (a *App) Stop() error {
	if a.cancelWorkers != nil {
		a.cancelWorkers()
	}

	if err := config.StopConfigWatcher(); err != nil {
		logger.Warnf("failed to stop config watcher: %v", err)
	}

	// 等待在途扫描任务结束
	a.router.ScanService().Stop()
	// 等待进度推送会话退出
	a.router.ProgressService().Wait()

	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.LogError(err, "", 0, "", "app.Stop", "CLOSE", map[string]interface{}{
				"operation": "close_mysql",
			})
		}
	}
	if err := a.redisClient.Close(); err != nil {
		logger.LogError(err, "", 0, "", "app.Stop", "CLOSE", map[string]interface{}{
			"operation": "close_redis",
		})
	}

	logger.WithFields(map[string]interface{}{
		"path":      "app.Stop",
		"operation": "app_stop",
		"func_name": "master.App.Stop",
	}).Info("应用已停止")
	return nil
}
