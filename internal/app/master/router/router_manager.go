/**
 * 路由:路由管理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 路由管理器,包含Router结构体、NewRouter装配函数和SetupRoutes主函数
 * @func: 控制器是服务集合,先初始化仓库与服务,再装填成控制器
 */
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"scanmaster/internal/app/master/middleware"
	"scanmaster/internal/config"
	scanHandler "scanmaster/internal/handler/scanner"
	authPkg "scanmaster/internal/pkg/auth"
	"scanmaster/internal/pkg/cvedb"
	"scanmaster/internal/pkg/logger"
	"scanmaster/internal/pkg/pubsub"
	pdfreport "scanmaster/internal/pkg/report"
	"scanmaster/internal/repo/cache"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
	redisRepo "scanmaster/internal/repo/redis"
	composeService "scanmaster/internal/service/compose"
	progressService "scanmaster/internal/service/progress"
	reportService "scanmaster/internal/service/report"
	scannerService "scanmaster/internal/service/scanner"
)

// Router 路由管理器
type Router struct {
	config            *config.Config
	engine            *gin.Engine
	middlewareManager *middleware.MiddlewareManager

	scanHandler     *scanHandler.ScanHandler
	orderHandler    *scanHandler.OrderHandler
	progressHandler *scanHandler.ProgressHandler
	reportHandler   *scanHandler.ReportHandler
	toolHandler     *scanHandler.ToolHandler

	scanService     *scannerService.ScanService
	progressService *progressService.ProgressService
}

// NewRouter 创建路由管理器实例
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Router {
	// 初始化工具包
	jwtManager := authPkg.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.AccessTokenExpire)

	// 初始化仓库层
	targetRepo := scanRepo.NewTargetRepository(db)
	orderRepo := scanRepo.NewOrderRepository(db)
	toolRepo := scanRepo.NewToolRepository(db)

	// 进度缓存与通知通道 [Redis存储,快照键不过期]
	kvStore := redisRepo.NewKVStore(redisClient, 0)
	progressCache := cache.NewProgressCache(kvStore, cfg.Scan.CacheRetries, cfg.Scan.CacheRetryDelay)
	publisher := pubsub.NewRedisPublisher(redisClient)

	// 漏洞库客户端
	cveClient := cvedb.NewNVDClient(cfg.NVD.BaseURL, cfg.NVD.APIKey, cfg.NVD.Timeout)

	// 初始化服务层
	scanSvc := scannerService.NewScanService(targetRepo, orderRepo, toolRepo, progressCache,
		scannerService.NewExecRunner(), &cfg.Scan)
	composeSvc := composeService.NewComposeService(targetRepo, toolRepo, cveClient, cfg.Scan.DetectorParallel)
	progressSvc := progressService.NewProgressService(progressCache, publisher, scanSvc, &cfg.Scan)
	reportSvc := reportService.NewReportService(targetRepo, orderRepo,
		reportService.NewComposer(composeSvc),
		pdfreport.NewPDFRenderer(cfg.Report.OutputDir), &cfg.Report)

	// 初始化中间件管理器
	middlewareManager := middleware.NewMiddlewareManager(jwtManager, &cfg.Security)

	// 初始化处理器
	scanHdl := scanHandler.NewScanHandler(scanSvc)
	orderHdl := scanHandler.NewOrderHandler(scanSvc, orderRepo, targetRepo)
	progressHdl := scanHandler.NewProgressHandler(progressSvc, orderRepo, targetRepo)
	reportHdl := scanHandler.NewReportHandler(reportSvc, orderRepo, targetRepo, &cfg.Report)
	toolHdl := scanHandler.NewToolHandler(toolRepo)

	// 创建Gin引擎
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	return &Router{
		config:            cfg,
		engine:            engine,
		middlewareManager: middlewareManager,
		scanHandler:       scanHdl,
		orderHandler:      orderHdl,
		progressHandler:   progressHdl,
		reportHandler:     reportHdl,
		toolHandler:       toolHdl,
		scanService:       scanSvc,
		progressService:   progressSvc,
	}
}

// SetupRoutes 设置全局中间件和路由
func (r *Router) SetupRoutes() {
	logger.WithFields(map[string]interface{}{
		"path":      "router_manager.SetupRoutes",
		"operation": "setup_routes",
		"func_name": "router.SetupRoutes",
	}).Info("开始注册全局中间件和路由")

	// 1) 全局中间件注册
	r.middlewareManager.SetupGlobalMiddlewares(r.engine)

	// 2) 路由注册
	api := r.engine.Group("/api")
	r.setupScanRoutes(api)
	r.setupHealthRoutes(api)

	logger.WithFields(map[string]interface{}{
		"path":      "router_manager.SetupRoutes",
		"operation": "setup_routes",
		"func_name": "router.SetupRoutes",
	}).Info("路由注册完成")
}

// GetEngine 获取Gin引擎实例
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// ScanService 获取扫描服务 [App层启动worker池用]
func (r *Router) ScanService() *scannerService.ScanService {
	return r.scanService
}

// ProgressService 获取进度服务 [App层停机等待会话退出用]
func (r *Router) ProgressService() *progressService.ProgressService {
	return r.progressService
}
