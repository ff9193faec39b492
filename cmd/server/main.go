package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"filmstack/internal/config"
	cronrunner "filmstack/internal/cron"
	"filmstack/internal/db"
	"filmstack/internal/handler"
	"filmstack/internal/incentive"
	"filmstack/internal/logger"
	"filmstack/internal/montecarlo"
	gormrepository "filmstack/internal/repository/gorm"
	"filmstack/internal/scenario"
	"filmstack/internal/service"

	_ "filmstack/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("FS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("FS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	if err := service.EnsureDefaultPolicies(context.Background(), store, logger); err != nil {
		logger.Warn("seed jurisdiction policies failed", zap.Error(err))
	}

	simulator := &montecarlo.Simulator{Logger: logger}
	incentives := &incentive.TableLookup{Source: &service.RepoPolicySource{Repo: store}}
	evaluator := &scenario.Evaluator{
		Constraints: scenario.Constraints{
			MaxDebtToEquity: cfg.Constraints.MaxDebtToEquity,
			MinEquityPct:    cfg.Constraints.MinEquityPct,
		},
		Bounds: scenario.Bounds{
			IRRRef:        cfg.Scoring.IRRRef,
			CostRef:       cfg.Scoring.CostRef,
			TaxRef:        cfg.Scoring.TaxRef,
			RiskSpreadRef: cfg.Scoring.RiskSpreadRef,
		},
		Incentives: incentives,
		Simulator:  simulator,
		Logger:     logger,
	}

	catalogSvc := &service.CatalogService{Repo: store}
	waterfallSvc := &service.WaterfallService{
		Repo:       store,
		Simulator:  simulator,
		Engine:     cfg.Engine,
		MonteCarlo: cfg.MonteCarlo,
		Logger:     logger,
	}
	scenarioSvc := &service.ScenarioService{
		Repo:       store,
		Evaluator:  evaluator,
		Engine:     cfg.Engine,
		MonteCarlo: cfg.MonteCarlo,
		Logger:     logger,
	}
	hub := service.NewProgressHub()
	runMgr := &service.RunManager{
		Repo:       store,
		Waterfalls: waterfallSvc,
		Simulator:  simulator,
		MonteCarlo: cfg.MonteCarlo,
		Hub:        hub,
		Logger:     logger,
	}
	retentionSvc := &service.RetentionService{Repo: store, Config: cfg.Retention, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	catalogHandler := &handler.CatalogHandler{Catalog: catalogSvc}
	catalogHandler.Register(engine)
	waterfallHandler := &handler.WaterfallHandler{Waterfalls: waterfallSvc}
	waterfallHandler.Register(engine)
	scenarioHandler := &handler.ScenarioHandler{Scenarios: scenarioSvc}
	scenarioHandler.Register(engine)
	simulationHandler := &handler.SimulationHandler{Runs: runMgr, Hub: hub, Logger: logger}
	simulationHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := runMgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("run manager stopped", zap.Error(err))
		}
	}()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add(cfg.Cron.Retention, func(ctx context.Context) {
			if err := retentionSvc.PurgeExpiredRuns(ctx); err != nil {
				logger.Warn("retention purge failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register retention failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
