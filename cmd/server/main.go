package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"predictive-maintenance/internal/analytics"
	"predictive-maintenance/internal/artifact"
	"predictive-maintenance/internal/config"
	"predictive-maintenance/internal/handlers"
	"predictive-maintenance/internal/logger"
	"predictive-maintenance/internal/metrics"
	"predictive-maintenance/internal/predictor"
	"predictive-maintenance/internal/source"
)

func main() {
	// Конфигурация: defaults, config.yaml, .env, environment
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		// Логгер еще не создан
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		zap.NewExample().Fatal("failed to create logger", zap.Error(err))
	}
	defer log.Sync()

	log.Info("starting predictive maintenance service",
		zap.String("app_dir", cfg.Paths.AppDir),
		zap.String("source", cfg.Source.Kind),
	)

	// Артефакты загружаются один раз; без них сервис не стартует
	modelPath := cfg.Resolve(cfg.Paths.Model)
	scalerPath := cfg.Resolve(cfg.Paths.Scaler)
	artifacts, err := artifact.Load(modelPath, scalerPath)
	if err != nil {
		log.Fatal("failed to load model artifacts", zap.Error(err))
	}
	log.Info("model artifacts loaded",
		zap.String("model", artifacts.ModelPath),
		zap.String("model_type", artifacts.ModelType),
		zap.String("scaler", artifacts.ScalerPath),
		zap.String("scaler_type", artifacts.ScalerType),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	src, closeSource := buildSource(ctx, cfg, log)
	defer closeSource()

	// Анализатор дрейфа входных показаний
	var analyzer *analytics.Analyzer
	if cfg.Analytics.Enabled {
		analyzer = analytics.NewAnalyzer(cfg.Analytics.WindowSize, cfg.Analytics.DriftThreshold)
		analyzer.Start(cfg.Analytics.Workers)
		defer analyzer.Stop()
		log.Info("analyzer started",
			zap.Int("window_size", cfg.Analytics.WindowSize),
			zap.Float64("threshold", cfg.Analytics.DriftThreshold),
			zap.Int("workers", cfg.Analytics.Workers),
		)

		go processAnalysisResults(analyzer, log)
		go updateMetrics(ctx, analyzer)
	}

	if cfg.Artifacts.Watch {
		watcher, err := artifact.NewWatcher(map[string]string{
			modelPath:  "model",
			scalerPath: "scaler",
		}, log, nil)
		if err != nil {
			log.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	service := predictor.NewService(artifacts.Scaler, artifacts.Classifier)
	handler := handlers.NewHandler(service, src, analyzer, log, artifacts.Describe())

	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.RegisterRoutes(mux, handler, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("server stopped gracefully")
}

// buildSource создает источник последнего показания
func buildSource(ctx context.Context, cfg config.Config, log *zap.Logger) (source.Source, func()) {
	if cfg.Source.Kind == source.KindRedis {
		redisCfg := cfg.Source.Redis
		redisSource, err := source.NewRedisSource(ctx, redisCfg.Addr, redisCfg.Password, redisCfg.DB, redisCfg.Stream)
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.String("addr", redisCfg.Addr), zap.Error(err))
		}
		log.Info("connected to Redis",
			zap.String("addr", redisCfg.Addr),
			zap.String("stream", redisCfg.Stream),
		)
		return redisSource, func() { redisSource.Close() }
	}

	dataPath := cfg.Resolve(cfg.Paths.Data)
	log.Info("reading latest values from CSV", zap.String("path", dataPath))
	return source.NewCSVSource(dataPath), func() {}
}

// processAnalysisResults обрабатывает результаты анализа
func processAnalysisResults(analyzer *analytics.Analyzer, log *zap.Logger) {
	for result := range analyzer.GetResultsChan() {
		for _, s := range result.Sensors {
			metrics.SensorRollingAverage.WithLabelValues(s.Sensor).Set(s.RollingAvg)
			metrics.SensorZScore.WithLabelValues(s.Sensor).Set(s.ZScore)
		}

		if result.IsDrift {
			for _, sensor := range result.DriftSensors {
				metrics.InputDriftDetected.WithLabelValues(sensor).Inc()
			}
			log.Warn("input drift detected",
				zap.Strings("sensors", result.DriftSensors),
				zap.Float64("max_zscore", result.MaxZScore),
				zap.Time("timestamp", result.Timestamp),
			)
		}
	}
}

// updateMetrics периодически обновляет метрики
func updateMetrics(ctx context.Context, analyzer *analytics.Analyzer) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if queueSize, ok := analyzer.GetStats()["queue_size"].(int); ok {
				metrics.QueueSize.Set(float64(queueSize))
			}
		}
	}
}

// getEnv получает environment variable или возвращает default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
