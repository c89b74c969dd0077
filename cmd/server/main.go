package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baitool/camt053/docs"
	"github.com/baitool/camt053/internal/config"
	"github.com/baitool/camt053/internal/database"
	"github.com/baitool/camt053/internal/handlers"
	"github.com/baitool/camt053/internal/logger"
	mW "github.com/baitool/camt053/internal/middleware"
	"github.com/baitool/camt053/internal/observability/metrics"
	"github.com/baitool/camt053/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title CAMT.053 Statement API
// @version 1.0
// @description Bank-to-customer statement generation from BAI balance and transaction data
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	bootLog := logger.New("info")

	if err := config.Init(".env"); err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	cfg, err := config.LoadStatementConfig()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("invalid statement configuration")
	}
	serverCfg := config.LoadServerConfig()
	log := logger.NewJSON(cfg.LogLevel)

	docs.SwaggerInfo.Host = "localhost:" + serverCfg.Port

	metrics.Init()

	source, closeSource, err := database.OpenSource(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.Source).Msg("failed to open statement source")
	}
	defer closeSource()

	sequence, closeSequence := database.OpenSequence(context.Background(), cfg, log)
	defer closeSequence()

	engine := services.NewEngine(services.EngineConfig{
		LookbackDays:     cfg.LookbackDays,
		Tolerance:        &cfg.Tolerance,
		Location:         cfg.Location,
		ServicerBIC:      cfg.ServicerBIC,
		DefaultOwnerName: cfg.DefaultOwnerName,
	}, nil, log)
	statementService := services.NewStatementService(source, engine, sequence, cfg.BatchConcurrency, log)
	statementHandler := handlers.NewStatementHandler(statementService, services.NewExportService(), serverCfg.MaxBatchSize, log)
	camt053Service := services.NewCamt053Service()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(serverCfg.WriteTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Message-Id", "X-Reconciled"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if viper.GetString("jwt.secret_key") != "" {
				r.Use(mW.AuthMiddleware)
			} else {
				log.Warn().Msg("JWT_SECRET_KEY not set, statement endpoints are unauthenticated")
			}

			r.Get("/statements/{iban}/{date}", statementHandler.GetStatement)
			r.Post("/statements/batch", statementHandler.GenerateBatch)
			r.Post("/camt053/render", camt053Service.RenderStatement)
		})
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      r,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", server.Addr).Str("source", cfg.Source).Str("sequence", cfg.Sequence).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
