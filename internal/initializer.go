package internal

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"server-identity/internal/config"
	"server-identity/internal/identity"
	"server-identity/internal/managers"
	"server-identity/internal/repositories"
	"server-identity/internal/routing"
	"server-identity/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func Init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("error loading configuration: ", err)
	}
	setLogLevel(cfg.LogLevel)

	// Select the store backend
	var (
		databaseMgr managers.DatabaseMgr
		store       repositories.Store
	)
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		log.Warn("Using the in-memory store, data is lost on shutdown")
		store = repositories.NewMemoryStore()
	default:
		pool := initializeDatabase(cfg.Database)
		defer pool.Close()

		databaseMgr = managers.NewDatabaseManager(pool)
		store = repositories.NewPostgresStore(databaseMgr.GetPool())
	}

	// Initialize token managers
	cipherMgr, err := managers.NewCipherManager(cfg.TokenKeys)
	if err != nil {
		log.Fatal("error initializing token cipher: ", err)
	}
	activationMgr := managers.NewActivationTokenManager(cipherMgr, cfg.ActivationTokenTTL)
	claimsMgr := managers.NewClaimsManager(cfg.ClaimsSecret, cfg.ClaimsTokenTTL, cfg.ClaimsLeeway)

	jwtMgr, err := managers.NewJWTManagerFromFile(cfg.KeyPairPath, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		log.Fatal("error initializing jwt manager: ", err)
	}

	// Initialize mail manager and email validator
	mailMgr := managers.NewMailManager(cfg)
	validator, err := utils.NewValidator(cfg.EmailValidationType)
	if err != nil {
		log.Fatal("error initializing email validator: ", err)
	}

	identityService := identity.NewService(cfg, store, mailMgr, activationMgr, claimsMgr, jwtMgr, validator)

	// Initialize router
	r := routing.InitRouter(cfg, databaseMgr, jwtMgr, identityService)
	log.Info("Initialized router")

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle interrupt signal gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("Starting server on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Error starting server: ", err)
		}
	}()

	<-ctx.Done()
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown: ", err)
	}
}

func initializeDatabase(cfg config.DatabaseConfig) *pgxpool.Pool {
	log.Info("Initializing database")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		log.Fatal("error configuring database: ", err)
	}

	poolConfig.MinConns = 5
	poolConfig.MaxConns = 30
	poolConfig.MaxConnIdleTime = time.Minute * 2
	poolConfig.HealthCheckPeriod = time.Minute * 1

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatal("error connecting to database: ", err)
	}
	log.Info("Connected to database")
	return pool
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "DEBUG":
		log.SetLevel(log.DebugLevel)
	case "INFO":
		log.SetLevel(log.InfoLevel)
	case "WARN":
		log.SetLevel(log.WarnLevel)
	case "ERROR":
		log.SetLevel(log.ErrorLevel)
	case "FATAL":
		log.SetLevel(log.FatalLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	log.SetReportCaller(true)

	log.SetOutput(os.Stdout)
}
