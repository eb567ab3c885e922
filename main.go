package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/auth"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/clickhouse"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/config"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/dal"
	grpcserver "github.com/Billy-Davies-2/kokoloko-draft/internal/grpc"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/handlers"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/history"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/mocks"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/prompt"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/pubsub"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/session"
)

// devStaffID is granted staff rights by the mock auth provider in development
const devStaffID = "dev-staff"

// analyticsClient is satisfied by the ClickHouse client and its mock
type analyticsClient interface {
	handlers.Analytics
	history.Store
	Close() error
}

// authProvider covers both the HTTP login flow and bearer token checks
type authProvider interface {
	auth.Provider
	auth.Authenticator
}

// natsBus is satisfied by every upstream event bus
type natsBus interface {
	pubsub.Upstream
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.InitWith(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logger.Close()

	logger.Info("Starting kokoloko draft service", "environment", cfg.Environment)

	rules, err := cfg.Rules()
	if err != nil {
		logger.Error("Invalid draft rules", "error", err)
		log.Fatalf("Invalid draft rules: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)
	defer store.Close()

	if cfg.CatalogCSV != "" {
		n, err := dal.ImportCatalogCSV(store, cfg.CatalogCSV)
		if err != nil {
			logger.Error("Failed to import catalog", "error", err, "file", cfg.CatalogCSV)
			log.Fatalf("Failed to import catalog: %v", err)
		}
		logger.Info("Catalog imported", "file", cfg.CatalogCSV, "items", n)
	}

	upstream := openBus(cfg)
	defer upstream.Close()
	bus := pubsub.NewWithUpstream(upstream)

	chClient := openAnalytics(ctx, cfg)
	defer chClient.Close()

	var authn authProvider
	if cfg.Development() {
		logger.Info("Using mock authentication for local development (no Authentik server required)")
		authn = auth.NewMockAuth(cfg.StaffRoleName, append(cfg.StaffIDs, devStaffID)...)
	} else {
		if cfg.AuthentikBaseURL == "" || cfg.AuthentikClientID == "" || cfg.AuthentikClientSecret == "" {
			logger.Error("AUTHENTIK_BASE_URL, AUTHENTIK_CLIENT_ID, and AUTHENTIK_CLIENT_SECRET are required for production")
			log.Fatal("AUTHENTIK_BASE_URL, AUTHENTIK_CLIENT_ID, and AUTHENTIK_CLIENT_SECRET are required for production")
		}
		authn = auth.NewAuthentikAuth(&auth.AuthentikConfig{
			BaseURL:      cfg.AuthentikBaseURL,
			ClientID:     cfg.AuthentikClientID,
			ClientSecret: cfg.AuthentikClientSecret,
			RedirectURL:  cfg.AuthentikRedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			StaffRole:    cfg.StaffRoleName,
		})
		logger.Info("Using Authentik", "url", cfg.AuthentikBaseURL)
	}

	broker := prompt.NewBroker(bus, authn, cfg.PromptOptions())
	drafts := session.NewManager(ctx, store, broker, pubsub.NewAnnouncer(bus), authn, session.Config{
		Rules:  rules,
		Pacing: cfg.Pacing(),
		Retry:  cfg.Retry(),
		Mode:   cfg.AutoMode,
		Seed:   cfg.DraftSeed,
	})

	// the upstream carries the durable consumer when it is JetStream
	recorder := history.NewRecorder(upstream, store, chClient)
	go func() {
		if err := recorder.Run(ctx); err != nil {
			logger.Error("History recorder stopped", "error", err)
		}
	}()

	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.AuthInterceptor(authn)))
	grpcserver.Register(grpcSrv, grpcserver.NewServer(drafts, store, bus))
	go func() {
		addr := "0.0.0.0:" + cfg.GRPCPort
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
			log.Fatalf("Failed to listen for gRPC: %v", err)
		}
		logger.Info("gRPC server starting", "address", addr)
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
		}
	}()

	api := handlers.NewAPIHandlers(drafts, store, bus, authn, chClient)
	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           api.Routes(authn),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting", "address", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			log.Fatal(err)
		}
	}()

	if cfg.Development() && cfg.DummyCount > 0 {
		startDemo(ctx, drafts, cfg)
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	grpcSrv.GracefulStop()
	if err := drafts.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Drafts did not pause in time", "error", err)
	}
}

func openStore(cfg config.Config) dal.DraftDAL {
	switch cfg.DBDriver {
	case "memory":
		logger.Info("Using in-memory data store")
		return dal.NewMemoryDAL()
	case "sqlite":
		store, err := dal.NewSQLiteDAL(cfg.SQLiteFile)
		if err != nil {
			logger.Error("Failed to initialize SQLite", "error", err)
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		logger.Info("Connected to SQLite database", "file", cfg.SQLiteFile)
		return store
	case "postgres":
		if cfg.DatabaseURL == "" {
			if !cfg.Development() {
				logger.Error("DATABASE_URL environment variable is required for postgres driver")
				log.Fatal("DATABASE_URL environment variable is required for postgres driver")
			}
			store, err := mocks.NewMockPostgresDAL(cfg.SQLiteFile)
			if err != nil {
				logger.Error("Failed to initialize mock Postgres", "error", err)
				log.Fatalf("Failed to initialize mock Postgres: %v", err)
			}
			return store
		}
		store, err := dal.NewPostgresDAL(cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to initialize Postgres", "error", err)
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		logger.Info("Connected to Postgres database")
		return store
	default:
		logger.Error("Unknown DB_DRIVER", "driver", cfg.DBDriver)
		log.Fatalf("Unknown DB_DRIVER: %s (valid: memory, sqlite, postgres)", cfg.DBDriver)
	}
	return nil
}

func openBus(cfg config.Config) natsBus {
	if cfg.NATSURL == "mock" {
		return mocks.NewMockNATSPubSub()
	}

	if cfg.Development() {
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Subject = cfg.NATSSubject
		embedded, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			logger.Error("Failed to initialize embedded NATS", "error", err)
			log.Fatalf("Failed to initialize embedded NATS: %v", err)
		}
		logger.Info("Embedded NATS server ready", "url", embedded.GetServerURL())
		return embedded
	}

	remote, err := pubsub.NewNATSPubSub(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		logger.Error("Failed to initialize NATS", "error", err)
		log.Fatalf("Failed to initialize NATS: %v", err)
	}
	logger.Info("Connected to NATS", "url", cfg.NATSURL)
	return remote
}

func openAnalytics(ctx context.Context, cfg config.Config) analyticsClient {
	if cfg.Development() {
		logger.Info("Using mock ClickHouse for local development (no ClickHouse server required)")
		return mocks.NewMockClickHouseClient()
	}

	client, err := clickhouse.NewClient(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		logger.Error("Failed to initialize ClickHouse", "error", err, "address", cfg.ClickHouseAddr)
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	if err := client.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to create ClickHouse schema", "error", err)
		log.Fatalf("Failed to create ClickHouse schema: %v", err)
	}
	logger.Info("Connected to ClickHouse", "address", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)
	return client
}

// startDemo hosts a bot-only draft so a fresh checkout has something to watch
func startDemo(ctx context.Context, drafts *session.Manager, cfg config.Config) {
	snap, err := drafts.Start(ctx, devStaffID, session.StartRequest{
		DraftID: "demo",
		Dummies: cfg.DummyCount,
	})
	if err != nil {
		logger.Warn("Failed to start demo draft", "error", err)
		return
	}
	logger.Info("Demo draft started", "draft_id", snap.DraftID, "participants", len(snap.Order), "mode", cfg.AutoMode.String())
}
