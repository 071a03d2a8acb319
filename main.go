package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/tobyhart/deckpress/api"
	"github.com/tobyhart/deckpress/datastore"
	"github.com/tobyhart/deckpress/document"
	"github.com/tobyhart/deckpress/generation"
	"github.com/tobyhart/deckpress/imagegen"
	"github.com/tobyhart/deckpress/notify"
	"github.com/tobyhart/deckpress/platform"
	rh "github.com/tobyhart/deckpress/route-handlers"
	"github.com/tobyhart/deckpress/scheduler"
	"github.com/tobyhart/deckpress/scheduling"
	"github.com/tobyhart/deckpress/textgen"
	"github.com/tobyhart/deckpress/vault"
)

const (
	defaultPort            = "8080"
	defaultDatabaseURL     = "user=postgres password=password dbname=deckpress host=localhost port=5432 sslmode=disable"
	defaultDocumentDir     = "_output"
	defaultDocumentBaseURL = "http://localhost:8080/documents"
	defaultPlatformBaseURL = "https://api.linkedin.com"
	dbPingTimeout          = 5 * time.Second
	shutdownTimeout        = 15 * time.Second
	dbMaxOpenConns         = 25
	dbMaxIdleConns         = 25
	dbConnMaxLifetime      = 5 * time.Minute
)

type config struct {
	port            string
	databaseURL     string
	vaultKey        string
	openAIAPIKey    string
	openAIBaseURL   string
	imageModel      string
	textModel       string
	platformBaseURL string
	documentDir     string
	documentBaseURL string
	notifyEndpoint  string
	notifyAPIKey    string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on process environment")
	}
	cfg := loadConfig()

	db, err := setupDatabase(cfg.databaseURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	userRepo := datastore.NewUserRepository(db)
	articleRepo := datastore.NewArticleRepository(db)
	carouselRepo := datastore.NewCarouselRepository(db)
	versionRepo := datastore.NewSlideVersionRepository(db)
	connectionRepo := datastore.NewConnectionRepository(db)
	postRepo := datastore.NewPostRepository(db)

	credentialVault, err := vault.New(cfg.vaultKey)
	if err != nil {
		log.Fatalf("Vault setup failed: %v", err)
	}

	imageProvider, err := imagegen.NewOpenAIProvider(cfg.openAIAPIKey, cfg.openAIBaseURL, cfg.imageModel)
	if err != nil {
		log.Fatalf("Image provider setup failed: %v", err)
	}
	providerRegistry := imagegen.NewRegistry(imageProvider.Name(), imageProvider)

	promptRewriter, err := textgen.NewOpenAIRewriter(cfg.openAIAPIKey, cfg.openAIBaseURL, cfg.textModel)
	if err != nil {
		log.Fatalf("Prompt rewriter setup failed: %v", err)
	}

	documentStore := document.NewLocalStore(cfg.documentDir, cfg.documentBaseURL)
	orchestrator := generation.NewOrchestrator(
		articleRepo,
		carouselRepo,
		versionRepo,
		providerRegistry,
		document.NewGenerator(),
		documentStore,
		promptRewriter,
	)

	coordinator := scheduling.NewCoordinator(articleRepo, carouselRepo)

	var notifier notify.Sender
	if cfg.notifyEndpoint != "" {
		notifier = notify.NewWebhookSender(cfg.notifyEndpoint, cfg.notifyAPIKey)
	}
	autoPublisher := scheduler.New(
		postRepo,
		articleRepo,
		carouselRepo,
		userRepo,
		connectionRepo,
		credentialVault,
		platform.NewClient(cfg.platformBaseURL),
		notifier,
	)

	userHandler := rh.NewUserHandler(userRepo)
	articleHandler := rh.NewArticleHandler(articleRepo)
	carouselHandler := rh.NewCarouselHandler(orchestrator)
	scheduleHandler := rh.NewScheduleHandler(coordinator)
	connectionHandler := rh.NewConnectionHandler(connectionRepo, credentialVault)
	postHandler := rh.NewPostHandler(postRepo)

	router := api.SetupRoutes(
		userHandler,
		articleHandler,
		carouselHandler,
		scheduleHandler,
		connectionHandler,
		postHandler,
		autoPublisher.HandleTick,
	)

	startServer(cfg.port, router)
}

func loadConfig() config {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		dbURL = defaultDatabaseURL
		log.Println("WARNING: DB_CONNECTION_STRING not set, using default local connection string.")
	}

	vaultKey := os.Getenv("VAULT_KEY")
	if vaultKey == "" {
		log.Println("WARNING: VAULT_KEY not set. Credential storage and publishing will fail at startup.")
	}

	openAIAPIKey := os.Getenv("OPENAI_API_KEY")
	if openAIAPIKey == "" {
		log.Println("WARNING: OPENAI_API_KEY not set. Image generation will fail at runtime.")
	}

	platformBaseURL := os.Getenv("PLATFORM_BASE_URL")
	if platformBaseURL == "" {
		platformBaseURL = defaultPlatformBaseURL
	}

	documentDir := os.Getenv("DOCUMENT_DIR")
	if documentDir == "" {
		documentDir = defaultDocumentDir
	}

	documentBaseURL := os.Getenv("DOCUMENT_BASE_URL")
	if documentBaseURL == "" {
		documentBaseURL = defaultDocumentBaseURL
	}

	return config{
		port:            port,
		databaseURL:     dbURL,
		vaultKey:        vaultKey,
		openAIAPIKey:    openAIAPIKey,
		openAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		imageModel:      os.Getenv("IMAGE_MODEL"),
		textModel:       os.Getenv("TEXT_MODEL"),
		platformBaseURL: platformBaseURL,
		documentDir:     documentDir,
		documentBaseURL: documentBaseURL,
		notifyEndpoint:  os.Getenv("NOTIFY_WEBHOOK_URL"),
		notifyAPIKey:    os.Getenv("NOTIFY_API_KEY"),
	}
}

func setupDatabase(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close unusable connection pool
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection successful")
	return db, nil
}

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
