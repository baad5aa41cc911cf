package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/scout-scanner/internal/analysis"
	"github.com/zombor/scout-scanner/internal/lead"
	"github.com/zombor/scout-scanner/internal/scan"
	"github.com/zombor/scout-scanner/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("scout-scanner")
	var (
		port              = fs.IntLong("port", 8080, "HTTP server port")
		dbPath            = fs.StringLong("db", "scout-scanner.db", "Database file path")
		storageType       = fs.StringLong("storage", "local", "Photo storage: 'local' or 'minio'")
		storagePath       = fs.StringLong("storage-path", "./lead-images", "Local photo directory")
		minioEndpoint     = fs.StringLong("minio-endpoint", "localhost:9000", "MinIO/S3 endpoint host:port")
		minioAccessKey    = fs.StringLong("minio-access-key", "", "MinIO/S3 access key")
		minioSecretKey    = fs.StringLong("minio-secret-key", "", "MinIO/S3 secret key")
		minioBucket       = fs.StringLong("minio-bucket", "lead-images", "MinIO/S3 bucket for lead photos")
		minioRegion       = fs.StringLong("minio-region", "us-east-1", "MinIO/S3 region")
		minioSSL          = fs.BoolLong("minio-ssl", "Use TLS for MinIO/S3")
		analyzerType      = fs.StringLong("analyzer", "gemini", "Analyzer type: 'gemini' or 'ollama'")
		geminiKey         = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel       = fs.StringLong("gemini-model", "gemini-2.0-flash", "Google Gemini model name")
		ollamaURL         = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel       = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		webhookURL        = fs.StringLong("webhook-url", "", "CRM webhook URL leads are POSTed to (optional)")
		webhookTimeout    = fs.DurationLong("webhook-timeout", 10*time.Second, "CRM webhook request timeout")
		authUser          = fs.StringLong("auth-user", "", "Admin username (admin routes are refused without it)")
		authPass          = fs.StringLong("auth-pass", "", "Admin password (admin routes are refused without it)")
		jwtSecret         = fs.StringLong("jwt-secret", "", "Secret for admin bearer tokens (optional)")
		tokenTTL          = fs.DurationLong("token-ttl", 12*time.Hour, "Admin bearer token lifetime")
		rendezvousTimeout = fs.DurationLong("rendezvous-timeout", scan.DefaultRendezvousTimeout, "How long to wait for an analysis after the scan animation ends")
		surfaceTTL        = fs.DurationLong("surface-ttl", 30*time.Minute, "Close scan surfaces idle for this long")
		showVersion       = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SCOUT_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Initializing database...")
	db, err := lead.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if *analyzerType == "gemini" && apiKey == "" {
		slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		os.Exit(1)
	}
	slog.Info("Initializing analyzer...", "type", *analyzerType)
	analyzer, err := analysis.New(analysis.Config{
		Kind:        *analyzerType,
		GeminiKey:   apiKey,
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize analyzer", "error", err)
		os.Exit(1)
	}
	defer analyzer.Close()

	slog.Info("Initializing storage...", "type", *storageType)
	var store lead.Storage
	switch *storageType {
	case "local":
		store, err = lead.NewLocalStorage(*storagePath)
	case "minio":
		var minioStore *lead.MinioStorage
		minioStore, err = lead.NewMinioStorage(lead.MinioConfig{
			Endpoint:  *minioEndpoint,
			AccessKey: *minioAccessKey,
			SecretKey: *minioSecretKey,
			Bucket:    *minioBucket,
			Region:    *minioRegion,
			UseSSL:    *minioSSL,
		})
		if err == nil {
			bucketCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err = minioStore.EnsureBucket(bucketCtx)
			cancel()
		}
		store = minioStore
	default:
		err = fmt.Errorf("invalid storage type %q: expected local or minio", *storageType)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	var notifier lead.Notifier
	if *webhookURL != "" {
		notifier = lead.NewWebhook(*webhookURL, *webhookTimeout)
	} else {
		slog.Warn("No CRM webhook configured; leads will only be stored locally")
	}
	leads := lead.NewService(db, store, notifier)

	registry := scan.NewRegistry(analyzer, *surfaceTTL, scan.WithRendezvousTimeout(*rendezvousTimeout))
	go registry.Run(ctx)

	server := web.NewServer(registry, analyzer, leads, web.Auth{
		Username:  *authUser,
		Password:  *authPass,
		JWTSecret: *jwtSecret,
		TokenTTL:  *tokenTTL,
	})

	addr := fmt.Sprintf(":%d", *port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()
	if *authUser != "" && *authPass != "" {
		slog.Info("Admin auth enabled", "user", *authUser, "tokens", *jwtSecret != "")
	} else {
		slog.Warn("Admin credentials not set; admin routes will refuse every request")
	}

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}
