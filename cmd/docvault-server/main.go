package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/docvault/docvault/internal/auditlog"
	"github.com/docvault/docvault/internal/docstore"
	"github.com/docvault/docvault/internal/integrity"
	"github.com/docvault/docvault/internal/ledger"
	"github.com/docvault/docvault/internal/merkle"
	"github.com/docvault/docvault/internal/monitor"
	"github.com/docvault/docvault/internal/objstore"
	"github.com/docvault/docvault/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("docvault exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("docvault")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("server.body_limit_mb", 32)
	viper.SetDefault("ledger.dsn", "")
	viper.SetDefault("ledger.simulation", false)
	viper.SetDefault("ledger.connect_timeout", "10s")
	viper.SetDefault("audit.queue_size", 256)
	viper.SetDefault("audit.commit_timeout", "15s")
	viper.SetDefault("storage.backend", "memory")
	viper.SetDefault("aws.region", "us-east-1")
	viper.SetDefault("aws.endpoint", "")
	viper.SetDefault("aws.s3_bucket", "docvault-documents")
	viper.SetDefault("aws.s3_prefix", "documents/")
	viper.SetDefault("aws.dynamo_table", "docvault-documents")
	viper.SetDefault("monitor.interval", "10m")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Ledger ───────────────────────────────────────────────────────────────
	backend, sim := ledger.Open(context.Background(), ledger.Config{
		DSN:            viper.GetString("ledger.dsn"),
		Simulate:       viper.GetBool("ledger.simulation"),
		ConnectTimeout: viper.GetDuration("ledger.connect_timeout"),
	}, logger)

	audit := auditlog.New(backend, sim, logger,
		auditlog.WithQueueSize(viper.GetInt("audit.queue_size")),
		auditlog.WithCommitTimeout(viper.GetDuration("audit.commit_timeout")),
	)

	// ── Storage ──────────────────────────────────────────────────────────────
	meta, objects, err := openStorage(logger)
	if err != nil {
		return err
	}

	// ── Integrity core ───────────────────────────────────────────────────────
	tree := merkle.New(logger)
	coord := integrity.New(tree, audit, meta, objects, logger)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), time.Minute)
	n, err := coord.LoadFromStore(loadCtx)
	cancelLoad()
	if err != nil {
		return fmt.Errorf("populate merkle tree: %w", err)
	}
	logger.Info("integrity core ready",
		zap.Int("documents", n),
		zap.Bool("simulation", backend.Simulated()),
	)

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Config{
		CORSOrigins:  viper.GetStringSlice("server.cors_origins"),
		RateLimitRPS: viper.GetInt("server.rate_limit_rps"),
		BodyLimit:    viper.GetInt64("server.body_limit_mb") << 20,
	}, server.Deps{
		Integrity: server.NewIntegrityHandler(coord, audit, logger),
		Ledger:    server.NewLedgerHandler(audit, logger),
		Documents: server.NewDocumentHandler(coord, meta, objects, logger),
	}, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// ── Background integrity sweep ───────────────────────────────────────────
	sweepQuit := make(chan struct{})
	if chain, ok := backend.(monitor.ChainVerifier); ok {
		sweeper := monitor.New(chain, audit, coord, monitor.Config{
			Interval: viper.GetDuration("monitor.interval"),
		}, logger)
		go sweeper.Start(sweepQuit)
	}

	httpPort := viper.GetInt("server.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("docvault HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down docvault...")
	close(sweepQuit)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	// Drain the audit queue before exit so queued anchors are not lost.
	audit.Close()

	logger.Info("docvault stopped")
	return nil
}

// openStorage selects the metadata and object stores from configuration.
func openStorage(logger *zap.Logger) (docstore.Store, objstore.Store, error) {
	switch viper.GetString("storage.backend") {
	case "memory":
		logger.Warn("using in-memory storage; documents will not survive a restart")
		return docstore.NewMemory(), objstore.NewMemory(), nil

	case "aws":
		cfg := aws.NewConfig().WithRegion(viper.GetString("aws.region"))
		if endpoint := viper.GetString("aws.endpoint"); endpoint != "" {
			cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
		}
		sess, err := session.NewSession(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("aws session: %w", err)
		}
		meta := docstore.NewDynamo(dynamodb.New(sess), viper.GetString("aws.dynamo_table"))
		objects := objstore.NewS3(s3.New(sess), viper.GetString("aws.s3_bucket"), viper.GetString("aws.s3_prefix"))
		logger.Info("using AWS storage",
			zap.String("bucket", viper.GetString("aws.s3_bucket")),
			zap.String("table", viper.GetString("aws.dynamo_table")),
		)
		return meta, objects, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", viper.GetString("storage.backend"))
	}
}
