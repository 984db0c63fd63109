package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docquiz-core/internal/adapters/driven/ai"
	"github.com/custodia-labs/docquiz-core/internal/adapters/driven/auth"
	"github.com/custodia-labs/docquiz-core/internal/adapters/driven/filestore"
	"github.com/custodia-labs/docquiz-core/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/docquiz-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/docquiz-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/docquiz-core/internal/adapters/driven/redis"
	"github.com/custodia-labs/docquiz-core/internal/adapters/driven/remote"
	httpserver "github.com/custodia-labs/docquiz-core/internal/adapters/driving/http"
	"github.com/custodia-labs/docquiz-core/internal/chunker"
	"github.com/custodia-labs/docquiz-core/internal/config"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
	"github.com/custodia-labs/docquiz-core/internal/core/services"
	"github.com/custodia-labs/docquiz-core/internal/embeddingcache"
	"github.com/custodia-labs/docquiz-core/internal/extract"
	"github.com/custodia-labs/docquiz-core/internal/worker"
)

var version = "dev"

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load(getEnv("CONFIG_PATH", ""))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("docquiz-core %s starting in %s mode", version, mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleSec) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== PostgreSQL stores =====
	documentStore := postgres.NewDocumentStore(db)
	chunkStore := postgres.NewChunkStore(db)
	logStore := postgres.NewProcessingLogStore(db)
	bankStore := postgres.NewQuizBankStore(db)
	attemptStore := postgres.NewQuizAttemptStore(db)

	// ===== Task queue (Redis if available, otherwise PostgreSQL) =====
	var taskQueue driven.TaskQueue
	if redisClient != nil {
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		log.Println("Using Redis task queue")
	} else {
		taskQueue = postgresqueue.NewQueue(db.DB)
		log.Println("Using PostgreSQL task queue")
	}

	// ===== Distributed lock (Redis if available, otherwise advisory locks) =====
	var distributedLock driven.DistributedLock
	if redisClient != nil {
		distributedLock = redisadapter.NewLock(redisClient)
		log.Println("Using Redis distributed lock")
	} else {
		distributedLock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL advisory lock")
	}

	// ===== File store =====
	fileStore, err := filestore.NewLocalStore(cfg.Files.RootDir, cfg.Files.SignSecret, cfg.Files.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create file store: %v", err)
	}

	// ===== AI providers =====
	embedder, err := ai.NewOpenAIEmbedding(cfg.AI.APIKey, cfg.AI.EmbeddingModel, cfg.AI.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create embedding provider: %v", err)
	}
	cachedEmbedder := embeddingcache.NewCachedEmbedder(embedder, embeddingcache.New())

	questionGenerator, err := ai.NewOpenAIQuestionGenerator(cfg.AI.APIKey, cfg.AI.QuestionModel, cfg.AI.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create question generator: %v", err)
	}

	// ===== Remote execution venue =====
	remoteExecutor, err := remote.NewFunctionExecutor(remote.FunctionConfig{
		FunctionURL:   cfg.Remote.FunctionURL,
		AuthToken:     cfg.Remote.AuthToken,
		Enabled:       cfg.Remote.Enabled,
		SizeThreshold: cfg.Remote.SizeThresholdBytes,
		Timeout:       time.Duration(cfg.Remote.TimeoutSec) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to create remote executor: %v", err)
	}
	if cfg.Remote.Enabled {
		log.Printf("Remote execution enabled (threshold=%d bytes)", cfg.Remote.SizeThresholdBytes)
	}

	// ===== Pipeline components =====
	extractor := extract.NewPDFExtractor()
	splitter := chunker.New(chunker.Config{
		MaxChunkSize:       cfg.Chunking.MaxChunkSize,
		Overlap:            cfg.Chunking.Overlap,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	})

	// ===== Auth =====
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	permissions := auth.NewPermissionChecker(documentStore)

	// ===== Services =====
	logger := slog.Default()

	documentService := services.NewDocumentService(documentStore, chunkStore, fileStore, logger)
	processingService := services.NewProcessingOrchestrator(services.ProcessingConfig{
		DocumentStore: documentStore,
		ChunkStore:    chunkStore,
		LogStore:      logStore,
		FileStore:     fileStore,
		Extractor:     extractor,
		Splitter:      splitter,
		Embedder:      cachedEmbedder,
		Remote:        remoteExecutor,
		Lock:          distributedLock,
		TaskQueue:     taskQueue,
		Logger:        logger,
		RemoteTimeout: time.Duration(cfg.Processing.RemoteTimeoutSec) * time.Second,
	})
	quizService := services.NewQuizGeneratorService(services.QuizConfig{
		DocumentStore: documentStore,
		ChunkStore:    chunkStore,
		BankStore:     bankStore,
		AttemptStore:  attemptStore,
		LogStore:      logStore,
		Generator:     questionGenerator,
		Logger:        logger,
	})

	runServer := func() {
		server := httpserver.NewServer(
			httpserver.Config{
				Host:    cfg.Server.Host,
				Port:    cfg.Server.Port,
				Version: version,
			},
			documentService,
			processingService,
			quizService,
			verifier,
			permissions,
			taskQueue,
			fileStore,
			db,
			redisPinger(redisClient),
		)

		log.Printf("API server starting on :%d", cfg.Server.Port)
		if err := server.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	runWorker := func() {
		w := worker.NewWorker(worker.WorkerConfig{
			TaskQueue:      taskQueue,
			Processing:     processingService,
			Quiz:           quizService,
			Logger:         logger,
			Concurrency:    cfg.Worker.Concurrency,
			DequeueTimeout: cfg.Worker.DequeueTimeoutSec,
		})

		if err := w.Start(ctx); err != nil {
			log.Fatalf("Failed to start worker: %v", err)
		}
		log.Println("Worker started, processing tasks...")

		<-ctx.Done()
		log.Println("Stopping worker...")
		w.Stop()
		log.Println("Worker stopped")
	}

	switch mode {
	case "api":
		runServer()
	case "worker":
		runWorker()
	case "all":
		go runWorker()
		runServer()
	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", mode)
	}
}

// redisPinger adapts the optional Redis client to the server's Pinger
func redisPinger(client *redis.Client) httpserver.Pinger {
	if client == nil {
		return nil
	}
	return pingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
