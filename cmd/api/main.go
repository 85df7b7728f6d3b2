package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"snappin/internal/adapter/api"
	"snappin/internal/adapter/api/handler"
	apimiddleware "snappin/internal/adapter/api/middleware"
	"snappin/internal/adapter/api/router"
	"snappin/internal/adapter/repository"
	"snappin/internal/domain/service"
	"snappin/internal/infrastructure/docstore"
	"snappin/internal/infrastructure/docstore/firestore"
	"snappin/internal/infrastructure/docstore/memstore"
	"snappin/internal/infrastructure/firebase"
	"snappin/internal/infrastructure/ratelimit"
	"snappin/internal/infrastructure/storage"
	"snappin/internal/infrastructure/websocket"
	"snappin/internal/usecase"
	"snappin/pkg/config"
	"snappin/pkg/logger"
)

// backend is everything that differs between the Firebase deployment and
// the self-contained in-memory one.
type backend struct {
	store    docstore.Store
	objects  service.ObjectStore
	provider usecase.IdentityProvider
	verifier usecase.TokenVerifier
}

func (b *backend) Close() {
	if err := b.objects.Close(); err != nil {
		logger.Warn("Failed to close object store: %v", err)
	}
	if err := b.store.Close(); err != nil {
		logger.Warn("Failed to close document store: %v", err)
	}
}

func credentials(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))}
	}
	if cfg.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountPath); err != nil {
			logger.Error("Service account file does not exist: %s", cfg.FirebaseServiceAccountPath)
			os.Exit(1)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)}
	}
	logger.Info("Using application default credentials")
	return nil
}

func firebaseBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	opts := credentials(cfg)

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject, StorageBucket: cfg.StorageBucket}, opts...)
	if err != nil {
		return nil, err
	}
	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, err
	}

	store, err := firestore.NewFromProject(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		return nil, err
	}

	objects, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	authProvider := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseApiKey)
	return &backend{
		store:    store,
		objects:  objects,
		provider: authProvider,
		verifier: authProvider,
	}, nil
}

func memoryBackend(cfg *config.Config) *backend {
	bucket := cfg.StorageBucket
	if bucket == "" {
		bucket = "local"
	}
	identities := firebase.NewDevIdentityProvider()
	return &backend{
		store:    memstore.New(),
		objects:  storage.NewMemoryObjectStore(bucket),
		provider: identities,
		verifier: identities,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Configure(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var b *backend
	if cfg.UsesMemoryStore() {
		logger.Warn("Using in-memory store: data is lost on restart")
		b = memoryBackend(cfg)
	} else {
		b, err = firebaseBackend(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Firebase: %v", err)
			os.Exit(1)
		}
	}
	defer b.Close()

	userRepo := repository.NewUserRepository(b.store)
	chatRepo := repository.NewChatRepository(b.store)
	groupRepo := repository.NewGroupRepository(b.store)
	messageRepo := repository.NewMessageRepository(b.store)
	threadRepo := repository.NewThreadRepository(b.store)
	statusRepo := repository.NewStatusRepository(b.store)

	presenceUseCase := usecase.NewPresenceUseCase(userRepo)
	authUseCase := usecase.NewAuthUseCase(b.provider, presenceUseCase)
	userUseCase := usecase.NewUserUseCase(userRepo)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo)
	groupUseCase := usecase.NewGroupUseCase(groupRepo)
	messageUseCase := usecase.NewMessageUseCase(messageRepo, threadRepo, cfg.MarkAllReadConcurrency)
	statusUseCase := usecase.NewStatusUseCase(statusRepo, cfg.StatusTTL)
	mediaUseCase := usecase.NewMediaUseCase(b.objects)
	syncUseCase := usecase.NewSyncUseCase(messageRepo, chatRepo, groupRepo, userRepo, statusRepo, cfg.StatusTTL)

	limiter := ratelimit.NewRateLimiter(map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage: ratelimit.PerMinute(cfg.MessagesPerMinute),
		ratelimit.ActionCreateChat:  ratelimit.PerHour(cfg.ChatsPerHour),
	})
	limiter.StartCleanupRoutine(ctx)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)
	frames := websocket.NewHandler(ctx, syncUseCase, messageUseCase, chatUseCase, groupUseCase)

	handler.Setup(handler.UseCases{
		Auth:    authUseCase,
		User:    userUseCase,
		Chat:    chatUseCase,
		Group:   groupUseCase,
		Message: messageUseCase,
		Status:  statusUseCase,
		Media:   mediaUseCase,
	})
	handler.GetAuthHandler().OnLogout(wsManager.DisconnectUser)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	} else {
		e.Use(middleware.CORS())
	}

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(b.verifier)
	healthHandler := handler.NewHealthHandler(wsManager, cfg.StoreBackend)
	wsHandler := handler.NewWebSocketHandler(wsManager, frames, authMiddleware, authUseCase, cfg.AllowedOrigins)

	router.Setup(e, authMiddleware, limiter, healthHandler, wsHandler)

	go func() {
		logger.Info("Starting server on port %s (%s backend)...", cfg.ServerPort, cfg.StoreBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
