package main

import (
  "context"
  "errors"
  "fmt"
  "net/http"
  "os"
  "os/signal"
  "syscall"
  "time"

  "github.com/slotter-org/aristo-backend/internal/ai"
  "github.com/slotter-org/aristo-backend/internal/db"
  "github.com/slotter-org/aristo-backend/internal/handlers"
  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/repos"
  "github.com/slotter-org/aristo-backend/internal/seed"
  "github.com/slotter-org/aristo-backend/internal/server"
  "github.com/slotter-org/aristo-backend/internal/services"
  "github.com/slotter-org/aristo-backend/internal/socket"
  "github.com/slotter-org/aristo-backend/internal/state"
  "github.com/slotter-org/aristo-backend/internal/utils"
  "github.com/slotter-org/aristo-backend/internal/voice"
)

func main() {
  // Logger Setup
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
  defer stop()

  // Environment Variables
  log.Info("Attempting to load environment variables for Main now...")
  utils.LoadDotEnv(log, ".env")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "", log)
  if jwtSecretKey == "" {
    log.Error("Fatal error: JWT_SECRET_KEY is required")
    os.Exit(1)
  }
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 7*86400, log)
  redisAddress := utils.GetEnv("REDIS_ADDRESS", "", log)
  redisPassword := utils.GetEnv("REDIS_PASSWORD", "", log)
  clientIdleMinutes := utils.GetEnvAsInt("CLIENT_IDLE_MINUTES", 120, log)
  appBaseURL := utils.GetEnv("APP_BASE_URL", "http://localhost:3000", log)
  log.Info("Environment variables loaded for Main :)",
    "accessTokenTTL", accessTokenTTL,
    "refreshTokenTTL", refreshTokenTTL,
    "redisAddress", redisAddress,
    "clientIdleMinutes", clientIdleMinutes,
  )

  // Postgres Setup
  log.Info("Setting Up Postgres from Main now...")
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Fatal error: DB init failed", "error", err)
    os.Exit(1)
  }
  defer postgresService.Close()
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Error("Fatal error: Postgres auto migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()
  log.Info("Postgres Setup From Main Successful :)")

  // Repositories Setup
  log.Info("Setting Up Repositories from Main now...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  oneTimeCodeRepo := repos.NewOneTimeCodeRepo(thePG, log)
  noteRepo := repos.NewNoteRepo(thePG, log)
  resourceRepo := repos.NewResourceRepo(thePG, log)
  log.Info("Repositories Set Up From Main Successful :)")

  // Seed Setup
  log.Info("Attempting to Seed The Postgres From Main now...")
  if err := seed.SeedAll(ctx, thePG, log, userRepo, resourceRepo, seed.Config{
    AdminEmail:      utils.GetEnv("SEED_ADMIN_EMAIL", "", log),
    AdminPassword:   utils.GetEnv("SEED_ADMIN_PASSWORD", "", log),
    AdminName:       utils.GetEnv("SEED_ADMIN_NAME", "", log),
    LibraryJSONPath: utils.GetEnv("SEED_LIBRARY_JSON_PATH", "", log),
  }); err != nil {
    log.Warn("Failed to seed data :(", "error", err)
  }

  // Websocket Setup
  log.Info("Setting Up Websocket Hub From Main Now :)")
  wsHub := socket.NewHub(log)

  // Redis PubSub
  var redisPubSub *socket.RedisPubSub
  if redisAddress != "" {
    log.Info("Setting Up Redis PubSub From Main Now :)")
    redisPubSub, err = socket.NewRedisPubSub(log, redisAddress, redisPassword, utils.GetEnv("REDIS_CHANNEL", socket.DefaultRedisChannel, log))
    if err != nil {
      log.Warn("Failed to init redis pubsub", "error", err)
      redisPubSub = nil
    } else if err := redisPubSub.StartSubscriber(wsHub); err != nil {
      log.Warn("Failed to subscribe to Redis pub/sub", "error", err)
      redisPubSub.Stop()
      redisPubSub = nil
    } else {
      wsHub.SetRedisPubSub(redisPubSub)
      log.Info("Redis pubsub is active!")
    }
  }

  // Services Setup
  log.Info("Setting up Services from Main now...")
  var emailService services.EmailService
  if es, err := services.NewEmailService(log, utils.GetEnv("SENDGRID_API_KEY", "", log), utils.GetEnv("SENDGRID_SUPPORT_EMAIL", "", log), utils.GetEnv("SENDGRID_AUTHORIZATION_EMAIL", "", log)); err != nil {
    log.Warn("Could not init EmailService, password reset disabled", "error", err)
  } else {
    emailService = es
  }
  var textService services.TextService
  if ts, err := services.NewTextService(log, utils.GetEnv("TWILIO_ACCOUNT_SID", "", log), utils.GetEnv("TWILIO_AUTH_TOKEN", "", log), utils.GetEnv("TWILIO_FROM_NUMBER", "", log)); err != nil {
    log.Warn("Could not init TextService, WhatsApp welcome disabled", "error", err)
  } else {
    textService = ts
  }
  var bucketService services.BucketService
  if bucketName := utils.GetEnv("GCS_BUCKET", "", log); bucketName != "" {
    bs, err := services.NewBucketService(ctx, log, bucketName, utils.GetEnv("GCS_CREDENTIALS_FILE", "", log), utils.GetEnv("GCS_PUBLIC_BASE_URL", "", log))
    if err != nil {
      log.Warn("Could not init BucketService, files will be stored as data URLs", "error", err)
    } else {
      bucketService = bs
      defer bs.Close()
    }
  } else {
    log.Warn("GCS_BUCKET not set, files will be stored as data URLs")
  }
  avatarService, err := services.NewAvatarService(log, bucketService, utils.GetEnv("AVATAR_FONT_PATH", "", log), utils.GetEnv("AVATAR_COLORS_PATH", "", log))
  if err != nil {
    log.Error("Fatal error: Cannot init AvatarService", "error", err)
    os.Exit(1)
  }
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, oneTimeCodeRepo, avatarService, emailService, textService, services.AuthOptions{
    JWTSecretKey: jwtSecretKey,
    AccessTTL:    time.Duration(accessTokenTTL) * time.Second,
    RefreshTTL:   time.Duration(refreshTokenTTL) * time.Second,
    AdminEmails:  utils.GetEnvAsList("ADMIN_EMAILS", nil, log),
    AppBaseURL:   appBaseURL,
  })
  meService := services.NewMeService(thePG, log, userRepo, avatarService, bucketService, wsHub)
  syncService := services.NewSyncService(log, noteRepo, resourceRepo, bucketService, wsHub)
  resourceService := services.NewResourceService(log, bucketService, nil)

  textGenerator, err := ai.NewTextGenerator(ctx, ai.Config{
    Provider:      utils.GetEnv("AI_PROVIDER", ai.ProviderGemini, log),
    GeminiAPIKey:  utils.GetEnv("GEMINI_API_KEY", "", log),
    GeminiModel:   utils.GetEnv("GEMINI_MODEL", "", log),
    OpenAIAPIKey:  utils.GetEnv("OPENAI_API_KEY", "", log),
    OpenAIBaseURL: utils.GetEnv("OPENAI_BASE_URL", "", log),
    OpenAIModel:   utils.GetEnv("OPENAI_MODEL", "", log),
  }, log)
  if err != nil {
    log.Warn("Could not init text generator, using demo mode", "error", err)
    textGenerator = ai.NewDemoGenerator()
  }
  defer textGenerator.Close()
  chatService := services.NewChatService(log, textGenerator)

  var voiceDial voice.DialFunc
  if key := utils.GetEnv("GEMINI_API_KEY", "", log); key != "" {
    voiceDial = voice.Dialer(voice.LiveConfig{APIKey: key, SystemInstruction: ai.SystemInstruction}, log)
  } else {
    log.Warn("GEMINI_API_KEY not set, voice companion disabled")
  }
  log.Info("Services Set Up From Main Successful :)")

  // Client State Registry
  registry := state.NewRegistry(state.Options{
    Persistence: syncService,
    Identity:    services.NewIdentity(authService, meService),
    Log:         log,
  })
  adminService := services.NewAdminService(log, userRepo, noteRepo, resourceRepo, registry.Len)
  go sweepClients(ctx, registry, time.Duration(clientIdleMinutes)*time.Minute, log)

  //  Handler Setup
  log.Info("Setting Up Handlers from Main now...")
  router := server.NewRouter(server.RouterConfig{
    AllowOrigins:     utils.GetEnvAsList("CORS_ORIGINS", nil, log),
    Hub:              wsHub,
    AuthMiddleware:   middleware.NewAuthMiddleware(log, authService),
    ClientMiddleware: middleware.NewClientMiddleware(log, registry),
    ClientHandler:    handlers.NewClientHandler(log, registry, meService),
    AuthHandler:      handlers.NewAuthHandler(authService),
    ChatHandler:      handlers.NewChatHandler(log, chatService),
    NoteHandler:      handlers.NewNoteHandler(),
    ResourceHandler:  handlers.NewResourceHandler(log, resourceService),
    MeHandler:        handlers.NewMeHandler(meService),
    AdminHandler:     handlers.NewAdminHandler(adminService),
    VoiceHandler:     handlers.NewVoiceHandler(log, voiceDial),
    WsHandler:        handlers.WsHandler(wsHub, log),
  })
  log.Info("Router Set Up From Main Successful :)")

  port := utils.GetEnv("PORT", "8080", log)
  srv := &http.Server{Addr: ":" + port, Handler: router}
  go func() {
    log.Info("Server listening", "port", port)
    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
      log.Error("Server failed", "error", err)
      stop()
    }
  }()

  <-ctx.Done()
  log.Info("Shutting down...")
  shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
  defer cancel()
  if err := srv.Shutdown(shutdownCtx); err != nil {
    log.Warn("Graceful shutdown failed", "error", err)
  }

  // On Shutdown
  if redisPubSub != nil {
    redisPubSub.Stop()
  }
}

func sweepClients(ctx context.Context, registry *state.Registry, maxIdle time.Duration, log *logger.Logger) {
  if maxIdle <= 0 {
    return
  }
  ticker := time.NewTicker(maxIdle / 4)
  defer ticker.Stop()
  for {
    select {
    case <-ctx.Done():
      return
    case <-ticker.C:
      if n := registry.Sweep(maxIdle); n > 0 {
        log.Debug("Idle clients swept", "removed", n)
      }
    }
  }
}
