package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/config"
	"github.com/gatehouse-dev/gatehouse/internal/email"
	"github.com/gatehouse-dev/gatehouse/internal/logging"
	"github.com/gatehouse-dev/gatehouse/internal/middleware"
	"github.com/gatehouse-dev/gatehouse/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel)
	defer log.Sync()

	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("mongo connect", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	audit := store.NewAuditStore(mongoClient.Database(cfg.MongoDB))

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	sessions := auth.NewRedisSessions(rdb)

	// ── MinIO ────────────────────────────────────────────────
	avatars, err := store.NewAvatarStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatal("minio connect", zap.Error(err))
	}

	// ── Handlers ─────────────────────────────────────────────
	if cfg.TokenSecret == "" {
		log.Fatal("TOKEN_SECRET is required")
	}
	mailer := email.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom)
	authHandler := auth.NewHandler(auth.Deps{
		Users:    pgStore,
		Sessions: sessions,
		Mailer:   mailer,
		Audit:    audit,
		Avatars:  avatars,
		Providers: []*auth.Provider{
			auth.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BaseURL),
			auth.GitHubProvider(cfg.GithubClientID, cfg.GithubClientSecret, cfg.BaseURL),
		},
		TokenSecret: []byte(cfg.TokenSecret),
		BaseURL:     cfg.BaseURL,
		Log:         log,
	})

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	requireAuth := middleware.RequireAuth(sessions, pgStore)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/signout", authHandler.SignOut)
		r.Post("/resend-verification", authHandler.ResendVerification)
		r.Get("/verify-email", authHandler.VerifyEmail)
		r.Get("/oauth/{provider}/start", authHandler.OAuthStart)
		r.Get("/oauth/{provider}/callback", authHandler.OAuthCallback)
		r.With(requireAuth).Get("/me", authHandler.Me)
		r.With(requireAuth).Get("/me/avatar", authHandler.MeAvatar)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAuth, middleware.RequireAdmin)
		r.Get("/events", authHandler.ListEvents)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
