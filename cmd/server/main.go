package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/elvisOC/P10/internal/activity"
	"github.com/elvisOC/P10/internal/auth"
	"github.com/elvisOC/P10/internal/authz"
	"github.com/elvisOC/P10/internal/config"
	"github.com/elvisOC/P10/internal/issues"
	"github.com/elvisOC/P10/internal/middleware"
	"github.com/elvisOC/P10/internal/projects"
	"github.com/elvisOC/P10/internal/store"
	"github.com/elvisOC/P10/internal/users"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set; refusing to start")
	}

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	sessions := auth.NewRefreshStore(rdb)

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	eventStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("minio connect: %v", err)
	}

	// ── Handlers ─────────────────────────────────────────────
	tokens := auth.NewTokens(cfg.JWTSecret)
	checker := authz.NewChecker(pgStore)
	recorder := activity.NewRecorder(eventStore, pgStore)

	authHandler := auth.NewHandler(pgStore, tokens, sessions)
	userHandler := users.NewHandler(pgStore)
	projectHandler := projects.NewHandler(pgStore, pgStore, checker, recorder)
	issueHandler := issues.NewHandler(pgStore, pgStore, pgStore, minioStore, checker, recorder)
	activityHandler := activity.NewHandler(eventStore, pgStore, checker)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Filename"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/signup", userHandler.Signup)
		r.Post("/token", authHandler.Token)
		r.Post("/token/refresh", authHandler.Refresh)

		// Everything else requires a valid access token
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", userHandler.Me)
				r.Put("/", userHandler.UpdateMe)
				r.Patch("/", userHandler.UpdateMe)
				r.Delete("/", userHandler.DeleteMe)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Post("/", projectHandler.Create)

				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", projectHandler.Get)
					r.Put("/", projectHandler.Update)
					r.Delete("/", projectHandler.Delete)

					r.Get("/activity", activityHandler.List)

					r.Route("/contributors", func(r chi.Router) {
						r.Get("/", projectHandler.ListContributors)
						r.Post("/", projectHandler.AddContributor)
						r.Delete("/{contributorID}", projectHandler.RemoveContributor)
					})

					r.Route("/issues", func(r chi.Router) {
						r.Get("/", issueHandler.List)
						r.Post("/", issueHandler.Create)

						r.Route("/{issueID}", func(r chi.Router) {
							r.Get("/", issueHandler.Get)
							r.Put("/", issueHandler.Update)
							r.Delete("/", issueHandler.Delete)

							r.Route("/comments", func(r chi.Router) {
								r.Get("/", issueHandler.ListComments)
								r.Post("/", issueHandler.CreateComment)
								r.Get("/{commentID}", issueHandler.GetComment)
								r.Put("/{commentID}", issueHandler.UpdateComment)
								r.Delete("/{commentID}", issueHandler.DeleteComment)
							})

							r.Route("/attachments", func(r chi.Router) {
								r.Get("/", issueHandler.ListAttachments)
								r.Post("/", issueHandler.UploadAttachment)
								r.Get("/{attachmentID}", issueHandler.DownloadAttachment)
								r.Delete("/{attachmentID}", issueHandler.DeleteAttachment)
							})
						})
					})
				})
			})
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("API listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
