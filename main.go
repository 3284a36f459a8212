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
	"github.com/joho/godotenv"
	"github.com/studyhive/backend/config"
	"github.com/studyhive/backend/handlers"
	"github.com/studyhive/backend/middleware"
	"github.com/studyhive/backend/models"
	"github.com/studyhive/backend/service"
	"github.com/studyhive/backend/store"
)

func main() {
	_ = godotenv.Load()
	config.ValidateEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()

	var s3Service *service.S3Service
	if cfg.S3Bucket != "" {
		s3Service, err = service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3:", err)
		}
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; attachment uploads will fail")
	}

	var mailer *service.Mailer
	if cfg.SMTPHost != "" {
		mailer = service.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	} else {
		log.Println("warning: SMTP_HOST not set; password reset mail disabled")
	}

	var blobs service.BlobStore
	if s3Service != nil {
		blobs = s3Service
	}
	uploader := service.NewUploader(blobs, db)
	redeemer := service.NewRedeemer(db)
	helper := service.NewHelperService(cfg.HelperURL, cfg.HelperAPIKey)

	authHandler := &handlers.AuthHandler{
		DB:         db,
		JWTSecret:  cfg.JWTSecret,
		Mailer:     mailer,
		AppBaseURL: cfg.AppBaseURL,
	}
	codeHandler := &handlers.AccessCodeHandler{
		Redeemer:  redeemer,
		DB:        db,
		JWTSecret: cfg.JWTSecret,
	}
	contentHandler := &handlers.ContentHandler{DB: db, Uploader: uploader}
	adminHandler := &handlers.AdminHandler{DB: db}
	helperHandler := &handlers.HelperHandler{Helper: helper}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Auth(cfg.JWTSecret))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"welcome to studyhive."}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/anonymous", authHandler.Anonymous)
			r.Post("/logout", authHandler.Logout)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Post("/redeem", codeHandler.Redeem)
			r.Post("/dashboard", codeHandler.Dashboard)
			r.Get("/me", authHandler.Me)
		})

		// Content and helper routes need a live profile; any role may use
		// them, ownership is checked per item.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireProfile(db))
			r.Get("/content", contentHandler.List)
			r.Get("/content/search", contentHandler.Search)
			r.Get("/content/{id}", contentHandler.Get)
			r.Post("/content", contentHandler.Create)
			r.Put("/content/{id}", contentHandler.Update)
			r.Delete("/content/{id}", contentHandler.Delete)
			r.Get("/uploads/{taskId}", contentHandler.UploadStatus)
			r.Post("/uploads/{taskId}/cancel", contentHandler.CancelUpload)
			r.Post("/helper/topics", helperHandler.Topics)
		})

		// Official administration.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(db, models.RoleOfficial))
			r.Get("/admin/users", adminHandler.ListUsers)
			r.Post("/admin/users/{id}/block", adminHandler.BlockUser)
			r.Post("/admin/users/{id}/unblock", adminHandler.UnblockUser)
			r.Put("/admin/users/{id}/roles", adminHandler.UpdateRoles)
			r.Delete("/admin/users/{id}", adminHandler.DeleteUser)
			r.Post("/admin/codes", adminHandler.CreateCode)
			r.Get("/admin/codes", adminHandler.ListCodes)
			r.Get("/admin/audit", adminHandler.ListAudit)
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}
