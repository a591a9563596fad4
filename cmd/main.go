package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"civicgo/backend/internal/api/handler"
	"civicgo/backend/internal/config"
	"civicgo/backend/internal/escalation"
	"civicgo/backend/internal/geocode"
	"civicgo/backend/internal/hub"
	"civicgo/backend/internal/intake"
	"civicgo/backend/internal/mlservice"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/report"
	"civicgo/backend/internal/status"
	"civicgo/backend/internal/storage"
	"civicgo/backend/internal/telegram"
	"civicgo/backend/internal/upvote"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	// TranslateError maps driver unique-violation errors onto
	// gorm.ErrDuplicatedKey, which the storage layer relies on.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.StatusHistoryEntry{},
		&models.UpvoteRecord{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting CivicGo Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload dir: %v", err)
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	// Municipal notifications are optional; without a bot token the
	// notifier interfaces stay nil and the services skip notification.
	var intakeNotifier intake.Notifier
	var escalationNotifier escalation.Notifier
	if cfg.TelegramBotToken != "" {
		notifier, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.MunicipalChatID)
		if err != nil {
			log.Fatalf("Failed to start Telegram notifier: %v", err)
		}
		intakeNotifier = notifier
		escalationNotifier = notifier
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, municipal notifications disabled")
	}

	var classifier intake.Classifier
	if cfg.MLServiceURL != "" {
		classifier = mlservice.NewClient(cfg.MLServiceURL)
	}
	var reports intake.ReportGenerator
	if cfg.ReportServiceURL != "" {
		reports = report.NewGenerator(cfg.ReportServiceURL)
	}
	geocoder := geocode.NewClient(cfg.GeocoderURL)

	transitions := status.NewService(s, s)
	upvotes := upvote.NewService(s)
	intakeSvc := intake.NewService(s, classifier, geocoder, reports, intakeNotifier)

	manager := hub.NewManager()
	go manager.Run()
	manager.StartEventListener(s)

	scheduler := escalation.NewScheduler(s, transitions, escalationNotifier, cfg.EscalationCron)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start escalation scheduler: %v", err)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	h := handler.NewHandler(s, intakeSvc, transitions, upvotes, manager, []byte(cfg.JWTSecret), cfg.UploadDir)

	r.POST("/auth/token", h.GetToken)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/complaints/feed", h.Feed)
	r.Static("/uploads", cfg.UploadDir)

	authed := r.Group("/", h.AuthRequired())
	{
		authed.POST("/complaints", h.CreateComplaint)
		authed.GET("/complaints", h.ListComplaints)
		authed.GET("/complaints/my-complaints", h.MyComplaints)
		authed.GET("/complaints/:id", h.GetComplaint)
		authed.GET("/complaints/:id/status-history", h.StatusHistory)
		authed.POST("/complaints/:id/upvote", h.ToggleUpvote)
		authed.PUT("/complaints/:id/status", h.UpdateStatus)

		authed.GET("/complaints/city/:city",
			h.RequireRole(models.RoleOfficer, models.RoleAdmin), h.ComplaintsByCity)
		authed.DELETE("/complaints/:id",
			h.RequireRole(models.RoleAdmin), h.DeleteComplaint)
	}

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
