package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealcoach/coaching-app/internal/api"
	"mealcoach/coaching-app/internal/config"
	"mealcoach/coaching-app/internal/identity"
	"mealcoach/coaching-app/internal/logger"
	"mealcoach/coaching-app/internal/mailer"
	"mealcoach/coaching-app/internal/repository/mongo"
	"mealcoach/coaching-app/internal/service"
	"mealcoach/coaching-app/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	if err := logger.Init(cfg.Logging.Level); err != nil {
		panic("could not initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting coaching server...")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Error("Could not connect to MongoDB", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		logger.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("Database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureCoachIndexes(ctx, appDB.Collection("coaches"))
		mongo.EnsureConnectionIndexes(ctx, appDB.Collection("connections"))
		mongo.EnsureInviteCodeIndexes(ctx, appDB.Collection("invite_codes"))
		mongo.EnsureReminderIndexes(ctx, appDB.Collection("reminder_requests"))
		mongo.EnsureLeadIndexes(ctx, appDB.Collection("coaching_leads"))
		mongo.EnsureEntryIndexes(ctx, appDB.Collection("meal_entries"), appDB.Collection("weight_entries"))
		logger.Info("Index creation process completed")
	}()

	// --- Initialize Storage ---
	photoStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		logger.Error("Failed to initialize S3 storage", zap.Error(err))
		os.Exit(1)
	}

	// --- Initialize Mailer ---
	mail, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Enabled:  cfg.Mail.Enabled,
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	if err != nil {
		logger.Error("Failed to initialize mailer", zap.Error(err))
		os.Exit(1)
	}

	// --- Initialize Repositories ---
	coachRepo := mongo.NewMongoCoachRepository(appDB)
	connectionRepo := mongo.NewMongoConnectionRepository(appDB)
	inviteCodeRepo := mongo.NewMongoInviteCodeRepository(appDB)
	sharingRepo := mongo.NewMongoSharingRepository(appDB)
	reminderRepo := mongo.NewMongoReminderRepository(appDB)
	leadRepo := mongo.NewMongoLeadRepository(appDB)
	mealRepo := mongo.NewMongoMealEntryRepository(appDB)
	weightRepo := mongo.NewMongoWeightEntryRepository(appDB)
	directory := identity.NewMongoDirectory(appDB)

	// --- Initialize Services ---
	capacityService := service.NewCapacityService(connectionRepo, cfg.Coaching.TierLimits, cfg.Coaching.MaxExtraClients)
	codeIssuer := service.NewCodeIssuer(inviteCodeRepo, cfg.Coaching.InviteCodeTTL)
	coachService := service.NewCoachService(coachRepo, capacityService)
	connectionService := service.NewConnectionService(
		connectionRepo, inviteCodeRepo, sharingRepo, coachRepo,
		directory, mail, capacityService, codeIssuer,
	)
	sharingService := service.NewSharingService(connectionRepo, sharingRepo, mealRepo, weightRepo, photoStorage)
	reminderService := service.NewReminderService(reminderRepo, connectionRepo)
	leadService := service.NewLeadService(leadRepo, cfg.Coaching.LeadInterval)
	entryService := service.NewEntryService(mealRepo, weightRepo, reminderRepo, photoStorage)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	api.SetupRoutes(
		router,
		cfg.JWT.Secret,
		coachService,
		connectionService,
		sharingService,
		reminderService,
		leadService,
		entryService,
	)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Server starting", zap.String("address", cfg.Server.Address))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ListenAndServe error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server exiting.")
}
