package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"marketpulse/server/config"
	"marketpulse/server/internal/api"
	"marketpulse/server/internal/cache"
	"marketpulse/server/internal/database"
	"marketpulse/server/internal/reports"
	"marketpulse/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.Server.DatabasePath)

	// Initialize database
	db, err := database.NewDatabase(cfg.Server.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Reference-value cache shared by the comparison service
	store := cache.New(time.Duration(cfg.Cache.TTLHours)*time.Hour, nil)

	// Initialize router
	router := gin.Default()
	router.Use(cors.Default())
	api.SetupRoutes(router, db, store, cfg)

	// Nightly full recalculation
	builder := reports.NewBuilder(db, cfg, logger, nil)
	sched := scheduler.NewScheduler(builder, store, cfg.Recalculation.ScheduleHour, logger)
	sched.Start()
	defer sched.Stop()

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
