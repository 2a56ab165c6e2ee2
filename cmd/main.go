package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"deskrelay/backend/internal/api/handler"
	"deskrelay/backend/internal/relay"
	"deskrelay/backend/internal/storage"
	"deskrelay/backend/internal/telegram"
	"deskrelay/backend/pkg/config"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file, relying on the environment")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	db, rdb := setupDependencies(cfg, logger)
	store := storage.NewService(db, rdb, logger)
	sessions := storage.NewRedisSessions(rdb, cfg.Session.TTL)

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("failed to connect to Telegram", zap.Error(err))
	}
	logger.Info("authorized on Telegram", zap.String("bot", bot.Self.UserName))

	gateway := telegram.NewGateway(bot, cfg.Telegram.GroupID, logger)
	router := relay.NewRouter(store, sessions, gateway, gateway, logger)
	engine := relay.NewEngine(store, sessions, gateway, gateway, logger)
	botService := telegram.NewBotService(bot, router, engine, store, cfg.Telegram.GroupID, cfg.Services, logger)

	go botService.Run()

	r := gin.Default()
	h := handler.NewHandler(store, router, []byte(cfg.Admin.JWTSecret), cfg.Admin.Key, logger)
	h.Register(r)

	server := &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	logger.Info("admin console listening", zap.String("addr", cfg.HTTP.Addr))
	logger.Fatal("http server stopped", zap.Error(server.ListenAndServe()))
}

func setupDependencies(cfg *config.Config, logger *zap.Logger) (*gorm.DB, *redis.Client) {
	// TranslateError turns unique violations into gorm.ErrDuplicatedKey,
	// which the storage layer maps onto ErrDuplicateActiveThread.
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	if err := storage.AutoMigrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}

	logger.Info("database and Redis connections established")
	return db, rdb
}
