package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/marcusleow/bankline-be/internal/chat"
	"github.com/marcusleow/bankline-be/internal/config"
	"github.com/marcusleow/bankline-be/internal/models"
	"github.com/marcusleow/bankline-be/internal/server"
	"github.com/marcusleow/bankline-be/internal/storage"
	"github.com/marcusleow/bankline-be/internal/storage/memory"
	"github.com/marcusleow/bankline-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	var store storage.Store
	switch cfg.Storage {
	case config.StorageMemory:
		log.Println("using in-memory storage; state will not survive restarts")
		store = memory.NewStore()
	default:
		pgStore, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("init database: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
	}

	completer := chat.NewOpenAIClient(chat.ClientConfig{
		BaseURL: cfg.ChatAPIBaseURL,
		APIKey:  cfg.ChatAPIKey,
		Model:   cfg.ChatModel,
		Timeout: cfg.ChatTimeout,
	})
	bridge := chat.NewBridge(completer, chat.NewHistory(cfg.ChatHistoryLimit), models.PolicyCatalog())

	srv := server.New(cfg, store, bridge)

	go func() {
		log.Printf("Bankline backend listening on %s", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
