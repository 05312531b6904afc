package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"SalesBudgetSuite/api"
	"SalesBudgetSuite/internal/appmanager"
	"SalesBudgetSuite/internal/cache"
	"SalesBudgetSuite/internal/config"
	"SalesBudgetSuite/internal/division"
)

// InitMasterDB loads the master (division registry / settings) DB from env vars
func InitMasterDB() (*sql.DB, error) {
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")
	connStr := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		user, pass, host, port, name,
	)
	return sql.Open("postgres", connStr)
}

func main() {
	// Load .env for local dev
	_ = godotenv.Load("../.env")

	ctx := context.Background()

	masterDB, err := InitMasterDB()
	if err != nil {
		log.Fatal("failed to connect to master DB:", err)
	}
	if err := masterDB.PingContext(ctx); err != nil {
		log.Println("[WARN] master DB unreachable:", api.PqUserFriendlyMessage(err))
	}
	appmanager.SetMasterDB(masterDB)

	// Division allow-list: master DB first, env/defaults otherwise
	defaults := strings.Split(config.DefaultDivisions, ",")
	if env := os.Getenv("DIVISIONS"); env != "" {
		defaults = strings.Split(env, ",")
	}
	codes := division.LoadCodesFromMaster(masterDB, defaults)

	registry := division.NewRegistry()
	if err := registry.RegisterFromEnv(ctx, codes); err != nil {
		log.Fatal("failed to register divisions:", err)
	}
	defer registry.Close()
	appmanager.SetDivisionRegistry(registry)

	// Idempotent schema creation runs once, before the HTTP surface starts
	if err := registry.Bootstrap(ctx); err != nil {
		log.Fatal("schema bootstrap failed:", err)
	}

	payloadCache := cache.NewFromEnv()
	defer payloadCache.Close()
	appmanager.SetPayloadCache(payloadCache)

	manager := appmanager.NewAppManager()

	servicesCfg, err := appmanager.LoadServiceSequence("../services.yaml")
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}
	manager.AutoRegisterServices(servicesCfg)

	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		log.Fatal("failed to stop:", err)
	}
}
