package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-campus-tokens.git/internal/config"
	"github.com/ariefcatur/go-campus-tokens.git/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("schema up to date")
}
