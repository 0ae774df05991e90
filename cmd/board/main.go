package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-campus-tokens.git/internal/board"
	"github.com/ariefcatur/go-campus-tokens.git/internal/config"
	kafkax "github.com/ariefcatur/go-campus-tokens.git/internal/kafka"
	"github.com/ariefcatur/go-campus-tokens.git/internal/postgres"
	"github.com/ariefcatur/go-campus-tokens.git/internal/redisx"
	"github.com/ariefcatur/go-campus-tokens.git/internal/tokens"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &board.Service{
		Source:      &tokens.PG{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-board",
	}

	group := getenv("BOARD_GROUP", "queue-board")
	workers := atoi(getenv("BOARD_WORKERS", "4"), 4)

	// one consumer per topic, same handler
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{tokens.TopicTokenPlaced, tokens.TopicTokenStatusChanged} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		topic := topic
		g.Go(func() error {
			log.Printf("board consumer started: group=%s topic=%s workers=%d", group, topic, workers)
			return cons.Start(gctx, svc.HandleTokenEvent)
		})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down board...")
		cancel()
	case <-gctx.Done():
	}
	if err := g.Wait(); err != nil {
		log.Printf("consumer exit: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
