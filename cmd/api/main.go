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

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
	"github.com/ariefcatur/go-campus-tokens.git/internal/config"
	"github.com/ariefcatur/go-campus-tokens.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-campus-tokens.git/internal/kafka"
	"github.com/ariefcatur/go-campus-tokens.git/internal/postgres"
	"github.com/ariefcatur/go-campus-tokens.git/internal/redisx"
	"github.com/ariefcatur/go-campus-tokens.git/internal/stalls"
	"github.com/ariefcatur/go-campus-tokens.git/internal/tokens"
	"github.com/ariefcatur/go-campus-tokens.git/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, tokens.TopicTokenPlaced, 1024)
	pPlaced.Start()
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, tokens.TopicTokenStatusChanged, 1024)
	pStatus.Start()

	// Repos & engine
	tokenStore := &tokens.PG{DB: db}
	walletRepo := &wallet.Repo{DB: db}
	stallRepo := &stalls.Repo{DB: db}
	ledger := tokens.NewLedger(tokenStore, cfg.MaxConcurrentOrders)

	sessions := auth.NewSessions(cfg.SessionSecret)
	guard := &httpx.Guard{Sessions: sessions}

	router := httpx.NewRouter()
	(&httpx.AuthHandler{Users: walletRepo, Stalls: stallRepo, Sessions: sessions}).Register(router)
	(&httpx.StallsHandler{Stalls: stallRepo}).Register(router)
	(&httpx.OrdersHandler{
		Ledger: ledger, Tokens: tokenStore, Wallet: walletRepo,
		Guard: guard, Producer: pPlaced, Service: cfg.ServiceName,
	}).Register(router)
	(&httpx.StallHandler{
		Tokens: tokenStore, Guard: guard, Redis: rdb,
		Producer: pStatus, Service: cfg.ServiceName,
	}).Register(router)
	(&httpx.AdminHandler{Users: walletRepo, Tokens: tokenStore, Stalls: stallRepo, Guard: guard}).Register(router)
	(&httpx.SeedHandler{
		Stalls: stallRepo, Admins: walletRepo, Secret: cfg.SeedSecret,
		AdminUsername: cfg.AdminUsername, AdminPassword: cfg.AdminPassword,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pPlaced.Close()
	pStatus.Close()
	pPlaced.WaitClosed()
	pStatus.WaitClosed()
}
