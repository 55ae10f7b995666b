package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mealcourt/go-food-orders/internal/auth"
	"github.com/mealcourt/go-food-orders/internal/config"
	"github.com/mealcourt/go-food-orders/internal/httpx"
	"github.com/mealcourt/go-food-orders/internal/images"
	kafkax "github.com/mealcourt/go-food-orders/internal/kafka"
	"github.com/mealcourt/go-food-orders/internal/orders"
	"github.com/mealcourt/go-food-orders/internal/payments"
	"github.com/mealcourt/go-food-orders/internal/postgres"
	"github.com/mealcourt/go-food-orders/internal/redisx"
	"github.com/mealcourt/go-food-orders/internal/restaurants"
	"github.com/mealcourt/go-food-orders/internal/users"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Bootstrap(ctx, db); err != nil {
		log.Fatalf("db bootstrap: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pPlaced.Start(ctx)
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pChanged := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pChanged.Start(ctx)

	// Identity
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCAudience)
	if err != nil {
		log.Fatalf("oidc verifier: %v", err)
	}

	// Image storage
	uploader, err := images.NewS3Uploader(ctx, cfg.S3Bucket, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("s3 uploader: %v", err)
	}

	// Repos & services
	userRepo := &users.Repo{DB: db}
	restaurantRepo := &restaurants.Repo{DB: db}
	orderService := &orders.Service{
		Orders:      &orders.Repo{DB: db},
		Restaurants: restaurantRepo,
		Payments:    payments.New(cfg.StripeAPIKey, cfg.StripeWebhookSecret, cfg.FrontendURL, cfg.Currency),
		Placed:      pPlaced,
		Paid:        pPaid,
		Changed:     pChanged,
		Cache:       &orders.RedisCache{Client: rdb},
		ServiceName: cfg.ServiceName,
	}

	requireToken := auth.RequireToken(verifier)
	requireUser := auth.RequireUser(verifier, userRepo)

	router := httpx.NewRouter(cfg.AllowedOrigins)
	(&httpx.UsersHandler{Store: userRepo}).Register(router, requireToken, requireUser)
	(&httpx.RestaurantsHandler{
		Store:       restaurantRepo,
		Images:      uploader,
		FrontendURL: cfg.FrontendURL,
	}).Register(router, requireUser)
	(&httpx.OrdersHandler{Service: orderService}).Register(router, requireUser)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		slog.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	pPlaced.Close()
	pPaid.Close()
	pChanged.Close()
	cancel()
	pPlaced.WaitClosed()
	pPaid.WaitClosed()
	pChanged.WaitClosed()
}
