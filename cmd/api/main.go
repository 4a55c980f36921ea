package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/example/grocer-shop/internal/analytics"
	"github.com/example/grocer-shop/internal/api"
	"github.com/example/grocer-shop/internal/auth"
	"github.com/example/grocer-shop/internal/catalog"
	"github.com/example/grocer-shop/internal/domain/cart"
	"github.com/example/grocer-shop/internal/domain/promotion"
	"github.com/example/grocer-shop/internal/infrastructure/kafka"
	"github.com/example/grocer-shop/internal/journal"
	"github.com/example/grocer-shop/internal/session"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	kafkaBrokersStr := os.Getenv("KAFKA_BROKERS")
	kafkaTopic := getEnv("KAFKA_TOPIC", "cart-events")
	postgresConnStr := os.Getenv("DATABASE_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("[API] JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("[API] JWT_SECRET must be at least 32 characters long")
	}

	log.Println("[API] ========================================")
	log.Println("[API] Grocer Shop - Cart & Promotion Service")
	log.Println("[API] ========================================")

	// Catalog: PostgreSQL when configured, seeded in-memory otherwise
	var catalogStore catalog.Store
	if postgresConnStr != "" {
		db, err := catalog.ConnectPostgres(postgresConnStr)
		if err != nil {
			log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()

		pgStore, err := catalog.NewPostgresStore(db)
		if err != nil {
			log.Fatalf("[API] Failed to init catalog store: %v", err)
		}
		for _, p := range catalog.SeedProducts() {
			if err := pgStore.Upsert(ctx, p); err != nil {
				log.Fatalf("[API] Failed to seed product %d: %v", p.ID, err)
			}
		}
		catalogStore = pgStore
		log.Println("[API] Catalog: PostgreSQL")
	} else {
		catalogStore = catalog.NewMemoryStore(catalog.SeedProducts()...)
		log.Println("[API] Catalog: in-memory (no DATABASE_URL)")
	}

	// Kafka fan-out is optional; without brokers the journal stays local
	var producer *kafka.EventWriter
	var jrnl *journal.Journal
	if kafkaBrokersStr != "" {
		kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
		producer = kafka.NewEventWriter(kafkaBrokers, kafkaTopic)
		defer producer.Close()
		jrnl = journal.New(producer)
		log.Printf("[API] Kafka: %v topic=%s", kafkaBrokers, kafkaTopic)
	} else {
		jrnl = journal.New(nil)
		log.Println("[API] Kafka: disabled (no KAFKA_BROKERS)")
	}

	// Promotion rules and the per-session engine factory
	rules := promotion.DefaultRules()
	lookup := promotion.ProductLookup(func(productID int) (catalog.Product, bool) {
		p, err := catalogStore.Get(context.Background(), productID)
		if err != nil {
			return catalog.Product{}, false
		}
		return p, true
	})

	// Trending feed: fed from the cart-event stream when Kafka is up,
	// straight from each session engine otherwise; cmd/analytics runs
	// the standalone variant
	tracker := analytics.NewTracker()

	sessions := session.NewRegistry(func(sessionID string) *cart.Engine {
		recorder := jrnl.Recorder(sessionID)
		if producer == nil {
			recorder = cart.MultiRecorder(recorder, tracker.Recorder())
		}
		return cart.NewEngine(
			promotion.NewEvaluator(rules, lookup),
			cart.WithRecorder(recorder),
		)
	})

	var wg sync.WaitGroup
	if producer != nil {
		kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
		consumer := kafka.NewEventReader(kafkaBrokers, kafkaTopic, "api-trending")
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Println("[API] Starting Kafka consumer (trending feed)...")
			if err := consumer.Run(ctx, tracker.HandleEvent); err != nil {
				if ctx.Err() == nil {
					log.Printf("[API] Trending consumer error: %v", err)
				}
			}
		}()
	}

	// Auth
	accounts := auth.NewAccounts()
	jwtService := auth.NewJWTService(jwtSecret, 24*time.Hour)

	// Initialize API
	handlers := api.NewHandlers(catalogStore, sessions, rules, tracker)
	authHandlers := api.NewAuthHandlers(accounts, jwtService)
	router := api.NewRouter(api.RouterConfig{
		Handlers:     handlers,
		AuthHandlers: authHandlers,
		JWTService:   jwtService,
	})

	server := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on %s", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	wg.Wait()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
