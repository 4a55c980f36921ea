package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/example/grocer-shop/internal/analytics"
	"github.com/example/grocer-shop/internal/infrastructure/kafka"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "cart-events")
	consumerGroup := getEnv("KAFKA_CONSUMER_GROUP", "analytics")

	log.Println("[Analytics] ========================================")
	log.Println("[Analytics] Grocer Shop - Trending Feed")
	log.Println("[Analytics] ========================================")
	log.Printf("[Analytics] Kafka: %v", kafkaBrokers)
	log.Printf("[Analytics] Topic: %s", kafkaTopic)
	log.Printf("[Analytics] Group: %s", consumerGroup)

	tracker := analytics.NewTracker()

	consumer := kafka.NewEventReader(kafkaBrokers, kafkaTopic, consumerGroup)
	defer consumer.Close()

	go func() {
		log.Println("[Analytics] Starting event consumer...")
		if err := consumer.Run(ctx, tracker.HandleEvent); err != nil {
			if ctx.Err() == nil {
				log.Printf("[Analytics] Consumer error: %v", err)
			}
		}
	}()

	// Periodic snapshot of the feed to the log
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for i, pc := range tracker.TopN(5) {
					log.Printf("[Analytics] #%d product=%d %q adds=%d", i+1, pc.ProductID, pc.Name, pc.Adds)
				}
			}
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Analytics] Shutting down...")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
