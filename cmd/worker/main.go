package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kiosk/internal/checkin"
	"kiosk/internal/config"
	"kiosk/internal/queue"
	"kiosk/internal/store"
	"kiosk/internal/tally"
)

// Worker consumes recorded-scan messages and keeps the Redis occupancy
// tallies current so the kiosk counter endpoint stays off Postgres.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// A memory queue here is private to this process and never
		// receives anything the API published. Only useful for wiring
		// checks; production runs want the redis backend.
		log.Printf("queue backend %q is process-local; no API messages will arrive", cfg.QueueBackend)
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "kiosk:scans")
	}

	repo := checkin.NewRepository(db.Client)
	counters := tally.New(redisClient.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "scan" {
			continue
		}

		id := string(msg.Body)
		evt, err := repo.GetEvent(ctx, id)
		if err != nil {
			log.Printf("fetch event %s failed: %v", id, err)
			continue
		}

		if err := counters.Record(ctx, evt.Date, evt.Floor); err != nil {
			log.Printf("tally update for event %s failed: %v", id, err)
			continue
		}
	}

	log.Println("worker stopped")
}
