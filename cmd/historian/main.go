// cmd/historian is an asynchronous persister: it pops finished-match records
// from the Redis result queue and writes them to PostgreSQL, bumping the
// aggregate win/loss counters along the way.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/D34dlyK1ss/whoisit/internal/cache"
	"github.com/D34dlyK1ss/whoisit/internal/database"
	"github.com/D34dlyK1ss/whoisit/internal/models"
)

const popTimeout = 5 * time.Second

func main() {
	database.ConnectDB()
	defer database.DB.Close()

	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("historian requires redis: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	queue := cache.QueueName()
	log.Printf("historian consuming queue %q", queue)

	for {
		if err := consumeOne(ctx, queue); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Println("historian shutting down")
				return
			}
			log.Printf("historian: %v", err)
			// brief backoff so a dead collaborator doesn't spin the loop
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

// consumeOne blocks for up to popTimeout waiting for a record, then persists
// it. A record that cannot be decoded is dropped with a log line rather than
// poisoning the queue.
func consumeOne(ctx context.Context, queue string) error {
	res, err := cache.Rdb.BLPop(ctx, popTimeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil // queue idle
		}
		return err
	}
	// BLPop returns [key, value]
	if len(res) < 2 {
		return nil
	}

	var rec models.MatchRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		log.Printf("dropping undecodable record: %v", err)
		return nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := database.RecordMatchResult(dbCtx, rec); err != nil {
		// push it back for a later retry
		if pushErr := cache.Rdb.RPush(ctx, queue, res[1]).Err(); pushErr != nil {
			log.Printf("failed to requeue record %s: %v", rec.ID, pushErr)
		}
		return err
	}

	log.Printf("recorded match %s (%s beat %s)", rec.ID, rec.Winner, rec.Loser)
	return nil
}
