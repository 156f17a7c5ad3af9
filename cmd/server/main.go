// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/D34dlyK1ss/whoisit/internal/auth"
	"github.com/D34dlyK1ss/whoisit/internal/cache"
	"github.com/D34dlyK1ss/whoisit/internal/database"
	"github.com/D34dlyK1ss/whoisit/internal/game"
	"github.com/D34dlyK1ss/whoisit/internal/handlers"
	"github.com/D34dlyK1ss/whoisit/internal/mailer"
	"github.com/D34dlyK1ss/whoisit/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	var reporter game.ResultReporter
	if err := cache.ConnectRedis(); err != nil {
		// the in-memory outcome stays authoritative; results just won't be
		// persisted until Redis is back
		logger.Warnf("redis unavailable, match results will be dropped: %v", err)
		reporter = &logReporter{logger}
	} else {
		reporter = &cache.ResultReporter{Log: logger}
	}

	conns := handlers.NewConnRegistry(logger)
	games := game.NewRegistry(logger, conns, reporter)
	codes := auth.NewCodeStore(auth.DefaultCodeTTL)
	srv := handlers.NewServer(logger, conns, games, codes, mailer.NewFromEnv(logger))

	mux := http.NewServeMux()
	mux.Handle("/", middleware.LogMiddleware(logger)(http.HandlerFunc(handlers.PingHandler)))
	mux.HandleFunc("/ws", handlers.WSHandler(logger, srv))

	addr := ":9090"
	if port := os.Getenv("SERVER_PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
