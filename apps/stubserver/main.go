// Command stubserver is an infrastructure-free stand-in for the chat
// service: the six REST endpoints plus the event socket, backed
// entirely by process memory. It exists so the terminal client and the
// access layer can be exercised locally without network access to the
// real service.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; env vars may come from the shell.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	addr := os.Getenv("STUB_ADDR")
	if addr == "" {
		addr = ":8090"
	}
	secret := os.Getenv("STUB_SECRET")
	if secret == "" {
		secret = "stub-development-secret"
	}

	w := newWorld()
	tokens := newTokenMinter(secret, 24*time.Hour)
	h := newHub(w, tokens, logger)
	go h.run()

	s := &server{world: w, tokens: tokens, hub: h, logger: logger}

	logger.Info("stub server listening", "addr", addr,
		"accounts", "alice@example.com / bob@example.com (password: password)")
	if err := http.ListenAndServe(addr, s.router()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
