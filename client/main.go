// Command client is a terminal chat client built on the access layer:
// it logs in, connects the realtime channel, prints incoming messages
// from the event bus, and sends whatever is typed on stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nekoweb/revolt/pkg/cache"
	"github.com/nekoweb/revolt/pkg/config"
	"github.com/nekoweb/revolt/pkg/model"
	"github.com/nekoweb/revolt/pkg/revolt"
)

func main() {
	_ = godotenv.Load()

	email := pflag.String("email", "", "account email")
	password := pflag.String("password", "", "account password")
	channelArg := pflag.String("channel", "", "channel id (defaults to the first direct conversation)")
	staging := pflag.Bool("staging", false, "use staging endpoints")
	verbose := pflag.BoolP("verbose", "v", false, "debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: client --email ... --password ... [--channel id]")
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if *staging {
		cfg = config.Staging()
	}

	if err := run(cfg, logger, *email, *password, *channelArg); err != nil {
		logger.Error("client exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, email, password, channelID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := revolt.New(cfg, logger)
	if err != nil {
		return err
	}

	// Connect first so the authenticate frame goes out the moment login
	// succeeds.
	client.Connect(ctx)
	defer client.Close()

	result, err := client.Sessions().Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if result.MFA != nil {
		return fmt.Errorf("account requires a second factor (%v); not supported by this client", result.MFA.AllowedMethods)
	}
	session := client.Sessions().Current()
	logger.Info("logged in", "user_id", session.UserID)

	channels, err := client.API().ListDirectConversations(ctx)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}
	if channelID == "" {
		for _, ch := range channels {
			if ch.Kind() == model.ChannelDirect {
				channelID = ch.ID
				break
			}
		}
	}
	if channelID == "" {
		return fmt.Errorf("no direct conversation available; pass --channel")
	}
	fmt.Printf("joined channel %s\n> ", channelID)

	cancel := client.Events().Subscribe(model.EventMessage, func(ev model.Event) {
		msg := ev.(model.MessageCreated).Message
		if msg.ChannelID != channelID {
			return
		}
		fmt.Printf("\r%s: %s\n> ", authorName(client.Cache(), msg.AuthorID), msg.Content)
	})
	defer cancel()

	// Read from stdin and send messages until interrupt or EOF.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			if !client.Sessions().Logout(context.Background()) {
				logger.Warn("could not invalidate session server-side")
			}
			return nil
		case text, ok := <-lines:
			if !ok || text == "/quit" {
				stop()
				continue
			}
			if text == "" {
				fmt.Print("> ")
				continue
			}
			if _, err := client.API().SendMessage(ctx, channelID, text); err != nil {
				// Sends are retryable; tell the user instead of dying.
				fmt.Printf("\rsend failed (%v), try again\n> ", err)
				continue
			}
			fmt.Print("> ")
		}
	}
}

func authorName(store *cache.Store, userID string) string {
	user, err := store.User(userID)
	if err != nil {
		return userID
	}
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Username
}
