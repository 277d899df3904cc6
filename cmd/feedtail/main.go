package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/adapters/console"
	"github.com/goliatone/go-notification-feed/pkg/adapters/httpapi"
	"github.com/goliatone/go-notification-feed/pkg/adapters/wschannel"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
	"github.com/goliatone/go-notification-feed/pkg/realtime"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	godotenv.Load()

	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logger.NewLogrus(base)

	server := envOr("FEEDTAIL_SERVER", "http://localhost:8085")
	wsURL := envOr("FEEDTAIL_WS", "ws://localhost:8085/ws")
	token := envOr("FEEDTAIL_TOKEN", "dev-token")

	api, err := httpapi.New(server, token, httpapi.WithLogger(log))
	if err != nil {
		base.WithError(err).Fatal("api client")
	}
	dialer, err := wschannel.NewDialer(wsURL)
	if err != nil {
		base.WithError(err).Fatal("ws dialer")
	}

	manager, err := realtime.New(realtime.Dependencies{
		API:      api,
		Dialer:   dialer,
		Notifier: console.New(log),
		Logger:   log,
	})
	if err != nil {
		base.WithError(err).Fatal("engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.SessionStart(ctx, token)
	defer manager.SessionEnd()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("shutting down")
			return
		case <-ticker.C:
			printSummary(manager)
		}
	}
}

func printSummary(manager *realtime.Manager) {
	fmt.Printf("state=%s unread=%d\n", manager.State(), manager.UnreadCount())
	for _, n := range manager.Feed(5) {
		read := " "
		if n.Read {
			read = "r"
		}
		fmt.Printf("  [%s] %-8s #%d %s\n", read, n.Source, n.ID, n.Message)
	}
	for _, alert := range manager.Alerts() {
		fmt.Printf("  ! %s: %s\n", alert.Title, alert.Message)
	}
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
