// Command dashwatch follows a bridge the way the dashboard does and logs
// every refresh.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"go-wabridge/internal/infrastructure/logger"
	"go-wabridge/internal/pkg/dashboard"
)

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", envOr("DASHWATCH_URL", "http://localhost:8080"), "bridge base URL")
	business := flag.String("business", os.Getenv("DEFAULT_BUSINESS_ID"), "business id")
	conversation := flag.String("conversation", "", "conversation whose messages are followed")
	interval := flag.Duration("interval", dashboard.DefaultInterval, "poll interval")
	pretty := flag.Bool("pretty", true, "console log output")
	flag.Parse()

	log := logger.Component(logger.New(logger.Config{Level: "info", Pretty: *pretty}), "dashwatch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := dashboard.NewClient(*baseURL, *business, log)
	if b := client.Business(ctx); b != nil {
		log.Info().Str("business", b.Name).Str("number", b.WhatsAppNumber).Msg("watching")
	}

	poller := dashboard.NewPoller(client, dashboard.PollerConfig{
		Interval: *interval,
		Logger:   log,
		OnUpdate: func(s dashboard.Snapshot) {
			unread := 0
			for _, c := range s.Conversations {
				unread += c.UnreadCount
			}
			ev := log.Info().
				Int("conversations", len(s.Conversations)).
				Int("unread", unread).
				Bool("stale", s.Stale).
				Time("fetched_at", s.FetchedAt)
			if s.OpenConversationID != "" {
				ev = ev.Str("conversation_id", s.OpenConversationID).Int("messages", len(s.Messages))
				if n := len(s.Messages); n > 0 {
					last := s.Messages[n-1]
					ev = ev.Str("last_sender", string(last.Sender)).Str("last_message", last.Preview())
				}
			}
			ev.Msg("snapshot")
		},
	})
	if *conversation != "" {
		poller.Open(*conversation)
		st := client.BotStatus(ctx, *conversation)
		log.Info().Bool("bot_active", st.Active).Bool("defaulted", st.Defaulted).Msg("bot status")
	}

	start := time.Now()
	_ = poller.Run(ctx)
	log.Info().Dur("uptime", time.Since(start)).Msg("stopped")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
