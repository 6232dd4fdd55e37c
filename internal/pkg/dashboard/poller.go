package dashboard

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	chat "go-wabridge/internal/pkg/chat/application/domain"
)

const (
	DefaultInterval   = 5 * time.Second
	DefaultJitter     = 0.1
	DefaultMaxBackoff = time.Minute
)

// Snapshot is what the dashboard renders. Stale is set while refreshes fail
// and the data is the last good copy.
type Snapshot struct {
	Conversations      []chat.Conversation
	OpenConversationID string
	Messages           []chat.Message
	FetchedAt          time.Time
	Stale              bool
}

type PollerConfig struct {
	Interval   time.Duration
	// Jitter is the fraction the interval varies by; negative disables it.
	Jitter     float64
	MaxBackoff time.Duration
	OnUpdate   func(Snapshot)
	Logger     zerolog.Logger
}

// Poller re-fetches the conversation list, and the open conversation's
// messages, on a jittered interval. Failures double the interval up to
// MaxBackoff and never replace good data with nothing.
type Poller struct {
	client *Client
	cfg    PollerConfig

	mu       sync.Mutex
	open     string
	snapshot Snapshot
	failures int
}

func NewPoller(client *Client, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Jitter == 0 || cfg.Jitter >= 1 {
		cfg.Jitter = DefaultJitter
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = max(DefaultMaxBackoff, cfg.Interval)
	}
	return &Poller{client: client, cfg: cfg}
}

// Open selects the conversation whose messages are refreshed; "" closes it.
func (p *Poller) Open(conversationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open != conversationID {
		p.open = conversationID
		p.snapshot.OpenConversationID = conversationID
		p.snapshot.Messages = nil
	}
}

// Snapshot returns the latest snapshot.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Run refreshes immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	for {
		p.Refresh(ctx)

		timer := time.NewTimer(p.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Refresh performs one poll and reports whether it succeeded.
func (p *Poller) Refresh(ctx context.Context) bool {
	p.mu.Lock()
	open := p.open
	p.mu.Unlock()

	convs, err := p.client.fetchConversations(ctx)
	var msgs []chat.Message
	if err == nil && open != "" {
		msgs, err = p.client.fetchMessages(ctx, open)
	}

	p.mu.Lock()
	ok := err == nil
	if ok {
		p.failures = 0
		// an empty answer never wipes what the operator is looking at
		if len(convs) > 0 || len(p.snapshot.Conversations) == 0 {
			p.snapshot.Conversations = convs
		}
		if open == p.open && (len(msgs) > 0 || len(p.snapshot.Messages) == 0) {
			p.snapshot.Messages = msgs
		}
		p.snapshot.FetchedAt = time.Now().UTC()
		p.snapshot.Stale = false
	} else {
		p.failures++
		p.snapshot.Stale = true
		p.cfg.Logger.Warn().Err(err).Int("failures", p.failures).Msg("dashboard refresh failed, keeping last snapshot")
	}
	snap := p.snapshot
	p.mu.Unlock()

	if p.cfg.OnUpdate != nil {
		p.cfg.OnUpdate(snap)
	}
	return ok
}

func (p *Poller) nextDelay() time.Duration {
	p.mu.Lock()
	failures := p.failures
	p.mu.Unlock()
	return jittered(backoff(p.cfg.Interval, p.cfg.MaxBackoff, failures), p.cfg.Jitter)
}

func backoff(interval, limit time.Duration, failures int) time.Duration {
	d := interval
	for i := 0; i < failures && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

func jittered(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	spread := (rand.Float64()*2 - 1) * jitter
	return time.Duration(float64(d) * (1 + spread))
}
