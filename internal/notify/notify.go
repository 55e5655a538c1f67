// Package notify broadcasts newly enqueued jobs over Redis pub/sub so that
// every running dispatcher wakes up, not just the one that accepted the job.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event is the payload published for each enqueued job.
type Event struct {
	JobID    int64 `json:"job_id"`
	Priority int   `json:"priority"`
}

// Notifier is what the API needs to announce a job.
type Notifier interface {
	JobEnqueued(ctx context.Context, jobID int64, priority int) error
}

// Nop is used when Redis is not configured.
type Nop struct{}

func (Nop) JobEnqueued(context.Context, int64, int) error { return nil }

type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type Bus struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

// Connect dials Redis and verifies the connection with PING.
func Connect(ctx context.Context, opts Options, log *zap.Logger) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Bus{client: client, channel: opts.Channel, log: log.Named("notify")}, nil
}

func (b *Bus) JobEnqueued(ctx context.Context, jobID int64, priority int) error {
	data, err := json.Marshal(Event{JobID: jobID, Priority: priority})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish job %d: %w", jobID, err)
	}
	return nil
}

// Run delivers events to handle until ctx is cancelled. Undecodable
// payloads are logged and skipped.
func (b *Bus) Run(ctx context.Context, handle func(Event)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			b.log.Error("failed to close redis pubsub", zap.Error(err))
		}
	}()

	// Wait for the subscription confirmation so publish-after-Run is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.log.Info("listening for enqueued jobs", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := decode(msg.Payload)
			if err != nil {
				b.log.Warn("dropping notification", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			handle(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *Bus) Close() error {
	return b.client.Close()
}

func decode(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.JobID <= 0 {
		return Event{}, fmt.Errorf("invalid job id %d", ev.JobID)
	}
	return ev, nil
}
