package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aimeeyu8/Tastebuddy/config"
	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

const (
	streamMaxAge = 7 * 24 * time.Hour
	fetchBatch   = 4
	fetchWait    = 200 * time.Millisecond
)

// Client publishes chat events and consumes inbound messages on a JetStream
// stream.
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	cfg    config.Nats
	logger *slog.Logger
}

func NewClient(cfg config.Nats, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(cfg.ConnStr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get jetstream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  cfg.Subjects(),
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    streamMaxAge,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}

	return &Client{conn: nc, js: js, cfg: cfg, logger: logger}, nil
}

func (c *Client) Close() {
	c.conn.Close()
}

func (c *Client) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event for %s: %w", subject, err)
	}
	if _, err := c.js.PublishAsync(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (c *Client) PublishMessage(group string, msg models.ChatMessage) error {
	return c.publish(c.cfg.MessagesSubject, MessageEvent{Group: group, Message: msg})
}

func (c *Client) PublishPreferences(group, userID string, prefs models.PreferenceRecord, harmony float64) error {
	return c.publish(c.cfg.PreferencesSubject, PreferencesEvent{
		Group:       group,
		UserID:      userID,
		Preferences: prefs,
		Harmony:     harmony,
		At:          time.Now().UTC(),
	})
}

func (c *Client) PublishReset(group string) error {
	return c.publish(c.cfg.ResetSubject, ResetEvent{Group: group, At: time.Now().UTC()})
}

// Subscribe pulls from subject with a durable consumer and hands every
// message to pool until ctx is done.
func (c *Client) Subscribe(ctx context.Context, subject string, pool *WorkerPool) error {
	subscription, err := c.js.PullSubscribe(subject, strings.ReplaceAll(subject+".consumer", ".", "-"), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	for {
		select {
		case <-ctx.Done():
			if err := subscription.Unsubscribe(); err != nil {
				c.logger.Warn("failed to unsubscribe from subject", "subject", subject, "error", err)
			}
			return nil
		default:
			msgs, err := subscription.Fetch(fetchBatch, nats.MaxWait(fetchWait))
			if err != nil && !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("failed to fetch from %s: %w", subject, err)
			}

			for _, msg := range msgs {
				if !pool.Submit(ctx, msg) {
					return nil
				}
			}
		}
	}
}
