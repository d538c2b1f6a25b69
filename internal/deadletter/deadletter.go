// Package deadletter keeps an append-only Redis log of webhook events
// whose processing failed after signature verification. The webhook
// endpoint acknowledges those deliveries anyway, so this log is the only
// place an operator can find and replay a dropped payment confirmation.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const listKey = "webhook:deadletter"

// Entry is one failed webhook delivery.
type Entry struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Error     string    `json:"error"`
	Payload   string    `json:"payload"`
	FailedAt  time.Time `json:"failed_at"`
}

type Log struct {
	rdb *redis.Client
}

// New connects to Redis and returns the dead-letter log.
func New(addr, password string, db int) (*Log, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Log{rdb: rdb}, nil
}

// Close closes the Redis connection
func (l *Log) Close() error {
	return l.rdb.Close()
}

// Record appends one failed event to the log.
func (l *Log) Record(ctx context.Context, eventID, eventType string, payload []byte, cause error) error {
	entry := Entry{
		EventID:   eventID,
		EventType: eventType,
		Payload:   string(payload),
		FailedAt:  time.Now().UTC(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode dead-letter entry: %w", err)
	}

	if err := l.rdb.RPush(ctx, listKey, data).Err(); err != nil {
		return fmt.Errorf("failed to append dead-letter entry: %w", err)
	}
	return nil
}

// Entries returns up to n oldest entries for operator inspection.
func (l *Log) Entries(ctx context.Context, n int64) ([]Entry, error) {
	raw, err := l.rdb.LRange(ctx, listKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead-letter entries: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
