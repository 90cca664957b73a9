package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const transcriptKeyPrefix = "intake_transcript:"

const (
	defaultTranscriptTTL         = 24 * time.Hour
	defaultTranscriptMaxMessages = 250
)

// RedisTranscriptStore mirrors conversation logs into capped Redis lists so
// operators can read a chat after the in-memory session is evicted.
type RedisTranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

// NewRedisTranscriptStore returns nil for a nil client; a nil store is a no-op.
func NewRedisTranscriptStore(redisClient *redis.Client, ttl time.Duration, maxMessages int) *RedisTranscriptStore {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	if maxMessages <= 0 {
		maxMessages = defaultTranscriptMaxMessages
	}
	return &RedisTranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("staydesk/intake-transcript"),
		ttl:         ttl,
		maxMessages: int64(maxMessages),
	}
}

func (s *RedisTranscriptStore) Append(ctx context.Context, conversationID string, msgs ...Message) error {
	if s == nil || s.redis == nil || len(msgs) == 0 {
		return nil
	}
	if conversationID == "" {
		return errors.New("intake: transcript conversationID required")
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("intake: marshal transcript message: %w", err)
		}
		values = append(values, data)
	}

	ctx, span := s.tracer.Start(ctx, "intake.transcript.append")
	defer span.End()

	key := transcriptKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, s.ttl)
	pipe.LTrim(ctx, key, -s.maxMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: append transcript: %w", err)
	}
	return nil
}

// List returns the newest limit messages, or all of them when limit <= 0.
func (s *RedisTranscriptStore) List(ctx context.Context, conversationID string, limit int64) ([]Message, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if conversationID == "" {
		return nil, errors.New("intake: transcript conversationID required")
	}

	ctx, span := s.tracer.Start(ctx, "intake.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(conversationID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("intake: list transcript: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisTranscriptStore) Delete(ctx context.Context, conversationID string) error {
	if s == nil || s.redis == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "intake.transcript.delete")
	defer span.End()
	if err := s.redis.Del(ctx, transcriptKey(conversationID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: delete transcript: %w", err)
	}
	return nil
}

func transcriptKey(conversationID string) string {
	return transcriptKeyPrefix + conversationID
}
