package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"intake_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	StreamInboundEmails = "inbound:emails"

	payloadField = "data"
)

// MessageHandler processes one stream message. A nil error acknowledges the message.
type MessageHandler func(ctx context.Context, id string, data []byte) error

type RedisStream struct {
	client *redis.Client
	group  string
	block  time.Duration
}

func NewRedisStream(client *redis.Client, group string) *RedisStream {
	return &RedisStream{
		client: client,
		group:  group,
		block:  5 * time.Second,
	}
}

func (s *RedisStream) CreateGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (s *RedisStream) Publish(ctx context.Context, stream string, data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{payloadField: jsonData},
	}).Result()
}

// Consume reads new messages for consumer until ctx is cancelled.
func (s *RedisStream) Consume(ctx context.Context, stream, consumer string, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    s.block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.WithError(err).Error("[RedisStream.Consume] read failed on %s", stream)
			sleep(ctx, time.Second)
			continue
		}

		for _, st := range streams {
			s.dispatch(ctx, st.Stream, st.Messages, handler)
		}
	}
}

// Reclaim takes over messages left pending longer than minIdle, for example by a crashed
// consumer, and runs them through handler.
func (s *RedisStream) Reclaim(ctx context.Context, stream, consumer string, minIdle time.Duration, handler MessageHandler) (int, error) {
	claimed := 0
	start := "0-0"
	for {
		msgs, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    s.group,
			Consumer: consumer,
			MinIdle:  minIdle,
			Start:    start,
			Count:    50,
		}).Result()
		if err != nil {
			return claimed, err
		}
		claimed += len(msgs)
		s.dispatch(ctx, stream, msgs, handler)
		if next == "0-0" || len(msgs) == 0 {
			return claimed, nil
		}
		start = next
	}
}

func (s *RedisStream) dispatch(ctx context.Context, stream string, msgs []redis.XMessage, handler MessageHandler) {
	for _, msg := range msgs {
		data, ok := msg.Values[payloadField].(string)
		if !ok {
			logger.Warn("[RedisStream.dispatch] message %s has no payload, acking", msg.ID)
			_ = s.Ack(ctx, stream, msg.ID)
			continue
		}

		if err := handler(ctx, msg.ID, []byte(data)); err != nil {
			// left pending for Reclaim
			logger.WithError(err).Warn("[RedisStream.dispatch] handler failed for %s", msg.ID)
			continue
		}

		if err := s.Ack(ctx, stream, msg.ID); err != nil {
			logger.WithError(err).Error("[RedisStream.dispatch] ack failed for %s", msg.ID)
		}
	}
}

func (s *RedisStream) Ack(ctx context.Context, stream, id string) error {
	return s.client.XAck(ctx, stream, s.group, id).Err()
}

func (s *RedisStream) Pending(ctx context.Context, stream string) (int64, error) {
	info, err := s.client.XPending(ctx, stream, s.group).Result()
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
