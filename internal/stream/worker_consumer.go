package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intake_server/core/port/in"
	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"

	"github.com/goccy/go-json"
)

// ConsumerConfig tunes the intake consumer.
type ConsumerConfig struct {
	Stream      string
	Name        string
	Workers     int
	ReclaimIdle time.Duration

	// ReclaimInterval is how often pending messages idle past ReclaimIdle are
	// claimed while the consumer runs.
	ReclaimInterval time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Stream:      StreamInboundEmails,
		Name:        "intake-worker",
		Workers:         2,
		ReclaimIdle:     5 * time.Minute,
		ReclaimInterval: time.Minute,
	}
}

// Consumer feeds queued inbound emails to the intake service.
type Consumer struct {
	stream *RedisStream
	intake in.IntakeService
	config *ConsumerConfig
	wg     sync.WaitGroup

	reclaim func(ctx context.Context) (int, error)
}

func NewConsumer(stream *RedisStream, intake in.IntakeService, config *ConsumerConfig) *Consumer {
	if config == nil {
		config = DefaultConsumerConfig()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.ReclaimInterval <= 0 {
		config.ReclaimInterval = time.Minute
	}
	c := &Consumer{
		stream: stream,
		intake: intake,
		config: config,
	}
	c.reclaim = func(ctx context.Context) (int, error) {
		return c.stream.Reclaim(ctx, c.config.Stream, c.config.Name, c.config.ReclaimIdle, c.handle)
	}
	return c
}

// Start creates the consumer group, reclaims stale messages and starts the readers.
// Stale messages are reclaimed again every ReclaimInterval until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.stream.CreateGroup(ctx, c.config.Stream); err != nil {
		return apperr.QueueError("create consumer group", err)
	}

	c.reclaimOnce(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.reclaimLoop(ctx)
	}()

	for i := 0; i < c.config.Workers; i++ {
		name := fmt.Sprintf("%s-%d", c.config.Name, i)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.stream.Consume(ctx, c.config.Stream, name, c.handle)
		}()
	}

	logger.Info("[Consumer.Start] %d readers on %s", c.config.Workers, c.config.Stream)
	return nil
}

func (c *Consumer) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reclaimOnce(ctx)
		}
	}
}

func (c *Consumer) reclaimOnce(ctx context.Context) {
	n, err := c.reclaim(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Warn("[Consumer.reclaim] reclaim failed on %s", c.config.Stream)
		}
		return
	}
	if n > 0 {
		logger.Info("[Consumer.reclaim] reclaimed %d pending messages", n)
	}
}

// Wait blocks until every reader and the reclaim loop have stopped.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

// handle processes one message. Permanent failures are acknowledged so they are not
// redelivered; transient ones stay pending.
func (c *Consumer) handle(ctx context.Context, id string, data []byte) error {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		logger.WithError(err).Error("[Consumer.handle] dropping undecodable message %s", id)
		return nil
	}
	if job.Type != JobTypeInboundEmail {
		logger.Warn("[Consumer.handle] dropping message %s of unknown type %q", id, job.Type)
		return nil
	}

	ctx = logger.ContextWithRequestID(ctx, id)
	result, err := c.intake.Process(ctx, in.SourceStream, job.Email)
	if err != nil {
		if isPermanent(err) {
			logger.WithContext(ctx).WithError(err).Warn("[Consumer.handle] dropping job %s", job.ID)
			return nil
		}
		return err
	}

	logger.WithContext(ctx).Debug("[Consumer.handle] processed email %s intent=%s", result.EmailID, result.Classification.Intent)
	return nil
}

func isPermanent(err error) bool {
	return apperr.GetHTTPStatus(err) < 500
}
