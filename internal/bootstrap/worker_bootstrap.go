package bootstrap

import (
	"context"

	"intake_server/internal/stream"
	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"
)

// Worker consumes queued inbound emails from the intake stream.
type Worker struct {
	consumer *stream.Consumer
	deps     *Dependencies
}

// NewWorker fails with SERVICE_NOT_READY when Redis is not configured.
func NewWorker(deps *Dependencies) (*Worker, error) {
	if deps.Stream == nil {
		return nil, apperr.NotReady("redis stream")
	}

	cfg := deps.Config
	consumer := stream.NewConsumer(deps.Stream, deps.IntakeService, &stream.ConsumerConfig{
		Stream:          cfg.IntakeStream,
		Name:            cfg.WorkerID,
		Workers:         cfg.WorkerCount,
		ReclaimIdle:     cfg.ReclaimIdle,
		ReclaimInterval: cfg.ReclaimInterval,
	})
	return &Worker{consumer: consumer, deps: deps}, nil
}

// Run consumes until ctx is cancelled, then waits for in-flight messages.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.consumer.Start(ctx); err != nil {
		return err
	}
	logger.Info("[Worker.Run] worker %s consuming %s", w.deps.Config.WorkerID, w.deps.Config.IntakeStream)
	w.consumer.Wait()
	return nil
}
