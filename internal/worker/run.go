package worker

import (
	"context"
	"time"

	"mapserve/internal/pkg/logger"
	"mapserve/internal/worker/processor"
	"mapserve/internal/worker/queue"
)

func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	q := queue.NewRedisQueue(d.RDB, d.QueueName)

	p := processor.New(processor.Deps{
		Pool:      d.Pool,
		SP:        d.SP,
		Coalescer: d.Coalescer,
		Store:     d.Store,
		Log:       log,
	})

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		// Queue pops run on a bounded context so shutdown is never stuck
		// behind an idle BRPOP.
		popCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		renderID, err := q.Pop(popCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}

			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			time.Sleep(1 * time.Second)
			continue
		}

		if renderID == "" {
			continue
		}

		renderCtx := logger.ContextWithRenderID(ctx, renderID)
		renderLog := log.WithRenderID(renderID)

		renderLog.Info("processing render")
		startTime := time.Now()

		if err := p.ProcessRender(renderCtx, renderID); err != nil {
			renderLog.Error("render failed",
				"error", err.Error(),
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		} else {
			renderLog.Info("render completed",
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		}
	}
}
