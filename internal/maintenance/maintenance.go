// Package maintenance registers the housekeeping jobs every long-lived
// stream/queue system needs but that don't belong inside the request path:
// trimming aged dead letters and logging a periodic health snapshot.
package maintenance

import (
	"context"
	"time"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/health"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/redis/dlq"
	"eventcore/internal/pkg/redis/keys"
	"eventcore/internal/pkg/scheduler"
	"eventcore/internal/taskqueue"

	"go.uber.org/zap"
)

const dlqScanLimit = 5000

// RegisterJobs adds the maintenance scheduler's fixed job set. retention
// bounds how long a dead-letter entry survives before the sweep deletes it
// unread; it does not touch the holding stream, which has no retention
// policy of its own (it is drained by TaskQueue.Start on every boot).
func RegisterJobs(s scheduler.Scheduler, d *dlq.DLQ, q *taskqueue.TaskQueue, healthSvc *health.Service, retention time.Duration, log *logger.Logger) error {
	if err := s.Register(deadLetterRetentionJob(d, retention, log)); err != nil {
		return err
	}
	if err := s.Register(healthSnapshotJob(q, healthSvc, log)); err != nil {
		return err
	}
	return nil
}

func deadLetterRetentionJob(d *dlq.DLQ, retention time.Duration, log *logger.Logger) *scheduler.Job {
	return &scheduler.Job{
		Name:     "dead_letter_retention_sweep",
		Schedule: scheduler.NewIntervalSchedule(15 * time.Minute),
		Timeout:  2 * time.Minute,
		Handler: func(ctx context.Context) error {
			streams := make([]string, 0, len(eventbus.Streams)+1)
			for _, stream := range eventbus.Streams {
				streams = append(streams, keys.DeadLetterStream(stream))
			}
			streams = append(streams, keys.DeadLetterStream("tasks"))

			for _, dead := range streams {
				entries, err := d.Scan(ctx, dead, dlqScanLimit)
				if err != nil {
					log.Warn("dead letter sweep: scan failed", zap.String("stream", dead), zap.Error(err))
					continue
				}
				var expired []string
				for _, e := range entries {
					if e.Age > retention {
						expired = append(expired, e.ID)
					}
				}
				if len(expired) == 0 {
					continue
				}
				n, err := d.Delete(ctx, dead, expired...)
				if err != nil {
					log.Warn("dead letter sweep: delete failed", zap.String("stream", dead), zap.Error(err))
					continue
				}
				log.Info("dead letter sweep: trimmed expired entries", zap.String("stream", dead), zap.Int64("count", n))
			}
			return nil
		},
	}
}

func healthSnapshotJob(q *taskqueue.TaskQueue, healthSvc *health.Service, log *logger.Logger) *scheduler.Job {
	return &scheduler.Job{
		Name:     "task_queue_health_tick",
		Schedule: scheduler.NewIntervalSchedule(time.Minute),
		Timeout:  30 * time.Second,
		Handler: func(ctx context.Context) error {
			stats := q.Stats()
			resp := healthSvc.GetHealthResponse(ctx)
			log.Info("system snapshot",
				zap.Int("tasks_running", stats.Running),
				zap.Int("tasks_queued", stats.Queued),
				zap.Int64("tasks_failed_total", stats.FailedTotal),
				zap.Int64("tasks_dead_total", stats.DeadTotal),
				zap.String("overall_status", string(resp.Status)),
			)
			return nil
		},
	}
}
