package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"eventcore/internal/pkg/redis/dlq"
	"eventcore/internal/pkg/redis/keys"
	"eventcore/internal/pkg/worker"
)

const holdingScanLimit = 10000

// persistHolding best-effort persists the residual ready set a Stop drained
// from the provider (tasks still queued, or mid-flight when the grace period
// ran out) into the holding stream so a fresh process can resume them.
func persistHolding(ctx context.Context, d *dlq.DLQ, tasks []*worker.Task) error {
	for _, wt := range tasks {
		raw, err := json.Marshal(wt)
		if err != nil {
			return fmt.Errorf("marshal holding task %s: %w", wt.ID, err)
		}
		if _, err := d.Push(ctx, keys.HoldingStream, holdingScanLimit, map[string]interface{}{
			"id":   wt.ID,
			"task": string(raw),
		}); err != nil {
			return fmt.Errorf("push holding task %s: %w", wt.ID, err)
		}
	}
	return nil
}

// resumeHolding reads every task persisted by a prior persistHolding call
// and decodes it. Callers delete the consumed entries only after a
// successful Restore, so a crash mid-resume leaves them for the next start
// rather than losing the work.
func resumeHolding(ctx context.Context, d *dlq.DLQ) (tasks []*worker.Task, entryIDs []string, err error) {
	entries, err := d.Scan(ctx, keys.HoldingStream, holdingScanLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("scan holding stream: %w", err)
	}
	tasks = make([]*worker.Task, 0, len(entries))
	entryIDs = make([]string, 0, len(entries))
	for _, e := range entries {
		raw, ok := e.Values["task"]
		if !ok {
			continue
		}
		var wt worker.Task
		if err := json.Unmarshal([]byte(raw), &wt); err != nil {
			continue
		}
		tasks = append(tasks, &wt)
		entryIDs = append(entryIDs, e.ID)
	}
	return tasks, entryIDs, nil
}
