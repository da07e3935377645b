package eventbus

import (
	"context"
	"fmt"

	"eventcore/internal/pkg/redis/dlq"
	"eventcore/internal/pkg/redis/keys"
)

// deadLetter appends env (augmented with origin/failure metadata) to
// "<stream>.dead" and returns the new entry id. It does not ACK the origin
// entry; callers ACK only after the dead-letter append has succeeded, so a
// crash between the two leaves the entry pending rather than silently dropped.
func deadLetter(ctx context.Context, d *dlq.DLQ, cfg Config, env Envelope, group, consumer, reason, lastErr string) (string, error) {
	augmented := env.WithMetadata(map[string]string{
		"original_group":    group,
		"original_consumer": consumer,
		"failure_reason":    reason,
		"last_error":        lastErr,
	})
	values, err := Encode(augmented)
	if err != nil {
		return "", fmt.Errorf("encode dead letter: %w", err)
	}
	deadStream := keys.DeadLetterStream(env.Stream)
	return d.Push(ctx, deadStream, cfg.maxLenFor(deadStream), values)
}
