package dlq

import (
	"context"
	"strconv"
	"strings"
	"time"

	"eventcore/internal/pkg/redis"

	redisv9 "github.com/redis/go-redis/v9"

	"go.uber.org/fx"
)

// DLQ is the low-level dead-letter stream gateway: push a poisoned or
// retry-exhausted envelope onto <stream>.dead, and scan/republish/delete
// entries from it. Domain semantics (what counts as "failure_reason", when
// to republish) live in internal/eventbus; this package only knows streams.
type DLQ struct {
	stream *redis.StreamClient
}

func New(rdb *redisv9.Client) *DLQ {
	return &DLQ{stream: redis.NewStreamClient(rdb)}
}

var Module = fx.Module("redis-dlq",
	fx.Provide(New),
)

// Push appends values to dlqStream, approximately trimmed to maxLen.
func (d *DLQ) Push(ctx context.Context, dlqStream string, maxLen int64, values map[string]interface{}) (string, error) {
	return d.stream.Append(ctx, redis.XAddArgs{
		Stream: dlqStream,
		MaxLen: maxLen,
		Values: values,
	})
}

// Entry is one scanned dead-letter record, with its age derived from the
// stream id's embedded millisecond timestamp.
type Entry struct {
	ID     string
	Age    time.Duration
	Values map[string]string
}

// Scan lists up to limit entries on dlqStream oldest-first, annotated with age.
func (d *DLQ) Scan(ctx context.Context, dlqStream string, limit int64) ([]Entry, error) {
	raw, err := d.stream.Range(ctx, dlqStream, "-", "+", limit)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]Entry, 0, len(raw))
	for _, e := range raw {
		out = append(out, Entry{ID: e.ID, Age: now.Sub(entryTime(e.ID)), Values: e.Values})
	}
	return out, nil
}

// Delete removes ids from dlqStream, typically after a successful republish.
func (d *DLQ) Delete(ctx context.Context, dlqStream string, ids ...string) (int64, error) {
	return d.stream.Delete(ctx, dlqStream, ids...)
}

// entryTime extracts the millisecond timestamp Redis embeds in a stream id
// of the form "<millis>-<seq>".
func entryTime(id string) time.Time {
	parts := strings.SplitN(id, "-", 2)
	millis, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
