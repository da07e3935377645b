package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"eventcore/internal/pkg/errorsx"
	"eventcore/internal/pkg/retry"

	redisv9 "github.com/redis/go-redis/v9"
)

// StreamClient is a thin, mockable wrapper over the Redis-Streams primitives
// the event bus needs: XADD, XREADGROUP, XACK, XPENDING, XCLAIM, XLEN, XINFO.
// Every backend call is retried internally with a bounded exponential backoff;
// a call that exhausts its retries surfaces errorsx.ErrBackendUnavailable.
type StreamClient struct {
	rdb       *redisv9.Client
	callRetry retry.Policy
}

// NewStreamClient wraps rdb with the default backend-call retry policy.
func NewStreamClient(rdb *redisv9.Client) *StreamClient {
	return &StreamClient{
		rdb:       rdb,
		callRetry: retry.ExponentialBackoff(50*time.Millisecond, 2*time.Second, true, 4),
	}
}

// WithCallRetry overrides the backend-call retry policy (used in tests).
func (s *StreamClient) WithCallRetry(p retry.Policy) *StreamClient {
	s.callRetry = p
	return s
}

func hasPrefix(err error, prefix string) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefix)
}

func isNetworkish(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	// Protocol-level responses are not transient; everything else from the
	// driver (connection refused, timeout, EOF) is worth retrying.
	if errors.Is(err, redisv9.Nil) {
		return false
	}
	for _, prefix := range []string{"BUSYGROUP", "NOGROUP", "ERR ", "WRONGTYPE", "NOAUTH", "WRONGPASS", "NOPERM"} {
		if hasPrefix(err, prefix) {
			return false
		}
	}
	return true
}

func do[T any](ctx context.Context, s *StreamClient, fn func(context.Context) (T, error)) (T, error) {
	res, err := retry.Do(ctx, s.callRetry, fn, isNetworkish)
	if err != nil {
		var zero T
		return zero, errors.Join(errorsx.ErrBackendUnavailable, err)
	}
	return res, nil
}

// Entry is a decoded stream record: the backend-assigned id plus its flat
// field map (the envelope wire format, see internal/eventbus/envelope.go).
type Entry struct {
	ID     string
	Values map[string]string
}

// XAddArgs parameterizes Append.
type XAddArgs struct {
	Stream string
	MaxLen int64 // approximate cap; 0 means unbounded
	Values map[string]interface{}
}

// Append appends values to stream, auto-assigning the entry id server-side,
// and approximately trims the stream to MaxLen when MaxLen > 0.
func (s *StreamClient) Append(ctx context.Context, args XAddArgs) (string, error) {
	a := &redisv9.XAddArgs{
		Stream: args.Stream,
		Values: args.Values,
	}
	if args.MaxLen > 0 {
		a.MaxLen = args.MaxLen
		a.Approx = true
	}
	return do(ctx, s, func(ctx context.Context) (string, error) {
		return s.rdb.XAdd(ctx, a).Result()
	})
}

// EnsureGroup idempotently creates stream and group if either is missing.
// startFrom is "0" to replay the whole stream or "$" for new messages only.
func (s *StreamClient) EnsureGroup(ctx context.Context, stream, group, startFrom string) error {
	if startFrom == "" {
		startFrom = "$"
	}
	_, err := do(ctx, s, func(ctx context.Context) (struct{}, error) {
		err := s.rdb.XGroupCreateMkStream(ctx, stream, group, startFrom).Err()
		if err != nil && hasPrefix(err, "BUSYGROUP") {
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	return err
}

// ReadGroupArgs parameterizes ReadGroup.
type ReadGroupArgs struct {
	Stream   string
	Group    string
	Consumer string
	Count    int64
	Block    time.Duration
}

// ReadGroup performs a blocking read of new-only (">") entries for consumer.
func (s *StreamClient) ReadGroup(ctx context.Context, args ReadGroupArgs) ([]Entry, error) {
	streams, err := do(ctx, s, func(ctx context.Context) ([]redisv9.XStream, error) {
		return s.rdb.XReadGroup(ctx, &redisv9.XReadGroupArgs{
			Group:    args.Group,
			Consumer: args.Consumer,
			Streams:  []string{args.Stream, ">"},
			Count:    args.Count,
			Block:    args.Block,
		}).Result()
	})
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return flatten(streams), nil
}

// ReadPending re-delivers entries previously assigned to consumer but never ACKed.
func (s *StreamClient) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Entry, error) {
	streams, err := do(ctx, s, func(ctx context.Context) ([]redisv9.XStream, error) {
		return s.rdb.XReadGroup(ctx, &redisv9.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, "0"},
			Count:    count,
		}).Result()
	})
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return flatten(streams), nil
}

func flatten(streams []redisv9.XStream) []Entry {
	var out []Entry
	for _, st := range streams {
		for _, m := range st.Messages {
			values := make(map[string]string, len(m.Values))
			for k, v := range m.Values {
				if sv, ok := v.(string); ok {
					values[k] = sv
				}
			}
			out = append(out, Entry{ID: m.ID, Values: values})
		}
	}
	return out
}

// Ack acknowledges one or more entries.
func (s *StreamClient) Ack(ctx context.Context, stream, group string, ids ...string) (int64, error) {
	return do(ctx, s, func(ctx context.Context) (int64, error) {
		return s.rdb.XAck(ctx, stream, group, ids...).Result()
	})
}

// PerConsumerPending is one row of PendingSummary's per-consumer breakdown.
type PerConsumerPending struct {
	Consumer string
	Count    int64
}

// PendingSummary is the coarse XPENDING summary form.
type PendingSummary struct {
	Total       int64
	MinID       string
	MaxID       string
	PerConsumer []PerConsumerPending
}

// PendingSummary returns the coarse pending-entries summary for (stream, group).
func (s *StreamClient) PendingSummary(ctx context.Context, stream, group string) (PendingSummary, error) {
	res, err := do(ctx, s, func(ctx context.Context) (*redisv9.XPending, error) {
		return s.rdb.XPending(ctx, stream, group).Result()
	})
	if err != nil {
		return PendingSummary{}, err
	}
	out := PendingSummary{Total: res.Count, MinID: res.Lower, MaxID: res.Higher}
	for consumer, count := range res.Consumers {
		out.PerConsumer = append(out.PerConsumer, PerConsumerPending{Consumer: consumer, Count: count})
	}
	return out, nil
}

// PendingDetail is one row of the extended XPENDING listing, used to find
// idle entries owned by other consumers during the periodic claim phase.
type PendingDetail struct {
	ID            string
	Consumer      string
	IdleMs        int64
	DeliveryCount int64
}

// PendingDetails lists up to count pending entries in [start, end], with idle time and delivery count.
func (s *StreamClient) PendingDetails(ctx context.Context, stream, group, start, end string, count int64) ([]PendingDetail, error) {
	res, err := do(ctx, s, func(ctx context.Context) ([]redisv9.XPendingExt, error) {
		return s.rdb.XPendingExt(ctx, &redisv9.XPendingExtArgs{
			Stream: stream,
			Group:  group,
			Start:  start,
			End:    end,
			Count:  count,
		}).Result()
	})
	if err != nil {
		return nil, err
	}
	out := make([]PendingDetail, 0, len(res))
	for _, p := range res {
		out = append(out, PendingDetail{
			ID:            p.ID,
			Consumer:      p.Consumer,
			IdleMs:        p.Idle.Milliseconds(),
			DeliveryCount: p.RetryCount,
		})
	}
	return out, nil
}

// Claim transfers ownership of entryIDs to newConsumer provided they have
// been idle at least minIdle; entries claimed recently are skipped by Redis.
func (s *StreamClient) Claim(ctx context.Context, stream, group, newConsumer string, minIdle time.Duration, entryIDs []string) ([]Entry, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}
	msgs, err := do(ctx, s, func(ctx context.Context) ([]redisv9.XMessage, error) {
		return s.rdb.XClaim(ctx, &redisv9.XClaimArgs{
			Stream:   stream,
			Group:    group,
			Consumer: newConsumer,
			MinIdle:  minIdle,
			Messages: entryIDs,
		}).Result()
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		values := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			if sv, ok := v.(string); ok {
				values[k] = sv
			}
		}
		out = append(out, Entry{ID: m.ID, Values: values})
	}
	return out, nil
}

// Trim approximately caps stream to maxLen entries.
func (s *StreamClient) Trim(ctx context.Context, stream string, maxLen int64) error {
	_, err := do(ctx, s, func(ctx context.Context) (int64, error) {
		return s.rdb.XTrimMaxLenApprox(ctx, stream, maxLen, 0).Result()
	})
	return err
}

// Delete removes entryIDs from stream outright (used after a successful republish).
func (s *StreamClient) Delete(ctx context.Context, stream string, entryIDs ...string) (int64, error) {
	return do(ctx, s, func(ctx context.Context) (int64, error) {
		return s.rdb.XDel(ctx, stream, entryIDs...).Result()
	})
}

// Info is the StreamInfo result.
type Info struct {
	Length  int64
	FirstID string
	LastID  string
	Groups  int64
}

// StreamInfo reports length and group count for stream.
func (s *StreamClient) StreamInfo(ctx context.Context, stream string) (Info, error) {
	res, err := do(ctx, s, func(ctx context.Context) (*redisv9.XInfoStream, error) {
		return s.rdb.XInfoStream(ctx, stream).Result()
	})
	if err != nil {
		if hasPrefix(err, "ERR no such key") {
			return Info{}, nil
		}
		return Info{}, err
	}
	info := Info{Length: res.Length, Groups: res.Groups}
	if res.FirstEntry.ID != "" {
		info.FirstID = res.FirstEntry.ID
	}
	if res.LastEntry.ID != "" {
		info.LastID = res.LastEntry.ID
	}
	return info, nil
}

// GroupInfo is one row of the GroupInfo listing.
type GroupInfo struct {
	Name            string
	Consumers       int64
	Pending         int64
	LastDeliveredID string
}

// GroupInfo lists every consumer group registered on stream.
func (s *StreamClient) GroupInfo(ctx context.Context, stream string) ([]GroupInfo, error) {
	res, err := do(ctx, s, func(ctx context.Context) ([]redisv9.XInfoGroup, error) {
		return s.rdb.XInfoGroups(ctx, stream).Result()
	})
	if err != nil {
		if hasPrefix(err, "ERR no such key") {
			return nil, nil
		}
		return nil, err
	}
	out := make([]GroupInfo, 0, len(res))
	for _, g := range res {
		out = append(out, GroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		})
	}
	return out, nil
}

// Len reports the current stream length.
func (s *StreamClient) Len(ctx context.Context, stream string) (int64, error) {
	return do(ctx, s, func(ctx context.Context) (int64, error) {
		return s.rdb.XLen(ctx, stream).Result()
	})
}

// Range reads up to count entries from stream in id order, oldest first,
// for dead-letter scans where age is derived from the id's millisecond prefix.
func (s *StreamClient) Range(ctx context.Context, stream, start, end string, count int64) ([]Entry, error) {
	msgs, err := do(ctx, s, func(ctx context.Context) ([]redisv9.XMessage, error) {
		return s.rdb.XRangeN(ctx, stream, start, end, count).Result()
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		values := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			if sv, ok := v.(string); ok {
				values[k] = sv
			}
		}
		out = append(out, Entry{ID: m.ID, Values: values})
	}
	return out, nil
}
