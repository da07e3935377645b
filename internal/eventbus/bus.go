package eventbus

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"eventcore/internal/pkg/errorsx"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/redis"
	"eventcore/internal/pkg/redis/dlq"
	"eventcore/internal/pkg/redis/keys"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus owns per-stream consumer groups and per-consumer reader loops. It is
// the explicit dependency subscribers and producers receive; only the
// lifecycle owner constructs one (the module-level singleton pattern in the
// source repo is replaced by this explicit instance passed through fx).
type Bus struct {
	stream   *redis.StreamClient
	dlq      *dlq.DLQ
	registry *Registry
	config   Config
	log      *logger.Logger

	mu            sync.Mutex
	subscriptions map[string]*subscription
	ensuredGroups map[string]bool
}

// New constructs a Bus. registry must already have every schema registered
// and be Close'd before the bus starts accepting traffic.
func New(rdb *redis.StreamClient, d *dlq.DLQ, registry *Registry, cfg Config, log *logger.Logger) *Bus {
	return &Bus{
		stream:        rdb,
		dlq:           d,
		registry:      registry,
		config:        cfg,
		log:           log,
		subscriptions: make(map[string]*subscription),
		ensuredGroups: make(map[string]bool),
	}
}

// EnsureBaseGroups creates every named stream and the process's base
// consumer group up front, so startup fails loudly if the backend is
// unreachable instead of only surfacing on the first publish or subscribe.
func (b *Bus) EnsureBaseGroups(ctx context.Context, logicalGroup string) error {
	group := keys.ConsumerGroup(b.config.GroupPrefix, logicalGroup)
	for _, stream := range Streams {
		if err := b.stream.EnsureGroup(ctx, stream, group, "$"); err != nil {
			return fmt.Errorf("ensure group for %s: %w", stream, err)
		}
	}
	return nil
}

// Publish validates envelope against the schema registry, appends it via the
// Stream Client, and returns the backend-assigned entry id.
func (b *Bus) Publish(ctx context.Context, env Envelope) (string, error) {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now().UTC()
	}
	if _, err := b.registry.ValidateEnvelope(env); err != nil {
		return "", fmt.Errorf("%w: %v", errorsx.ErrValidation, err)
	}

	values, err := Encode(env)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errorsx.ErrValidation, err)
	}

	id, err := b.stream.Append(ctx, redis.XAddArgs{
		Stream: env.Stream,
		MaxLen: b.config.maxLenFor(env.Stream),
		Values: values,
	})
	if err != nil {
		return "", err // already wrapped with errorsx.ErrBackendUnavailable by StreamClient
	}
	return id, nil
}

// Handle is the opaque subscription handle returned by Subscribe.
type Handle string

type subscription struct {
	id       string
	stream   string
	group    string // namespaced, e.g. "eventcore.workers"
	handler  Handler
	options  SubscribeOptions
	bus      *Bus
	loops    []*consumerLoop
	stopOnce sync.Once
}

// Subscribe registers handler for (stream, namespaced group). On first
// subscribe to a (stream, group) pair the group is created if missing.
// options.Concurrency consumer loops are started, each with its own name.
func (b *Bus) Subscribe(ctx context.Context, stream, logicalGroup string, handler Handler, options SubscribeOptions) (Handle, error) {
	group := keys.ConsumerGroup(b.config.GroupPrefix, logicalGroup)

	b.mu.Lock()
	if !b.ensuredGroups[stream+"|"+group] {
		b.mu.Unlock()
		if err := b.stream.EnsureGroup(ctx, stream, group, "$"); err != nil {
			return "", fmt.Errorf("ensure group: %w", err)
		}
		b.mu.Lock()
		b.ensuredGroups[stream+"|"+group] = true
	}
	b.mu.Unlock()

	if options.Concurrency <= 0 {
		options.Concurrency = 1
	}
	consumerBase := options.ConsumerName
	if consumerBase == "" {
		consumerBase = hostnameConsumerName()
	}

	sub := &subscription{
		id:      uuid.NewString(),
		stream:  stream,
		group:   group,
		handler: handler,
		options: options,
		bus:     b,
	}

	for i := 0; i < options.Concurrency; i++ {
		name := fmt.Sprintf("%s-%d", consumerBase, i)
		loop := newConsumerLoop(b, sub, name)
		sub.loops = append(sub.loops, loop)
		loop.start(ctx)
	}

	b.mu.Lock()
	b.subscriptions[sub.id] = sub
	b.mu.Unlock()

	b.log.Info("subscribed",
		zap.String("stream", stream),
		zap.String("group", group),
		zap.Int("concurrency", options.Concurrency),
	)
	return Handle(sub.id), nil
}

// Unsubscribe cooperatively stops the consumer loop(s) behind handle.
// In-flight handlers run to completion before the loop exits; un-ACKed
// entries remain pending for later claim by another consumer.
func (b *Bus) Unsubscribe(handle Handle) error {
	b.mu.Lock()
	sub, ok := b.subscriptions[string(handle)]
	if ok {
		delete(b.subscriptions, string(handle))
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("eventbus: unknown subscription handle %q", handle)
	}
	sub.stopOnce.Do(func() {
		var wg sync.WaitGroup
		for _, loop := range sub.loops {
			wg.Add(1)
			go func(l *consumerLoop) {
				defer wg.Done()
				l.stop()
			}(loop)
		}
		wg.Wait()
	})
	return nil
}

// Close stops every active subscription; used during process shutdown.
func (b *Bus) Close() {
	b.mu.Lock()
	handles := make([]Handle, 0, len(b.subscriptions))
	for id := range b.subscriptions {
		handles = append(handles, Handle(id))
	}
	b.mu.Unlock()
	for _, h := range handles {
		_ = b.Unsubscribe(h)
	}
}

// GetStreamInfo is a pure read of stream length, first/last id, and group count.
func (b *Bus) GetStreamInfo(ctx context.Context, stream string) (redis.Info, error) {
	return b.stream.StreamInfo(ctx, stream)
}

// GetConsumerGroupInfo is a pure read of every consumer group on stream.
func (b *Bus) GetConsumerGroupInfo(ctx context.Context, stream string) ([]redis.GroupInfo, error) {
	return b.stream.GroupInfo(ctx, stream)
}

// RepublishDeadLetters scans stream's dead-letter sibling for entries younger
// than maxAge, re-appends each to the origin stream (preserving the envelope
// id in metadata.original_id) and deletes it from the dead-letter stream.
// It is not strictly idempotent, but is safe to call repeatedly because
// handlers are required to be idempotent on replay.
func (b *Bus) RepublishDeadLetters(ctx context.Context, stream, group string, maxAge time.Duration) (int, error) {
	deadStream := keys.DeadLetterStream(stream)
	entries, err := b.dlq.Scan(ctx, deadStream, 1000)
	if err != nil {
		return 0, fmt.Errorf("scan dead letters: %w", err)
	}

	republished := 0
	for _, e := range entries {
		if e.Age > maxAge {
			continue
		}
		env, err := Decode(e.Values)
		if err != nil {
			b.log.Warn("skipping malformed dead letter", zap.String("entry_id", e.ID), zap.Error(err))
			continue
		}
		env = env.WithMetadata(map[string]string{"original_id": env.ID})
		values, err := Encode(env)
		if err != nil {
			b.log.Warn("failed to re-encode dead letter", zap.String("entry_id", e.ID), zap.Error(err))
			continue
		}
		if _, err := b.stream.Append(ctx, redis.XAddArgs{
			Stream: stream,
			MaxLen: b.config.maxLenFor(stream),
			Values: values,
		}); err != nil {
			b.log.Warn("failed to republish dead letter", zap.String("entry_id", e.ID), zap.Error(err))
			continue
		}
		if _, err := b.dlq.Delete(ctx, deadStream, e.ID); err != nil {
			b.log.Warn("failed to delete republished dead letter", zap.String("entry_id", e.ID), zap.Error(err))
			continue
		}
		republished++
	}
	return republished, nil
}

func hostnameConsumerName() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "consumer-" + uuid.NewString()[:8]
	}
	return h
}
