package eventbus

import (
	"context"
	"fmt"
	"time"

	"eventcore/internal/pkg/errorsx"
	"eventcore/internal/pkg/redis"

	"go.uber.org/zap"
)

// consumerLoop is one goroutine reading (sub.stream, sub.group) as a named
// consumer. Each Subscribe call with Concurrency > 1 starts several of these
// sharing the same group, competing for entries the normal consumer-group way.
type consumerLoop struct {
	bus  *Bus
	sub  *subscription
	name string

	stopCh chan struct{}
	doneCh chan struct{}
}

func newConsumerLoop(bus *Bus, sub *subscription, name string) *consumerLoop {
	return &consumerLoop{
		bus:    bus,
		sub:    sub,
		name:   name,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (l *consumerLoop) start(ctx context.Context) {
	go l.run(ctx)
}

// stop signals the loop to exit and waits for the in-flight handler, if any,
// to finish before returning.
func (l *consumerLoop) stop() {
	close(l.stopCh)
	<-l.doneCh
}

func (l *consumerLoop) run(ctx context.Context) {
	defer close(l.doneCh)

	l.recover(ctx)

	sweepTicker := time.NewTicker(l.bus.config.ClaimSweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-sweepTicker.C:
			l.claimStale(ctx)
		default:
			l.readAndDispatch(ctx)
		}
	}
}

// recover replays this consumer's own still-pending entries from a prior
// crash before it joins the shared ">" read, so in-flight work survives a
// process restart without waiting for another consumer's claim sweep.
func (l *consumerLoop) recover(ctx context.Context) {
	entries, err := l.bus.stream.ReadPending(ctx, l.sub.stream, l.sub.group, l.name, 50)
	if err != nil {
		l.bus.log.Warn("recover: read pending failed", zap.String("stream", l.sub.stream), zap.Error(err))
		return
	}
	for _, e := range entries {
		l.dispatch(ctx, e, 1)
	}
}

// claimStale looks for entries idle longer than ClaimIdleTime owned by other
// consumers in the group and takes ownership of them; entries that have
// already exceeded MaxRetries deliveries are dead-lettered instead of
// reclaimed, since redelivery would only burn another retry budget.
func (l *consumerLoop) claimStale(ctx context.Context) {
	details, err := l.bus.stream.PendingDetails(ctx, l.sub.stream, l.sub.group, "-", "+", 100)
	if err != nil {
		l.bus.log.Warn("claim sweep: pending details failed", zap.String("stream", l.sub.stream), zap.Error(err))
		return
	}

	var toClaim []string
	for _, d := range details {
		if d.Consumer == l.name {
			continue
		}
		idle := time.Duration(d.IdleMs) * time.Millisecond
		if idle < l.bus.config.ClaimIdleTime {
			continue
		}
		if int(d.DeliveryCount) > l.bus.config.MaxRetries {
			l.deadLetterByID(ctx, d.ID, d.Consumer, "retries_exhausted",
				fmt.Sprintf("delivery_count=%d exceeds max_retries=%d", d.DeliveryCount, l.bus.config.MaxRetries))
			continue
		}
		toClaim = append(toClaim, d.ID)
	}

	if len(toClaim) == 0 {
		return
	}
	entries, err := l.bus.stream.Claim(ctx, l.sub.stream, l.sub.group, l.name, l.bus.config.ClaimIdleTime, toClaim)
	if err != nil {
		l.bus.log.Warn("claim sweep: claim failed", zap.String("stream", l.sub.stream), zap.Error(err))
		return
	}
	for _, e := range entries {
		l.dispatch(ctx, e, 1)
	}
}

// readAndDispatch blocks for at most the configured block window waiting for
// new (">") entries, then dispatches whatever arrived.
func (l *consumerLoop) readAndDispatch(ctx context.Context) {
	entries, err := l.bus.stream.ReadGroup(ctx, redis.ReadGroupArgs{
		Stream:   l.sub.stream,
		Group:    l.sub.group,
		Consumer: l.name,
		Count:    10,
		Block:    l.bus.config.BlockTime,
	})
	if err != nil {
		l.bus.log.Warn("read group failed", zap.String("stream", l.sub.stream), zap.Error(err))
		select {
		case <-l.stopCh:
		case <-time.After(time.Second):
		}
		return
	}
	for _, e := range entries {
		l.dispatch(ctx, e, 1)
	}
}

// dispatch decodes, schema-validates, and invokes the handler for one entry,
// then acts on its HandlerResult. attempt is informational only; retry
// accounting lives in the stream's own delivery count, inspected in claimStale.
func (l *consumerLoop) dispatch(ctx context.Context, e redis.Entry, attempt int) {
	env, err := Decode(e.Values)
	if err != nil {
		l.deadLetterByID(ctx, e.ID, l.name, "decode_error", err.Error())
		return
	}

	if len(l.sub.options.FilterTypes) > 0 && !containsType(l.sub.options.FilterTypes, env.Type) {
		if _, err := l.bus.stream.Ack(ctx, l.sub.stream, l.sub.group, e.ID); err != nil {
			l.bus.log.Warn("ack filtered entry failed", zap.String("entry_id", e.ID), zap.Error(err))
		}
		return
	}

	payload, err := l.bus.registry.ValidateEnvelope(env)
	if err != nil {
		reason := "validation_error"
		if errorsx.IsUnknownType(err) {
			reason = "unknown_type"
		} else if errorsx.IsUnsupportedVersion(err) {
			reason = "unsupported_version"
		}
		l.deadLetterEnvelope(ctx, e.ID, env, reason, err.Error())
		return
	}

	result := l.sub.handler.Handle(ctx, env, payload)
	switch result.Kind {
	case Ok:
		if _, err := l.bus.stream.Ack(ctx, l.sub.stream, l.sub.group, e.ID); err != nil {
			l.bus.log.Warn("ack failed", zap.String("entry_id", e.ID), zap.Error(err))
		}
	case Retry:
		// leave pending; a later claim sweep redelivers it, or dead-letters it
		// once delivery count exceeds MaxRetries.
		l.bus.log.Info("handler requested retry",
			zap.String("entry_id", e.ID), zap.String("type", env.Type), zap.String("reason", result.Reason))
	case Fatal:
		l.deadLetterEnvelope(ctx, e.ID, env, "handler_fatal", result.Reason)
	}
}

func (l *consumerLoop) deadLetterEnvelope(ctx context.Context, entryID string, env Envelope, reason, lastErr string) {
	if _, err := deadLetter(ctx, l.bus.dlq, l.bus.config, env, l.sub.group, l.name, reason, lastErr); err != nil {
		l.bus.log.Error("dead letter append failed, leaving entry pending",
			zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	if _, err := l.bus.stream.Ack(ctx, l.sub.stream, l.sub.group, entryID); err != nil {
		l.bus.log.Warn("ack after dead letter failed", zap.String("entry_id", entryID), zap.Error(err))
	}
}

// deadLetterByID handles the claim-sweep path, where only the raw entry id
// and owning consumer are known; the entry itself is re-read via a direct
// range lookup so its envelope can be preserved in the dead letter.
func (l *consumerLoop) deadLetterByID(ctx context.Context, entryID, owningConsumer, reason, lastErr string) {
	entries, err := l.bus.stream.Range(ctx, l.sub.stream, entryID, entryID, 1)
	if err != nil || len(entries) == 0 {
		l.bus.log.Warn("could not fetch entry for dead letter", zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	env, err := Decode(entries[0].Values)
	if err != nil {
		l.bus.log.Warn("could not decode entry for dead letter", zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	if _, err := deadLetter(ctx, l.bus.dlq, l.bus.config, env, l.sub.group, owningConsumer, reason, lastErr); err != nil {
		l.bus.log.Error("dead letter append failed", zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	if _, err := l.bus.stream.Ack(ctx, l.sub.stream, l.sub.group, entryID); err != nil {
		l.bus.log.Warn("ack after dead letter failed", zap.String("entry_id", entryID), zap.Error(err))
	}
}

func containsType(types []string, t string) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
