// Package keys centralizes the naming conventions for every Redis key the
// event bus and task queue touch: stream names, consumer group names, and
// the holding stream used to persist the task queue's ready set across restarts.
package keys

import (
	"fmt"
	"strings"
)

// DeadLetterSuffix names the sibling stream holding envelopes that exhausted
// retries or could not be understood.
const DeadLetterSuffix = ".dead"

// HoldingStream is where Stop persists the Task Queue's residual ready set
// so a fresh process can resume them on Start.
const HoldingStream = "tasks.holding"

// DeadLetterStream derives "<stream>.dead" from its origin stream.
func DeadLetterStream(stream string) string {
	return stream + DeadLetterSuffix
}

// IsDeadLetterStream reports whether stream is itself a dead-letter sibling.
func IsDeadLetterStream(stream string) bool {
	return strings.HasSuffix(stream, DeadLetterSuffix)
}

// OriginStream strips the dead-letter suffix, the inverse of DeadLetterStream.
func OriginStream(deadStream string) string {
	return strings.TrimSuffix(deadStream, DeadLetterSuffix)
}

// ConsumerGroup namespaces a logical group name with groupPrefix, so that
// multiple isolated deployments can run against one shared backend.
// Example: GroupPrefix="prod", logical="workers" -> "prod.workers".
func ConsumerGroup(groupPrefix, logicalGroup string) string {
	if groupPrefix == "" {
		return logicalGroup
	}
	return fmt.Sprintf("%s.%s", groupPrefix, logicalGroup)
}

// DedupKey returns the idempotency-service key for a task's dedup_key.
func DedupKey(namespace, dedupKey string) string {
	return fmt.Sprintf("%s:dedup:%s", namespace, dedupKey)
}

// MaintenanceLockKey returns the distributed-lock key guarding one instance
// of a periodic maintenance job (for example the dead-letter retention sweep).
func MaintenanceLockKey(jobName string) string {
	return fmt.Sprintf("eventcore:maintenance:%s", jobName)
}
