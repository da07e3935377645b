package eventbus

// The closed set of named streams. Every stream has a sibling "<stream>.dead"
// dead-letter stream (see internal/pkg/redis/keys.DeadLetterStream).
const (
	StreamUserEvents         = "user.events"
	StreamContextualEvents   = "contextual.events"
	StreamAIEvents           = "ai.events"
	StreamMarketEvents       = "market.events"
	StreamNotificationEvents = "notification.events"
	StreamSystemEvents       = "system.events"
)

// Streams lists the closed set, used to provision groups and trim policy at startup.
var Streams = []string{
	StreamUserEvents,
	StreamContextualEvents,
	StreamAIEvents,
	StreamMarketEvents,
	StreamNotificationEvents,
	StreamSystemEvents,
}

// Event type tags, dotted per-stream.
const (
	TypeUserRegistered         = "user.registered"
	TypeUserLoggedIn           = "user.login"
	TypeUserPreferencesUpdated = "user.preferences_updated"

	TypeAssetUploaded           = "contextual.asset_uploaded"
	TypeProcessingStarted       = "contextual.processing_started"
	TypeProcessingCompleted     = "contextual.processing_completed"
	TypeEmbeddingRequested      = "contextual.embedding_requested"
	TypeEmbeddingCompleted      = "contextual.embedding_completed"

	TypeContentGenerationRequested = "ai.content_generation_requested"
	TypeContentGenerationCompleted = "ai.content_generation_completed"
	TypeConsultationRequested      = "ai.consultation_requested"
	TypeConsultationCompleted      = "ai.consultation_completed"

	TypeDataCollectionStarted = "market.data_collection_started"
	TypeDataCollected         = "market.data_collected"
	TypeTrendDetected         = "market.trend_detected"

	TypeNotificationSendRequested     = "notification.send_requested"
	TypeNotificationDelivered         = "notification.delivered"
	TypeNotificationBriefingScheduled = "notification.briefing_scheduled"

	TypeServiceHealth         = "system.service_health"
	TypeCriticalError         = "system.critical_error"
	TypePerformanceDegraded   = "system.performance_degraded"
)
