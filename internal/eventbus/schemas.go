package eventbus

// Payload schemas for the closed set of event types. Adding a new event is
// one struct, one Register call here, and one handler — never dynamic type
// fabrication.

// UserRegisteredPayload is the v1 payload for TypeUserRegistered.
type UserRegisteredPayload struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Tier   string `json:"tier" validate:"required,oneof=free individual_pro team enterprise"`
}

// UserLoggedInPayload is the v1 payload for TypeUserLoggedIn.
type UserLoggedInPayload struct {
	UserID    string `json:"user_id" validate:"required"`
	IPAddress string `json:"ip_address" validate:"omitempty,ip"`
}

// UserPreferencesUpdatedPayload is the v1 payload for TypeUserPreferencesUpdated.
type UserPreferencesUpdatedPayload struct {
	UserID      string            `json:"user_id" validate:"required"`
	Preferences map[string]string `json:"preferences" validate:"required"`
}

// AssetUploadedPayload is the v1 payload for TypeAssetUploaded.
type AssetUploadedPayload struct {
	AssetID  string `json:"asset_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	URI      string `json:"uri" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
}

// ProcessingStartedPayload is the v1 payload for TypeProcessingStarted.
type ProcessingStartedPayload struct {
	AssetID string `json:"asset_id" validate:"required"`
	JobID   string `json:"job_id" validate:"required"`
}

// ProcessingCompletedPayload is the v1 payload for TypeProcessingCompleted.
type ProcessingCompletedPayload struct {
	AssetID string `json:"asset_id" validate:"required"`
	JobID   string `json:"job_id" validate:"required"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// EmbeddingRequestedPayload is the v1 payload for TypeEmbeddingRequested.
type EmbeddingRequestedPayload struct {
	AssetID string `json:"asset_id" validate:"required"`
	Model   string `json:"model" validate:"required"`
}

// EmbeddingCompletedPayload is the v1 payload for TypeEmbeddingCompleted.
type EmbeddingCompletedPayload struct {
	AssetID     string `json:"asset_id" validate:"required"`
	VectorStore string `json:"vector_store" validate:"required"`
}

// ContentGenerationRequestedPayload is the v1 payload for TypeContentGenerationRequested.
type ContentGenerationRequestedPayload struct {
	RequestID string `json:"request_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	Prompt    string `json:"prompt" validate:"required"`
}

// ContentGenerationCompletedPayload is the v1 payload for TypeContentGenerationCompleted.
type ContentGenerationCompletedPayload struct {
	RequestID string `json:"request_id" validate:"required"`
	Output    string `json:"output"`
	Success   bool   `json:"success"`
}

// ConsultationRequestedPayload is the v1 payload for TypeConsultationRequested.
type ConsultationRequestedPayload struct {
	RequestID string `json:"request_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	Topic     string `json:"topic" validate:"required"`
}

// ConsultationCompletedPayload is the v1 payload for TypeConsultationCompleted.
type ConsultationCompletedPayload struct {
	RequestID string `json:"request_id" validate:"required"`
	Summary   string `json:"summary"`
}

// DataCollectionStartedPayload is the v1 payload for TypeDataCollectionStarted.
type DataCollectionStartedPayload struct {
	JobID  string `json:"job_id" validate:"required"`
	Market string `json:"market" validate:"required"`
}

// DataCollectedPayload is the v1 payload for TypeDataCollected.
type DataCollectedPayload struct {
	JobID      string `json:"job_id" validate:"required"`
	RecordCount int   `json:"record_count" validate:"gte=0"`
}

// TrendDetectedPayload is the v1 payload for TypeTrendDetected.
type TrendDetectedPayload struct {
	Market     string  `json:"market" validate:"required"`
	Signal     string  `json:"signal" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// NotificationSendRequestedPayload is the v1 payload for TypeNotificationSendRequested.
// Device tokens travel in the event payload itself rather than being looked
// up from a database at delivery time (see DESIGN.md on the notify handler).
type NotificationSendRequestedPayload struct {
	UserID      string   `json:"user_id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Body        string   `json:"body" validate:"required"`
	PushTokens  []string `json:"push_tokens" validate:"required,min=1,dive,required"`
	Channel     string   `json:"channel" validate:"required,oneof=expo fcm apns email"`
}

// NotificationDeliveredPayload is the v1 payload for TypeNotificationDelivered.
type NotificationDeliveredPayload struct {
	UserID    string `json:"user_id" validate:"required"`
	MessageID string `json:"message_id" validate:"required"`
}

// NotificationBriefingScheduledPayload is the v1 payload for TypeNotificationBriefingScheduled.
type NotificationBriefingScheduledPayload struct {
	UserID    string `json:"user_id" validate:"required"`
	ScheduleAt string `json:"schedule_at" validate:"required"`
}

// ServiceHealthPayload is the v1 payload for TypeServiceHealth.
type ServiceHealthPayload struct {
	Service string `json:"service" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=UP DOWN DEGRADED"`
}

// CriticalErrorPayload is the v1 payload for TypeCriticalError.
type CriticalErrorPayload struct {
	Service string `json:"service" validate:"required"`
	Message string `json:"message" validate:"required"`
	Trace   string `json:"trace,omitempty"`
}

// PerformanceDegradedPayload is the v1 payload for TypePerformanceDegraded.
type PerformanceDegradedPayload struct {
	Service   string  `json:"service" validate:"required"`
	LatencyMs float64 `json:"latency_ms" validate:"gte=0"`
}

// RegisterDefaultSchemas binds every known (type, version=1) pair to its
// payload struct. Call once at process start, before Registry.Close.
func RegisterDefaultSchemas(r *Registry) {
	reg := func(eventType string, newPayload func() any) {
		r.Register(eventType, 1, newPayload)
	}

	reg(TypeUserRegistered, func() any { return &UserRegisteredPayload{} })
	reg(TypeUserLoggedIn, func() any { return &UserLoggedInPayload{} })
	reg(TypeUserPreferencesUpdated, func() any { return &UserPreferencesUpdatedPayload{} })

	reg(TypeAssetUploaded, func() any { return &AssetUploadedPayload{} })
	reg(TypeProcessingStarted, func() any { return &ProcessingStartedPayload{} })
	reg(TypeProcessingCompleted, func() any { return &ProcessingCompletedPayload{} })
	reg(TypeEmbeddingRequested, func() any { return &EmbeddingRequestedPayload{} })
	reg(TypeEmbeddingCompleted, func() any { return &EmbeddingCompletedPayload{} })

	reg(TypeContentGenerationRequested, func() any { return &ContentGenerationRequestedPayload{} })
	reg(TypeContentGenerationCompleted, func() any { return &ContentGenerationCompletedPayload{} })
	reg(TypeConsultationRequested, func() any { return &ConsultationRequestedPayload{} })
	reg(TypeConsultationCompleted, func() any { return &ConsultationCompletedPayload{} })

	reg(TypeDataCollectionStarted, func() any { return &DataCollectionStartedPayload{} })
	reg(TypeDataCollected, func() any { return &DataCollectedPayload{} })
	reg(TypeTrendDetected, func() any { return &TrendDetectedPayload{} })

	reg(TypeNotificationSendRequested, func() any { return &NotificationSendRequestedPayload{} })
	reg(TypeNotificationDelivered, func() any { return &NotificationDeliveredPayload{} })
	reg(TypeNotificationBriefingScheduled, func() any { return &NotificationBriefingScheduledPayload{} })

	reg(TypeServiceHealth, func() any { return &ServiceHealthPayload{} })
	reg(TypeCriticalError, func() any { return &CriticalErrorPayload{} })
	reg(TypePerformanceDegraded, func() any { return &PerformanceDegradedPayload{} })
}
