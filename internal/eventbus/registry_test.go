package eventbus

import (
	"encoding/json"
	"testing"

	"eventcore/internal/pkg/errorsx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaultSchemas(r)
	r.Close()
	return r
}

func TestRegistry_ValidateUnknownType(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Validate("no.such.type", 1, nil)
	require.Error(t, err)
	assert.True(t, errorsx.IsUnknownType(err))
}

func TestRegistry_ValidateUnsupportedVersion(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Validate(TypeUserRegistered, 99, nil)
	require.Error(t, err)
	assert.True(t, errorsx.IsUnsupportedVersion(err))
}

func TestRegistry_ValidateRejectsMissingRequiredField(t *testing.T) {
	r := newTestRegistry()
	data, err := json.Marshal(map[string]string{"email": "a@b.com", "tier": "free"})
	require.NoError(t, err)

	_, err = r.Validate(TypeUserRegistered, 1, data)
	require.Error(t, err)
	assert.True(t, errorsx.IsValidation(err))
}

func TestRegistry_ValidateRejectsBadEnum(t *testing.T) {
	r := newTestRegistry()
	data, err := json.Marshal(map[string]string{
		"user_id": "u-1",
		"email":   "a@b.com",
		"tier":    "super-deluxe",
	})
	require.NoError(t, err)

	_, err = r.Validate(TypeUserRegistered, 1, data)
	require.Error(t, err)
	assert.True(t, errorsx.IsValidation(err))
}

func TestRegistry_ValidateAcceptsWellFormedPayload(t *testing.T) {
	r := newTestRegistry()
	data, err := json.Marshal(UserRegisteredPayload{
		UserID: "u-1",
		Email:  "a@b.com",
		Tier:   "individual_pro",
	})
	require.NoError(t, err)

	payload, err := r.Validate(TypeUserRegistered, 1, data)
	require.NoError(t, err)
	p, ok := payload.(*UserRegisteredPayload)
	require.True(t, ok)
	assert.Equal(t, "u-1", p.UserID)
}

func TestRegistry_ValidateEnvelopeDelegatesToValidate(t *testing.T) {
	r := newTestRegistry()
	data, err := json.Marshal(NotificationSendRequestedPayload{
		UserID:     "u-1",
		Title:      "hi",
		Body:       "there",
		PushTokens: []string{"ExponentPushToken[abc]"},
		Channel:    "expo",
	})
	require.NoError(t, err)

	env := Envelope{Type: TypeNotificationSendRequested, Version: 1, Data: data}
	payload, err := r.ValidateEnvelope(env)
	require.NoError(t, err)
	_, ok := payload.(*NotificationSendRequestedPayload)
	assert.True(t, ok)
}

func TestRegistry_RegisterAfterClosePanics(t *testing.T) {
	r := NewRegistry()
	r.Close()
	assert.Panics(t, func() {
		r.Register("anything", 1, func() any { return &struct{}{} })
	})
}
